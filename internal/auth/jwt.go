// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/mediahub/internal/config"
	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

// SessionTTL is fixed: every session token expires exactly 24h after issue.
const SessionTTL = 24 * time.Hour

const (
	tokenTypeAccess = "access"
	keyIDLength     = 16
)

type JWTManager struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	jwksJSON   []byte
	config     config.JWTConfig
	now        func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	if cfg.GenerateKeys {
		if err := ensureKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath); err != nil {
			return nil, err
		}
	}

	privateKey, err := loadSigningKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	if err := publicKey.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	set := jwk.NewSet()
	if err := set.AddKey(publicKey); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}
	jwksJSON, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode jwks: %w", err)
	}

	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
		jwksJSON:   jwksJSON,
		config:     cfg,
		now:        time.Now,
	}, nil
}

// loadSigningKey reads a PEM EC private key and tags it for ES256. The
// key ID is derived from the key's RFC 7638 thumbprint, so it is stable
// across restarts and replicas sharing the key.
func loadSigningKey(path string) (jwk.Key, error) {
	pemBytes, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	key, err := jwk.ParseKey(pemBytes, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	thumb, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("key thumbprint: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("set algorithm: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, base64.RawURLEncoding.EncodeToString(thumb)[:keyIDLength]); err != nil {
		return nil, fmt.Errorf("set key id: %w", err)
	}

	return key, nil
}

func ensureKeyPair(privateKeyPath, publicKeyPath string) error {
	_, err := os.Stat(privateKeyPath)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat private key: %w", err)
	}

	for _, p := range []string{privateKeyPath, publicKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}

	return GenerateKeyPair(privateKeyPath, publicKeyPath)
}

// GenerateKeyPair writes a fresh P-256 key pair as PEM.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(raw)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	if err := writePEM(privateKeyPath, private, 0o600); err != nil {
		return err
	}
	return writePEM(publicKeyPath, public, 0o644)
}

func writePEM(path string, key jwk.Key, mode os.FileMode) error {
	data, err := jwk.Pem(key)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SessionClaims is the signed claim set of a session token.
type SessionClaims struct {
	SubjectID string
	Email     string
	Role      policy.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (m *JWTManager) IssueToken(identity policy.Identity) (string, *SessionClaims, error) {
	now := m.now().Truncate(time.Second)
	claims := &SessionClaims{
		SubjectID: identity.ID,
		Email:     identity.Email,
		Role:      identity.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(SessionTTL),
	}

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(claims.SubjectID).
		IssuedAt(claims.IssuedAt).
		Expiration(claims.ExpiresAt).
		NotBefore(claims.IssuedAt).
		Claim("email", claims.Email).
		Claim("role", string(claims.Role)).
		Claim("type", tokenTypeAccess).
		Build()
	if err != nil {
		return "", nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.privateKey))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), claims, nil
}

// Verify checks signature, issuer, audience, expiry and claim shape. It
// performs no I/O. A correctly signed token past its exp maps to
// ErrTokenExpired; every other failure maps to ErrTokenInvalid.
func (m *JWTManager) Verify(
	_ context.Context,
	tokenString string,
) (*policy.Identity, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.ES256(), m.publicKey),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	if err := jwt.Validate(token,
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	); err != nil {
		if exp, ok := token.Expiration(); ok && !time.Now().Before(exp) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	if typ := stringClaim(token, "type"); typ != tokenTypeAccess {
		return nil, fmt.Errorf("verify token: token type %q: %w", typ, core.ErrTokenInvalid)
	}

	subject, _ := token.Subject()
	role := policy.Role(stringClaim(token, "role"))
	email := stringClaim(token, "email")

	switch {
	case subject == "":
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	case !role.Valid():
		return nil, fmt.Errorf("verify token: unknown role %q: %w", role, core.ErrTokenInvalid)
	case email == "":
		return nil, fmt.Errorf("verify token: missing email: %w", core.ErrTokenInvalid)
	}

	return &policy.Identity{ID: subject, Email: email, Role: role}, nil
}

func stringClaim(token jwt.Token, name string) string {
	var v string
	if err := token.Get(name, &v); err != nil {
		return ""
	}
	return v
}

// JWKSHandler serves the public key set. The document is fixed for the
// life of the process, so it is encoded once.
func (m *JWTManager) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(m.jwksJSON) //nolint:errcheck // best-effort response
	}
}

func (m *JWTManager) KeyID() string {
	kid, _ := m.publicKey.KeyID()
	return kid
}
