// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// Argon2Params are the argon2id cost settings encoded into every hash.
type Argon2Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// PasswordParams is what new hashes are produced with. Stored hashes with
// other settings still verify and are flagged for rehash.
var PasswordParams = Argon2Params{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

type phcHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func (h phcHash) String() string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func derive(password string, salt []byte, p Argon2Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// HashPassword returns a salted argon2id hash in PHC string format.
func HashPassword(password string) (string, error) {
	p := PasswordParams

	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	return phcHash{params: p, salt: salt, key: derive(password, salt, p)}.String(), nil
}

func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	other := derive(password, h.salt, h.params)
	return subtle.ConstantTimeCompare(h.key, other) == 1, nil
}

// VerifyPasswordWithRehash also returns a fresh hash when the stored one
// was made with outdated parameters. A failed rehash is not an error.
func VerifyPasswordWithRehash(password, encoded string) (bool, string, error) {
	valid, err := VerifyPassword(password, encoded)
	if err != nil || !valid {
		return false, "", err
	}

	if !needsRehash(encoded) {
		return true, "", nil
	}

	fresh, err := HashPassword(password)
	if err != nil {
		return true, "", nil //nolint:nilerr // verified; rehash is best effort
	}
	return true, fresh, nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

func enumerationGuardHash() string {
	dummyOnce.Do(func() {
		hash, err := HashPassword("mediahub-enumeration-guard")
		if err != nil {
			panic(fmt.Sprintf("security: generate dummy hash: %v", err))
		}
		dummyHash = hash
	})
	return dummyHash
}

// VerifyPasswordTimingSafe always runs one argon2 derivation, against a
// dummy hash when the account does not exist, so unknown emails and wrong
// passwords take the same time.
func VerifyPasswordTimingSafe(password string, encoded *string) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		_, _ = VerifyPassword(password, enumerationGuardHash()) //nolint:errcheck // timing only
		return false, "", nil
	}

	return VerifyPasswordWithRehash(password, *encoded)
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 6 fields", ErrMalformedHash)
	}

	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: incompatible version %d", ErrMalformedHash, version)
	}

	h := &phcHash{}
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&h.params.Memory,
		&h.params.Time,
		&h.params.Threads,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}

	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}

	//nolint:gosec // G115: lengths are tiny
	h.params.KeyLen = uint32(len(h.key))
	//nolint:gosec // G115: lengths are tiny
	h.params.SaltLen = uint32(len(h.salt))

	return h, nil
}

func needsRehash(encoded string) bool {
	h, err := parsePHC(encoded)
	if err != nil {
		return true
	}

	p := PasswordParams
	return h.params.Memory != p.Memory ||
		h.params.Time != p.Time ||
		h.params.Threads != p.Threads ||
		h.params.KeyLen != p.KeyLen
}
