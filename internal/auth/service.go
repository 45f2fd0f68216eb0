// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

const tracerName = "github.com/carterperez-dev/mediahub/internal/auth"

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         policy.Role
	CreatedAt    time.Time
}

// UserProvider is the slice of user storage the identity service needs.
// Emails passed in are already normalized.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
		role policy.Role,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	jwt          *JWTManager
	userProvider UserProvider
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewService(
	jwt *JWTManager,
	userProvider UserProvider,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jwt:          jwt,
		userProvider: userProvider,
		validate:     validator.New(),
		logger:       logger,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*AuthResponse, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.Register")
	defer span.End()

	email := NormalizeEmail(req.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("register: invalid email: %w", core.ErrInvalidInput)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("register: name required: %w", core.ErrInvalidInput)
	}

	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf(
			"register: password must be at least %d characters: %w",
			minPasswordLength,
			core.ErrInvalidInput,
		)
	}

	role := policy.DefaultRole
	if req.Role != "" {
		role = policy.Role(req.Role)
		if !role.Valid() {
			return nil, fmt.Errorf(
				"register: unknown role %q: %w",
				req.Role,
				core.ErrInvalidInput,
			)
		}
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, email, passwordHash, name, role)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", user.ID),
		attribute.String("user.role", string(user.Role)),
	)
	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID,
		"role", user.Role,
	)

	return s.createAuthResponse(user)
}

// Authenticate answers ErrInvalidCredentials for both an unknown email and
// a wrong password, and runs an argon2 verification in either case.
func (s *Service) Authenticate(
	ctx context.Context,
	req LoginRequest,
) (*AuthResponse, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "auth.Authenticate")
	defer span.End()

	user, err := s.userProvider.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		if err := s.userProvider.UpdatePassword(ctx, user.ID, newHash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	return s.createAuthResponse(user)
}

func (s *Service) Verify(
	ctx context.Context,
	token string,
) (*policy.Identity, error) {
	return s.jwt.Verify(ctx, token)
}

func (s *Service) Me(
	ctx context.Context,
	identity policy.Identity,
) (*UserResponse, error) {
	if identity.ID == "" {
		return nil, fmt.Errorf("me: %w", core.ErrUnauthorized)
	}

	user, err := s.userProvider.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) createAuthResponse(user *UserInfo) (*AuthResponse, error) {
	token, claims, err := s.jwt.IssueToken(policy.Identity{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt,
		User:      toUserResponse(user),
	}, nil
}
