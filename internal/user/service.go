// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/mediahub/internal/auth"
	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

const minPasswordLength = 6

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
	role policy.Role,
) (*auth.UserInfo, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("create user: invalid role %q: %w", role, core.ErrInvalidInput)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        auth.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) ListUsers(
	ctx context.Context,
	actor policy.Identity,
	params ListUsersParams,
) ([]User, int, error) {
	if !policy.CanPerform(actor, policy.ActionListUsers, nil) {
		return nil, 0, fmt.Errorf("list users: %w", core.ErrForbidden)
	}

	return s.repo.List(ctx, params)
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	actor policy.Identity,
	id, role string,
) (*User, error) {
	if !policy.CanPerform(actor, policy.ActionManageUsers, nil) {
		return nil, fmt.Errorf("update role: %w", core.ErrForbidden)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("update role: %w", core.ErrInvalidID)
	}

	newRole := policy.Role(role)
	if !newRole.Valid() {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	user, err := s.repo.UpdateRole(ctx, id, newRole)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user role changed",
		"user_id", id,
		"role", newRole,
		"changed_by", actor.ID,
	)

	return user, nil
}

func (s *Service) ResetPassword(
	ctx context.Context,
	actor policy.Identity,
	id, password string,
) error {
	if !policy.CanPerform(actor, policy.ActionManageUsers, nil) {
		return fmt.Errorf("reset password: %w", core.ErrForbidden)
	}

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("reset password: %w", core.ErrInvalidID)
	}

	if len(password) < minPasswordLength {
		return fmt.Errorf(
			"reset password: password must be at least %d characters: %w",
			minPasswordLength,
			core.ErrInvalidInput,
		)
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user password reset",
		"user_id", id,
		"changed_by", actor.ID,
	)

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
