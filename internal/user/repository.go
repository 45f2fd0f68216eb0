// AngelaMos | 2026
// repository.go

package user

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateRole(ctx context.Context, id string, role policy.Role) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

const userColumns = `id, email, password_hash, name, role, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get user", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.getOne(ctx, "get user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *repository) UpdateRole(
	ctx context.Context,
	id string,
	role policy.Role,
) (*User, error) {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return r.getOne(ctx, "update role", query, id, role)
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return fmt.Errorf("update password: %w", cmp.Or(err, core.ErrNotFound))
	}

	return nil
}

// getOne runs a single-row query and maps an empty result to ErrNotFound.
func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// userFilter accumulates WHERE predicates with positional placeholders.
type userFilter struct {
	preds []string
	args  []any
}

func (f *userFilter) add(pred string, arg any) {
	f.args = append(f.args, arg)
	f.preds = append(f.preds, strings.ReplaceAll(pred, "?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *userFilter) where() string {
	if len(f.preds) == 0 {
		return "TRUE"
	}
	return strings.Join(f.preds, " AND ")
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var f userFilter
	if params.Search != "" {
		f.add("(email ILIKE ? OR name ILIKE ?)", core.ContainsPattern(params.Search))
	}
	if params.Role != "" {
		f.add("role = ?", params.Role)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM users WHERE " + f.where()
	if err := r.db.GetContext(ctx, &total, countQuery, f.args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	// Password hashes never leave the store through listings.
	query := `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE ` + f.where() + `
		ORDER BY created_at DESC`

	args := f.args
	if params.Paged() {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, params.PageSize, params.Offset())
	}

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}
