// AngelaMos | 2026
// repository.go

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/mediahub/internal/core"
)

// Repository persists content rows. Each method is a single statement, so
// per-row atomicity is all callers may rely on.
type Repository interface {
	Insert(ctx context.Context, c *Content) error
	GetByID(ctx context.Context, id string) (*Content, error)
	GetWithAuthor(ctx context.Context, id string) (*ContentWithAuthor, error)
	Update(ctx context.Context, c *Content) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]ContentWithAuthor, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

const contentColumns = `id, title, body, status, author_id, publish_date, tags, created_at, updated_at, version`

const selectWithAuthor = `
	SELECT c.id, c.title, c.body, c.status, c.author_id, c.publish_date,
	       c.tags, c.created_at, c.updated_at, c.version,
	       COALESCE(u.id::text, '') AS "author.id",
	       COALESCE(u.name, '')     AS "author.name",
	       COALESCE(u.email, '')    AS "author.email"
	FROM contents c
	LEFT JOIN users u ON u.id = c.author_id`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, c *Content) error {
	query := `
		INSERT INTO contents (id, title, body, status, author_id, publish_date, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at, version`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.Title,
		c.Body,
		c.Status,
		c.AuthorID,
		c.PublishDate,
		c.Tags,
	).Scan(&c.CreatedAt, &c.UpdatedAt, &c.Version)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`

	var c Content
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get content: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	return &c, nil
}

func (r *repository) GetWithAuthor(
	ctx context.Context,
	id string,
) (*ContentWithAuthor, error) {
	query := selectWithAuthor + ` WHERE c.id = $1`

	var c ContentWithAuthor
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get content: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	return &c, nil
}

// Update writes every mutable column when the stored version still matches
// c.Version; author_id and created_at are never written. A version mismatch
// returns core.ErrConflict.
func (r *repository) Update(ctx context.Context, c *Content) error {
	query := `
		UPDATE contents
		SET title = $2, body = $3, status = $4, publish_date = $5,
		    tags = $6, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND version = $7
		RETURNING updated_at, version`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID,
		c.Title,
		c.Body,
		c.Status,
		c.PublishDate,
		c.Tags,
		c.Version,
	).Scan(&c.UpdatedAt, &c.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update content: %w", r.missReason(ctx, c.ID))
	}
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}

	return nil
}

func (r *repository) missReason(ctx context.Context, id string) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM contents WHERE id = $1)`, id)
	switch {
	case err != nil:
		return err
	case exists:
		return core.ErrConflict
	default:
		return core.ErrNotFound
	}
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete content: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(ctx context.Context) ([]ContentWithAuthor, error) {
	query := selectWithAuthor + ` ORDER BY c.updated_at DESC, c.id`

	items := []ContentWithAuthor{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	return items, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}

	query := `SELECT status, COUNT(*) AS count FROM contents GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
