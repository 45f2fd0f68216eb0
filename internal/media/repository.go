// AngelaMos | 2026
// repository.go

package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/mediahub/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, a *Asset) error
	GetByKey(ctx context.Context, key string) (*Asset, error)
	GetWithUploader(ctx context.Context, key string) (*AssetWithUploader, error)
	List(ctx context.Context) ([]AssetWithUploader, error)
	CountByType(ctx context.Context) (map[Type]int, error)
}

const selectWithUploader = `
	SELECT m.id, m.name, m.storage_key, m.mime_type, m.type, m.size,
	       m.uploaded_by, m.created_at,
	       COALESCE(u.id::text, '') AS "uploader.id",
	       COALESCE(u.name, '')     AS "uploader.name",
	       COALESCE(u.email, '')    AS "uploader.email"
	FROM media_assets m
	LEFT JOIN users u ON u.id = m.uploaded_by`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, a *Asset) error {
	query := `
		INSERT INTO media_assets (id, name, storage_key, mime_type, type, size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID,
		a.Name,
		a.StorageKey,
		a.MimeType,
		a.Type,
		a.Size,
		a.UploadedBy,
	).Scan(&a.CreatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("insert media: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert media: %w", err)
	}

	return nil
}

func (r *repository) GetByKey(ctx context.Context, key string) (*Asset, error) {
	query := `
		SELECT id, name, storage_key, mime_type, type, size, uploaded_by, created_at
		FROM media_assets
		WHERE storage_key = $1`

	var a Asset
	err := r.db.GetContext(ctx, &a, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get media: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}

	return &a, nil
}

func (r *repository) GetWithUploader(
	ctx context.Context,
	key string,
) (*AssetWithUploader, error) {
	query := selectWithUploader + ` WHERE m.storage_key = $1`

	var a AssetWithUploader
	err := r.db.GetContext(ctx, &a, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get media: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}

	return &a, nil
}

func (r *repository) List(ctx context.Context) ([]AssetWithUploader, error) {
	query := selectWithUploader + ` ORDER BY m.created_at DESC, m.id`

	items := []AssetWithUploader{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	return items, nil
}

func (r *repository) CountByType(ctx context.Context) (map[Type]int, error) {
	var rows []struct {
		Type  Type `db:"type"`
		Count int  `db:"count"`
	}

	query := `SELECT type, COUNT(*) AS count FROM media_assets GROUP BY type`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count media: %w", err)
	}

	counts := zeroCounts()
	for _, row := range rows {
		counts[row.Type] = row.Count
	}

	return counts, nil
}

func zeroCounts() map[Type]int {
	counts := make(map[Type]int, len(Types))
	for _, t := range Types {
		counts[t] = 0
	}
	return counts
}
