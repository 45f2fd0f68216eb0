// AngelaMos | 2026
// repository_test.go

package media

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mediahub/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepositoryInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	a := &Asset{
		ID:         "m1",
		Name:       "report.pdf",
		StorageKey: "k1.pdf",
		MimeType:   "application/pdf",
		Type:       TypeDocument,
		Size:       2048,
		UploadedBy: "u1",
	}

	mock.ExpectQuery(`INSERT INTO media_assets`).
		WithArgs("m1", "report.pdf", "k1.pdf", "application/pdf", "document", int64(2048), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, repo.Insert(context.Background(), a))
	assert.Equal(t, now, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertDuplicateKey(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO media_assets`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "media_assets_storage_key_key"})

	err := repo.Insert(context.Background(), &Asset{ID: "m1", StorageKey: "k"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestRepositoryGetByKeyNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM media_assets WHERE storage_key = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByKey(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryListJoinsUploader(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	cols := []string{
		"id", "name", "storage_key", "mime_type", "type", "size",
		"uploaded_by", "created_at",
		"uploader.id", "uploader.name", "uploader.email",
	}
	mock.ExpectQuery(`LEFT JOIN users u ON u.id = m.uploaded_by ORDER BY m.created_at DESC`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m2", "clip.mp4", "k2.mp4", "video/mp4", "video", int64(10), "u1", now, "u1", "Writer One", "writer1@x.com").
			AddRow("m1", "a.png", "k1.png", "image/png", "image", int64(5), "gone", now, "", "", ""))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, TypeVideo, items[0].Type)
	assert.Equal(t, "Writer One", items[0].Uploader.Name)
	assert.Empty(t, items[1].Uploader.ID)
}

func TestRepositoryGetWithUploader(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	cols := []string{
		"id", "name", "storage_key", "mime_type", "type", "size",
		"uploaded_by", "created_at",
		"uploader.id", "uploader.name", "uploader.email",
	}
	mock.ExpectQuery(`LEFT JOIN users u ON u.id = m.uploaded_by WHERE m.storage_key = \$1`).
		WithArgs("k1.png").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "a.png", "k1.png", "image/png", "image", int64(5), "u1", now, "u1", "Writer One", "writer1@x.com"))
	mock.ExpectQuery(`WHERE m.storage_key = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	got, err := repo.GetWithUploader(context.Background(), "k1.png")
	require.NoError(t, err)
	assert.Equal(t, "Writer One", got.Uploader.Name)
	assert.Equal(t, "k1.png", got.StorageKey)

	_, err = repo.GetWithUploader(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryCountByType(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT type, COUNT\(\*\) AS count FROM media_assets GROUP BY type`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count"}).AddRow("image", 3))

	counts, err := repo.CountByType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Type]int{TypeImage: 3, TypeVideo: 0, TypeDocument: 0}, counts)
}
