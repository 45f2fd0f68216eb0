// AngelaMos | 2026
// repository_test.go

package content

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

	c := &Content{
		ID:       "c1",
		Title:    "Hello",
		Body:     "World",
		Status:   StatusDraft,
		AuthorID: "u1",
		Tags:     Tags{"go"},
	}

	mock.ExpectQuery(`INSERT INTO contents`).
		WithArgs("c1", "Hello", "World", "draft", "u1", nil, `["go"]`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at", "version"}).AddRow(now, now, 1))

	require.NoError(t, repo.Insert(context.Background(), c))
	assert.Equal(t, now, c.UpdatedAt)
	assert.Equal(t, int64(1), c.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListJoinsAuthor(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	cols := []string{
		"id", "title", "body", "status", "author_id", "publish_date",
		"tags", "created_at", "updated_at", "version",
		"author.id", "author.name", "author.email",
	}
	mock.ExpectQuery(`LEFT JOIN users u ON u.id = c.author_id ORDER BY c.updated_at DESC`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c2", "Second", "2", "published", "u2", now, []byte(`["a","b"]`), now, now, 3, "u2", "Ed", "ed@example.com").
			AddRow("c1", "First", "1", "draft", "u1", nil, []byte(`[]`), now, now, 1, "", "", ""))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, StatusPublished, items[0].Status)
	assert.Equal(t, Tags{"a", "b"}, items[0].Tags)
	require.NotNil(t, items[0].PublishDate)
	assert.Equal(t, "ed@example.com", items[0].Author.Email)

	assert.Nil(t, items[1].PublishDate)
	assert.Empty(t, items[1].Author.ID)
}

func TestRepositoryUpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE contents`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Update(context.Background(), &Content{ID: "missing", Status: StatusDraft, Version: 1})
	require.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateGuardsVersion(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE id = \$1 AND version = \$7`).
		WithArgs("c1", "Hello", "World", "draft", nil, `[]`, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, 3))

	c := &Content{ID: "c1", Title: "Hello", Body: "World", Status: StatusDraft, Tags: Tags{}, Version: 2}
	require.NoError(t, repo.Update(context.Background(), c))
	assert.Equal(t, int64(3), c.Version)
	assert.Equal(t, now, c.UpdatedAt)

	mock.ExpectQuery(`UPDATE contents`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	c.Version = 2
	err := repo.Update(context.Background(), c)
	require.ErrorIs(t, err, core.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM contents WHERE id = \$1`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM contents WHERE id = \$1`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "c1"))
	require.ErrorIs(t, repo.Delete(context.Background(), "c1"), core.ErrNotFound)
}

func TestRepositoryCountByStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM contents GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("draft", 3).
			AddRow("published", 1))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusDraft: 3, StatusScheduled: 0, StatusPublished: 1}, counts)
}
