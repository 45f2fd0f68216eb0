// AngelaMos | 2026
// service_test.go

package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
	"github.com/carterperez-dev/mediahub/internal/user"
)

const testBaseURL = "http://media.test"

type fixture struct {
	svc    *Service
	repo   *MemoryRepository
	store  *FSStore
	dir    string
	writer policy.Identity
	editor policy.Identity
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	users := user.NewMemoryRepository()

	mk := func(email string, role policy.Role) policy.Identity {
		u := &user.User{ID: uuid.NewString(), Email: email, Name: "Name " + email, Role: role}
		require.NoError(t, users.Create(context.Background(), u))
		return policy.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
	}

	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = testBaseURL
	}

	repo := NewMemoryRepository(users)
	return &fixture{
		svc:    NewService(repo, store, opts, nil),
		repo:   repo,
		store:  store,
		dir:    dir,
		writer: mk("writer1@example.com", policy.RoleWriter),
		editor: mk("editor@example.com", policy.RoleEditor),
	}
}

func TestIngestDocument(t *testing.T) {
	f := newFixture(t, Options{})
	payload := bytes.Repeat([]byte("p"), 2048)

	asset, err := f.svc.Ingest(
		context.Background(),
		f.writer,
		bytes.NewReader(payload),
		"application/pdf",
		"report.pdf",
	)
	require.NoError(t, err)

	assert.Equal(t, TypeDocument, asset.Type)
	assert.Equal(t, int64(2048), asset.Size)
	assert.Equal(t, "report.pdf", asset.Name)
	assert.Equal(t, f.writer.ID, asset.UploadedBy)
	assert.True(t, strings.HasPrefix(asset.URL, testBaseURL+"/uploads/"))
	assert.True(t, strings.HasSuffix(asset.URL, ".pdf"))
	assert.Equal(t, "Name writer1@example.com", asset.Uploader.Name)
	assert.Equal(t, f.writer.ID, asset.Uploader.ID)

	items, err := f.svc.List(context.Background(), f.editor)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, asset.URL, items[0].URL)
	assert.Equal(t, "Name writer1@example.com", items[0].Uploader.Name)
}

func TestIngestClassifiesByDeclaredMime(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	img, err := f.svc.Ingest(ctx, f.writer, strings.NewReader("png"), "image/png", "a.PNG")
	require.NoError(t, err)
	assert.Equal(t, TypeImage, img.Type)
	assert.True(t, strings.HasSuffix(img.URL, ".png"))

	vid, err := f.svc.Ingest(ctx, f.writer, strings.NewReader("mov"), "video/quicktime", "clip.mov")
	require.NoError(t, err)
	assert.Equal(t, TypeVideo, vid.Type)

	counts, err := f.svc.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Type]int{TypeImage: 1, TypeVideo: 1, TypeDocument: 0}, counts)
}

func TestIngestStripsPathAndOddExtensions(t *testing.T) {
	f := newFixture(t, Options{})

	asset, err := f.svc.Ingest(
		context.Background(),
		f.writer,
		strings.NewReader("x"),
		"",
		`..\..\evil/../notes.t$t`,
	)
	require.NoError(t, err)
	assert.Equal(t, "notes.t$t", asset.Name)
	assert.Equal(t, "application/octet-stream", asset.MimeType)
	assert.NotContains(t, asset.URL, "$")
}

func TestIngestRejectsEmptyName(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Ingest(context.Background(), f.writer, strings.NewReader("x"), "text/plain", "  ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestIngestRequiresRole(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Ingest(
		context.Background(),
		policy.Identity{ID: uuid.NewString(), Role: policy.Role("guest")},
		strings.NewReader("x"),
		"text/plain",
		"a.txt",
	)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestIngestTooLargeLeavesNothing(t *testing.T) {
	f := newFixture(t, Options{MaxUploadSize: 100})

	_, err := f.svc.Ingest(
		context.Background(),
		f.writer,
		bytes.NewReader(make([]byte, 101)),
		"application/pdf",
		"big.pdf",
	)
	require.ErrorIs(t, err, ErrTooLarge)

	items, err := f.svc.List(context.Background(), f.writer)
	require.NoError(t, err)
	assert.Empty(t, items)

	entries, err := readDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingStore struct{ BlobStore }

func (failingStore) Put(context.Context, string, io.Reader, string) error {
	return errors.New("disk full")
}

func (failingStore) Delete(context.Context, string) error { return nil }

func TestIngestStorageFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(t, Options{})
	svc := NewService(f.repo, failingStore{}, Options{PublicBaseURL: testBaseURL}, nil)

	_, err := svc.Ingest(context.Background(), f.writer, strings.NewReader("x"), "image/png", "a.png")
	require.Error(t, err)

	items, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

type failingRepo struct{ Repository }

func (failingRepo) Insert(context.Context, *Asset) error {
	return errors.New("db down")
}

func TestIngestRecordFailureKeepsBlob(t *testing.T) {
	f := newFixture(t, Options{})
	svc := NewService(failingRepo{f.repo}, f.store, Options{PublicBaseURL: testBaseURL}, nil)

	_, err := svc.Ingest(context.Background(), f.writer, strings.NewReader("x"), "image/png", "a.png")
	require.Error(t, err)

	entries, err := readDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t, Options{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	f.repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		_, err := f.svc.Ingest(context.Background(), f.writer, strings.NewReader(name), "text/plain", name)
		require.NoError(t, err)
	}

	items, err := f.svc.List(context.Background(), f.writer)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "three.txt", items[0].Name)
	assert.Equal(t, "one.txt", items[2].Name)
}

func TestOpenResolvesRecordThenBlob(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	asset, err := f.svc.Ingest(ctx, f.writer, strings.NewReader("hello"), "text/plain", "h.txt")
	require.NoError(t, err)

	key := strings.TrimPrefix(asset.URL, testBaseURL+"/uploads/")
	stream, err := f.svc.Open(ctx, key)
	require.NoError(t, err)
	defer stream.Blob.Close()

	data, err := io.ReadAll(stream.Blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "h.txt", stream.Asset.Name)

	_, err = f.svc.Open(ctx, uuid.NewString()+".txt")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.Open(ctx, "../secret")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

type signingStore struct{ BlobStore }

func (signingStore) PresignGet(_ context.Context, key string, d Delivery) (string, error) {
	return "https://bucket.example.com/" + key + "?sig=1&type=" + d.ContentType, nil
}

func TestOpenRedirectsForSigningStores(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	asset, err := f.svc.Ingest(ctx, f.writer, strings.NewReader("v"), "video/mp4", "v.mp4")
	require.NoError(t, err)
	key := strings.TrimPrefix(asset.URL, testBaseURL+"/uploads/")

	svc := NewService(f.repo, signingStore{f.store}, Options{PublicBaseURL: testBaseURL}, nil)
	stream, err := svc.Open(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, stream.Blob)
	assert.Equal(t, "https://bucket.example.com/"+key+"?sig=1&type=video/mp4", stream.RedirectURL)
}
