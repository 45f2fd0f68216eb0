// AngelaMos | 2026
// service_test.go

package content

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
	"github.com/carterperez-dev/mediahub/internal/presence"
	"github.com/carterperez-dev/mediahub/internal/user"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []presence.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev presence.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// countingRepo records how often the repository is reached.
type countingRepo struct {
	Repository
	calls int
}

func (c *countingRepo) GetByID(ctx context.Context, id string) (*Content, error) {
	c.calls++
	return c.Repository.GetByID(ctx, id)
}

func (c *countingRepo) Delete(ctx context.Context, id string) error {
	c.calls++
	return c.Repository.Delete(ctx, id)
}

// interleavingRepo runs between once after the first GetByID returns, so a
// second writer lands between that read and the caller's write.
type interleavingRepo struct {
	Repository
	between func()
	once    sync.Once
	updates int
}

func (r *interleavingRepo) GetByID(ctx context.Context, id string) (*Content, error) {
	c, err := r.Repository.GetByID(ctx, id)
	r.once.Do(func() {
		if r.between != nil {
			r.between()
		}
	})
	return c, err
}

func (r *interleavingRepo) Update(ctx context.Context, c *Content) error {
	r.updates++
	return r.Repository.Update(ctx, c)
}

type fixture struct {
	svc    *Service
	repo   *countingRepo
	events *recordingPublisher
	admin  policy.Identity
	editor policy.Identity
	writer policy.Identity
	other  policy.Identity
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	users := user.NewMemoryRepository()

	mk := func(email string, role policy.Role) policy.Identity {
		u := &user.User{ID: uuid.NewString(), Email: email, Name: email, Role: role}
		require.NoError(t, users.Create(context.Background(), u))
		return policy.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
	}

	repo := &countingRepo{Repository: NewMemoryRepository(users)}
	events := &recordingPublisher{}

	return &fixture{
		svc:    NewService(repo, events, opts, nil),
		repo:   repo,
		events: events,
		admin:  mk("admin@example.com", policy.RoleAdmin),
		editor: mk("editor@example.com", policy.RoleEditor),
		writer: mk("writer1@example.com", policy.RoleWriter),
		other:  mk("writer2@example.com", policy.RoleWriter),
	}
}

func future() *time.Time {
	t := time.Now().Add(48 * time.Hour)
	return &t
}

func TestCreateForcesAuthorAndDefaults(t *testing.T) {
	f := newFixture(t, Options{})

	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{
		Title: "  Hello ",
		Body:  "World",
		Tags:  []string{" go", "go", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", item.Title)
	assert.Equal(t, StatusDraft, item.Status)
	assert.Equal(t, f.writer.ID, item.AuthorID)
	assert.Equal(t, Tags{"go"}, item.Tags)
	assert.Equal(t, "writer1@example.com", item.Author.Email)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, presence.EventContentUpdate, f.events.events[0].Name)
}

func TestCreateWriterStatusClamped(t *testing.T) {
	f := newFixture(t, Options{})

	for _, s := range []Status{StatusPublished, StatusScheduled} {
		item, err := f.svc.Create(context.Background(), f.writer, CreateInput{
			Title:       "Hello",
			Body:        "World",
			Status:      s,
			PublishDate: future(),
		})
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, item.Status, "requested %s", s)
	}
}

func TestCreateWriterStatusRejectedWhenConfigured(t *testing.T) {
	f := newFixture(t, Options{RejectStatusElevation: true})

	_, err := f.svc.Create(context.Background(), f.writer, CreateInput{
		Title:  "Hello",
		Body:   "World",
		Status: StatusPublished,
	})
	require.ErrorIs(t, err, core.ErrForbidden)

	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{
		Title:  "Hello",
		Body:   "World",
		Status: StatusDraft,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, item.Status)
}

func TestCreateEditorCanPublishAndSchedule(t *testing.T) {
	f := newFixture(t, Options{})

	published, err := f.svc.Create(context.Background(), f.editor, CreateInput{
		Title: "Hello", Body: "World", Status: StatusPublished,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status)

	scheduled, err := f.svc.Create(context.Background(), f.admin, CreateInput{
		Title: "Later", Body: "World", Status: StatusScheduled, PublishDate: future(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, scheduled.Status)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, Options{})
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"empty title", CreateInput{Title: "   ", Body: "World"}},
		{"empty body", CreateInput{Title: "Hello", Body: " "}},
		{"unknown status", CreateInput{Title: "Hello", Body: "World", Status: "archived"}},
		{"scheduled without date", CreateInput{Title: "Hello", Body: "World", Status: StatusScheduled}},
		{"scheduled in the past", CreateInput{Title: "Hello", Body: "World", Status: StatusScheduled, PublishDate: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.editor, tt.in)
			require.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestUpdatePartialPatch(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{
		Title: "Hello", Body: "World", Tags: []string{"a"},
	})
	require.NoError(t, err)

	newTitle := "Hello again"
	updated, err := f.svc.Update(context.Background(), f.writer, item.ID, Patch{Title: &newTitle})
	require.NoError(t, err)

	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "World", updated.Body)
	assert.Equal(t, Tags{"a"}, updated.Tags)
	assert.Equal(t, item.AuthorID, updated.AuthorID)
	assert.False(t, updated.UpdatedAt.Before(item.UpdatedAt))
}

func TestUpdateOwnership(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{Title: "Hello", Body: "World"})
	require.NoError(t, err)

	body := "Edited"

	_, err = f.svc.Update(context.Background(), f.other, item.ID, Patch{Body: &body})
	require.ErrorIs(t, err, core.ErrForbidden)

	for _, actor := range []policy.Identity{f.editor, f.admin} {
		_, err = f.svc.Update(context.Background(), actor, item.ID, Patch{Body: &body})
		require.NoError(t, err, actor.Role)
	}
}

func TestUpdateStatusFlatOverwrite(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.editor, CreateInput{
		Title: "Hello", Body: "World", Status: StatusPublished,
	})
	require.NoError(t, err)

	draft := StatusDraft
	updated, err := f.svc.Update(context.Background(), f.editor, item.ID, Patch{Status: &draft})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, updated.Status)

	scheduled := StatusScheduled
	_, err = f.svc.Update(context.Background(), f.editor, item.ID, Patch{Status: &scheduled})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	updated, err = f.svc.Update(context.Background(), f.editor, item.ID, Patch{
		Status:      &scheduled,
		PublishDate: future(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, updated.Status)

	published := StatusPublished
	updated, err = f.svc.Update(context.Background(), f.editor, item.ID, Patch{Status: &published})
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, updated.Status)
}

func TestUpdateWriterCannotPublishOwnContent(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{Title: "Hello", Body: "World"})
	require.NoError(t, err)

	published := StatusPublished
	updated, err := f.svc.Update(context.Background(), f.writer, item.ID, Patch{Status: &published})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, updated.Status)
}

func TestConcurrentPatchesKeepEachOthersFields(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{Title: "Hello", Body: "World"})
	require.NoError(t, err)

	repo := &interleavingRepo{Repository: f.repo}
	editorSvc := NewService(repo, nil, Options{}, nil)

	tags := []string{"urgent"}
	repo.between = func() {
		_, err := f.svc.Update(context.Background(), f.admin, item.ID, Patch{Tags: &tags})
		require.NoError(t, err)
	}

	title := "New title"
	updated, err := editorSvc.Update(context.Background(), f.editor, item.ID, Patch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, Tags{"urgent"}, updated.Tags)
	assert.Equal(t, 2, repo.updates, "stale write should be retried on a fresh read")

	stored, err := f.svc.Get(context.Background(), f.admin, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", stored.Title)
	assert.Equal(t, Tags{"urgent"}, stored.Tags)
}

func TestMemoryRepositoryRejectsStaleVersion(t *testing.T) {
	repo := NewMemoryRepository(user.NewMemoryRepository())
	c := &Content{ID: uuid.NewString(), Title: "Hello", Body: "World", Status: StatusDraft}
	require.NoError(t, repo.Insert(context.Background(), c))
	assert.Equal(t, int64(1), c.Version)

	first := *c
	first.Title = "First"
	require.NoError(t, repo.Update(context.Background(), &first))
	assert.Equal(t, int64(2), first.Version)

	stale := *c
	stale.Title = "Stale"
	require.ErrorIs(t, repo.Update(context.Background(), &stale), core.ErrConflict)

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t, Options{})
	title := "x"

	_, err := f.svc.Update(context.Background(), f.admin, "bogus", Patch{Title: &title})
	require.ErrorIs(t, err, core.ErrInvalidID)

	_, err = f.svc.Update(context.Background(), f.admin, uuid.NewString(), Patch{Title: &title})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteOrdering(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.writer, CreateInput{Title: "Hello", Body: "World"})
	require.NoError(t, err)

	f.repo.calls = 0
	err = f.svc.Delete(context.Background(), f.admin, "not-a-uuid")
	require.ErrorIs(t, err, core.ErrInvalidID)
	assert.Zero(t, f.repo.calls, "repository reached before id validation")

	err = f.svc.Delete(context.Background(), f.admin, uuid.NewString())
	require.ErrorIs(t, err, core.ErrNotFound)

	err = f.svc.Delete(context.Background(), f.other, item.ID)
	require.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, f.svc.Delete(context.Background(), f.writer, item.ID))

	_, err = f.repo.GetByID(context.Background(), item.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteByElevatedRoles(t *testing.T) {
	f := newFixture(t, Options{})

	for _, actor := range []policy.Identity{f.editor, f.admin} {
		item, err := f.svc.Create(context.Background(), f.writer, CreateInput{Title: "Hello", Body: "World"})
		require.NoError(t, err)
		require.NoError(t, f.svc.Delete(context.Background(), actor, item.ID), actor.Role)
	}
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t, Options{})

	first, err := f.svc.Create(context.Background(), f.writer, CreateInput{Title: "First", Body: "1"})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.other, CreateInput{Title: "Second", Body: "2"})
	require.NoError(t, err)

	body := "touched"
	_, err = f.svc.Update(context.Background(), f.writer, first.ID, Patch{Body: &body})
	require.NoError(t, err)

	items, err := f.svc.List(context.Background(), f.other)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, "Second", items[1].Title)
	assert.Equal(t, "writer2@example.com", items[1].Author.Email)
}

func TestGetAndCount(t *testing.T) {
	f := newFixture(t, Options{})
	item, err := f.svc.Create(context.Background(), f.editor, CreateInput{
		Title: "Hello", Body: "World", Status: StatusPublished,
	})
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), f.writer, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)

	_, err = f.svc.Get(context.Background(), f.writer, "nope")
	require.ErrorIs(t, err, core.ErrInvalidID)

	counts, err := f.svc.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusDraft: 0, StatusScheduled: 0, StatusPublished: 1}, counts)
}
