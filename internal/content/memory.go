// AngelaMos | 2026
// memory.go

package content

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/user"
)

// AuthorLookup resolves author ids for the in-memory join.
type AuthorLookup interface {
	Summaries(ctx context.Context, ids []string) (map[string]user.Summary, error)
}

type memoryRow struct {
	content Content
	seq     uint64
}

// MemoryRepository keeps content in process memory. The mutex makes every
// method atomic per row.
type MemoryRepository struct {
	mu      sync.RWMutex
	rows    map[string]*memoryRow
	seq     uint64
	authors AuthorLookup
	now     func() time.Time
}

func NewMemoryRepository(authors AuthorLookup) *MemoryRepository {
	return &MemoryRepository{
		rows:    make(map[string]*memoryRow),
		authors: authors,
		now:     time.Now,
	}
}

func (m *MemoryRepository) Insert(_ context.Context, c *Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rows[c.ID]; exists {
		return fmt.Errorf("insert content: %w", core.ErrDuplicateKey)
	}

	now := m.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Version = 1

	m.seq++
	m.rows[c.ID] = &memoryRow{content: cloneContent(*c), seq: m.seq}
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get content: %w", core.ErrNotFound)
	}
	c := cloneContent(row.content)
	return &c, nil
}

func (m *MemoryRepository) GetWithAuthor(ctx context.Context, id string) (*ContentWithAuthor, error) {
	c, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	joined, err := m.join(ctx, []Content{*c})
	if err != nil {
		return nil, err
	}
	return &joined[0], nil
}

func (m *MemoryRepository) Update(_ context.Context, c *Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[c.ID]
	if !ok {
		return fmt.Errorf("update content: %w", core.ErrNotFound)
	}
	if row.content.Version != c.Version {
		return fmt.Errorf("update content: %w", core.ErrConflict)
	}

	c.AuthorID = row.content.AuthorID
	c.CreatedAt = row.content.CreatedAt
	c.UpdatedAt = m.now().UTC()
	c.Version++

	m.seq++
	row.content = cloneContent(*c)
	row.seq = m.seq
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("delete content: %w", core.ErrNotFound)
	}
	delete(m.rows, id)
	return nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]ContentWithAuthor, error) {
	m.mu.RLock()
	rows := make([]memoryRow, 0, len(m.rows))
	for _, row := range m.rows {
		rows = append(rows, memoryRow{content: cloneContent(row.content), seq: row.seq})
	}
	m.mu.RUnlock()

	slices.SortFunc(rows, func(a, b memoryRow) int {
		if c := b.content.UpdatedAt.Compare(a.content.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	items := make([]Content, len(rows))
	for i := range rows {
		items[i] = rows[i].content
	}
	return m.join(ctx, items)
}

func (m *MemoryRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, row := range m.rows {
		counts[row.content.Status]++
	}
	return counts, nil
}

func (m *MemoryRepository) join(ctx context.Context, items []Content) ([]ContentWithAuthor, error) {
	out := make([]ContentWithAuthor, len(items))
	for i := range items {
		out[i].Content = items[i]
	}
	if m.authors == nil || len(items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].AuthorID)
	}

	summaries, err := m.authors.Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	for i := range out {
		out[i].Author = summaries[out[i].AuthorID]
	}
	return out, nil
}

func cloneContent(c Content) Content {
	c.Tags = slices.Clone(c.Tags)
	if c.PublishDate != nil {
		d := *c.PublishDate
		c.PublishDate = &d
	}
	return c
}

var _ Repository = (*MemoryRepository)(nil)
