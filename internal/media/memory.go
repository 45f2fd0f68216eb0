// AngelaMos | 2026
// memory.go

package media

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

// UploaderLookup resolves uploader ids for the in-memory join.
type UploaderLookup interface {
	Summaries(ctx context.Context, ids []string) (map[string]user.Summary, error)
}

type memoryRow struct {
	asset Asset
	seq   uint64
}

type MemoryRepository struct {
	mu        sync.RWMutex
	byKey     map[string]*memoryRow
	seq       uint64
	uploaders UploaderLookup
	now       func() time.Time
}

func NewMemoryRepository(uploaders UploaderLookup) *MemoryRepository {
	return &MemoryRepository{
		byKey:     make(map[string]*memoryRow),
		uploaders: uploaders,
		now:       time.Now,
	}
}

func (m *MemoryRepository) Insert(_ context.Context, a *Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byKey[a.StorageKey]; exists {
		return fmt.Errorf("insert media: %w", core.ErrDuplicateKey)
	}

	a.CreatedAt = m.now().UTC()
	m.seq++
	m.byKey[a.StorageKey] = &memoryRow{asset: *a, seq: m.seq}
	return nil
}

func (m *MemoryRepository) GetByKey(_ context.Context, key string) (*Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.byKey[key]
	if !ok {
		return nil, fmt.Errorf("get media: %w", core.ErrNotFound)
	}
	a := row.asset
	return &a, nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]AssetWithUploader, error) {
	m.mu.RLock()
	rows := make([]memoryRow, 0, len(m.byKey))
	for _, row := range m.byKey {
		rows = append(rows, *row)
	}
	m.mu.RUnlock()

	slices.SortFunc(rows, func(a, b memoryRow) int {
		if c := b.asset.CreatedAt.Compare(a.asset.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]AssetWithUploader, len(rows))
	for i := range rows {
		out[i].Asset = rows[i].asset
	}

	if err := m.resolveUploaders(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MemoryRepository) GetWithUploader(ctx context.Context, key string) (*AssetWithUploader, error) {
	a, err := m.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	out := []AssetWithUploader{{Asset: *a}}
	if err := m.resolveUploaders(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (m *MemoryRepository) resolveUploaders(ctx context.Context, out []AssetWithUploader) error {
	if m.uploaders == nil || len(out) == 0 {
		return nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].UploadedBy
	}

	summaries, err := m.uploaders.Summaries(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve uploaders: %w", err)
	}
	for i := range out {
		out[i].Uploader = summaries[out[i].UploadedBy]
	}
	return nil
}

func (m *MemoryRepository) CountByType(_ context.Context) (map[Type]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := zeroCounts()
	for _, row := range m.byKey {
		counts[row.asset.Type]++
	}
	return counts, nil
}

var _ Repository = (*MemoryRepository)(nil)
