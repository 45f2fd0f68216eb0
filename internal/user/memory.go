// AngelaMos | 2026
// memory.go

package user

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
)

// MemoryRepository is a Repository held in process memory. Each method is
// atomic under a single mutex.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (m *MemoryRepository) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}
	if _, exists := m.byID[user.ID]; exists {
		return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	now := m.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	m.byID[user.ID] = &stored
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryRepository) UpdateRole(
	_ context.Context,
	id string,
	role policy.Role,
) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = m.now().UTC()

	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryRepository) List(
	_ context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()
	search := strings.ToLower(params.Search)

	m.mu.RLock()
	matched := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		if params.Role != "" && string(u.Role) != params.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		cp := *u
		cp.PasswordHash = ""
		matched = append(matched, cp)
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	total := len(matched)
	if !params.Paged() {
		return matched, total, nil
	}
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return matched[start:end], total, nil
}

// Summaries resolves user ids to their public projection, skipping
// unknown ids.
func (m *MemoryRepository) Summaries(_ context.Context, ids []string) (map[string]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Summary, len(ids))
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
