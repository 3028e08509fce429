package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

// MemoryRepository is an in-process Repository used by tests. OnDelete, when
// set, stands in for the foreign-key cascade.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
	OnDelete func(id uuid.UUID)
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[uuid.UUID]Account)}
}

func (m *MemoryRepository) Upsert(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.accounts[a.ID]; ok {
		a.CreatedAt = existing.CreatedAt
		if a.Email == nil {
			a.Email = existing.Email
		}
	} else {
		a.CreatedAt = a.LastSeenAt
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperr.NotFound(nil)
	}
	return &a, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	_, ok := m.accounts[id]
	delete(m.accounts, id)
	m.mu.Unlock()
	if !ok {
		return apperr.NotFound(nil)
	}
	if m.OnDelete != nil {
		m.OnDelete(id)
	}
	return nil
}
