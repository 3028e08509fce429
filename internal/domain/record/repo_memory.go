package record

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

// MemoryRepository is an in-process Repository used by tests. Records are
// deep-copied on the way in and out so callers never share state with the
// store. Unique constraints can be emulated with Unique.
type MemoryRepository[T any] struct {
	table  Table[T]
	mu     sync.RWMutex
	items  map[uuid.UUID]*T
	seq    map[uuid.UUID]int64
	next   int64
	now    func() time.Time
	desc   bool
	unique func(existing, candidate *T) bool
}

func NewMemoryRepository[T any](table Table[T]) *MemoryRepository[T] {
	return &MemoryRepository[T]{
		table: table,
		items: make(map[uuid.UUID]*T),
		seq:   make(map[uuid.UUID]int64),
		now:   time.Now,
		desc:  strings.Contains(strings.ToUpper(table.OrderBy), "DESC"),
	}
}

// Unique rejects a create or update with a conflict when conflicts reports
// true against any other stored record.
func (m *MemoryRepository[T]) Unique(conflicts func(existing, candidate *T) bool) *MemoryRepository[T] {
	m.unique = conflicts
	return m
}

// SetClock overrides the time source used for timestamps.
func (m *MemoryRepository[T]) SetClock(now func() time.Time) {
	m.now = now
}

func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("record: clone: %v", err))
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("record: clone: %v", err))
	}
	return out
}

func (m *MemoryRepository[T]) conflict(candidate *T) bool {
	if m.unique == nil {
		return false
	}
	id := m.table.Base(candidate).ID
	for oid, existing := range m.items {
		if oid != id && m.unique(existing, candidate) {
			return true
		}
	}
	return false
}

func (m *MemoryRepository[T]) Create(_ context.Context, v *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.table.Base(v)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := m.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	if m.conflict(v) {
		return apperr.Conflict("record already exists", nil)
	}
	m.next++
	m.seq[b.ID] = m.next
	m.items[b.ID] = clone(v)
	return nil
}

func (m *MemoryRepository[T]) Get(_ context.Context, owner, id uuid.UUID) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[id]
	if !ok || m.table.Base(v).UserID != owner {
		return nil, apperr.NotFound(nil)
	}
	return clone(v), nil
}

func (m *MemoryRepository[T]) Update(_ context.Context, v *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.table.Base(v)
	existing, ok := m.items[b.ID]
	if !ok || m.table.Base(existing).UserID != b.UserID {
		return apperr.NotFound(nil)
	}
	if m.conflict(v) {
		return apperr.Conflict("record already exists", nil)
	}
	b.UpdatedAt = m.now().UTC()
	m.items[b.ID] = clone(v)
	return nil
}

func (m *MemoryRepository[T]) Delete(_ context.Context, owner, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	if !ok || m.table.Base(v).UserID != owner {
		return apperr.NotFound(nil)
	}
	delete(m.items, id)
	delete(m.seq, id)
	return nil
}

// DeleteOwner removes every record of owner, as the account cascade does.
func (m *MemoryRepository[T]) DeleteOwner(owner uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.items {
		if m.table.Base(v).UserID == owner {
			delete(m.items, id)
			delete(m.seq, id)
		}
	}
}

func (m *MemoryRepository[T]) owned(owner uuid.UUID, keep func(*T) bool) []*T {
	var out []*T
	for _, v := range m.items {
		if m.table.Base(v).UserID == owner && (keep == nil || keep(v)) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := m.seq[m.table.Base(out[i]).ID], m.seq[m.table.Base(out[j]).ID]
		if m.desc {
			return si > sj
		}
		return si < sj
	})
	return out
}

func (m *MemoryRepository[T]) List(_ context.Context, owner uuid.UUID, limit, offset int) ([]*T, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.owned(owner, nil)
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]*T, 0, end-offset)
	for _, v := range all[offset:end] {
		items = append(items, clone(v))
	}
	return items, total, nil
}

func (m *MemoryRepository[T]) ListBy(_ context.Context, owner uuid.UUID, column string, value any) ([]*T, error) {
	idx := -1
	for i, c := range m.table.Columns {
		if c == column {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("table %s has no column %q", m.table.Name, column)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.owned(owner, func(v *T) bool {
		field := reflect.ValueOf(m.table.Fields(v)[idx]).Elem().Interface()
		return field == value
	})
	items := make([]*T, 0, len(matches))
	for _, v := range matches {
		items = append(items, clone(v))
	}
	return items, nil
}
