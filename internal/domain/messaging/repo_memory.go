package messaging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

// MemoryRepository is an in-process Repository used by tests. It enforces
// the same pair uniqueness as the conversations table.
type MemoryRepository struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*Conversation
	convSeq       map[uuid.UUID]int64
	messages      map[uuid.UUID][]*Message
	seq           int64
	now           func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[uuid.UUID]*Conversation),
		convSeq:       make(map[uuid.UUID]int64),
		messages:      make(map[uuid.UUID][]*Message),
		now:           time.Now,
	}
}

func (m *MemoryRepository) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryRepository) CreateConversation(_ context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.conversations {
		if existing.PatientID == c.PatientID && existing.DoctorID == c.DoctorID {
			return apperr.Conflict("conversation between these participants already exists", nil)
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = m.now().UTC()
	m.seq++
	cp := *c
	m.conversations[c.ID] = &cp
	m.convSeq[c.ID] = m.seq
	return nil
}

func (m *MemoryRepository) GetConversation(_ context.Context, participant, id uuid.UUID) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok || !c.HasParticipant(participant) {
		return nil, apperr.NotFound(nil)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) ListConversations(_ context.Context, participant uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*Conversation
	for _, c := range m.conversations {
		if c.HasParticipant(participant) {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return m.convSeq[all[i].ID] > m.convSeq[all[j].ID] })
	total := len(all)
	return page(all, limit, offset), total, nil
}

func (m *MemoryRepository) AddMessage(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[msg.ConversationID]; !ok {
		return apperr.Invalid(apperr.NonFieldErrors, "referenced record does not exist")
	}
	m.seq++
	msg.ID = uuid.New()
	msg.Seq = m.seq
	msg.Timestamp = m.now().UTC()
	cp := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &cp)
	return nil
}

func (m *MemoryRepository) ListMessages(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*Message, 0, len(m.messages[conversationID]))
	for _, msg := range m.messages[conversationID] {
		cp := *msg
		all = append(all, &cp)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.Before(all[j].Timestamp)
		}
		return all[i].Seq < all[j].Seq
	})
	total := len(all)
	if limit <= 0 {
		limit = total
	}
	return page(all, limit, offset), total, nil
}

func page[T any](all []*T, limit, offset int) []*T {
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]*T{}, all[offset:end]...)
}
