package messaging

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores conversations and messages. Conversation lookups are
// scoped to a participant: a conversation the participant is not part of is
// reported as not found.
type Repository interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, participant, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, participant uuid.UUID, limit, offset int) ([]*Conversation, int, error)

	// AddMessage assigns the message's Timestamp and Seq.
	AddMessage(ctx context.Context, m *Message) error
	// ListMessages returns every message when limit is not positive.
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error)
}

// Accounts answers whether an account exists.
type Accounts interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
