package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

type Service struct {
	repo     Repository
	accounts Accounts
}

func NewService(repo Repository, accounts Accounts) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// StartConversation opens a conversation in which caller is the patient and
// doctor the counterpart.
func (s *Service) StartConversation(ctx context.Context, caller, doctor uuid.UUID) (*Conversation, error) {
	if doctor == uuid.Nil {
		return nil, apperr.Invalid("doctor", "This field is required.")
	}
	if doctor == caller {
		return nil, apperr.Invalid("doctor", "You cannot start a conversation with yourself.")
	}
	ok, err := s.accounts.Exists(ctx, doctor)
	if err != nil {
		return nil, fmt.Errorf("look up doctor: %w", err)
	}
	if !ok {
		return nil, apperr.Invalid("doctor", fmt.Sprintf("Invalid pk %q - object does not exist.", doctor))
	}

	c := &Conversation{PatientID: caller, DoctorID: doctor}
	if err := s.repo.CreateConversation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListConversations(ctx context.Context, caller uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	return s.repo.ListConversations(ctx, caller, limit, offset)
}

// Conversation returns the conversation with all of its messages.
func (s *Service) Conversation(ctx context.Context, caller, id uuid.UUID) (*ConversationView, error) {
	c, err := s.repo.GetConversation(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	msgs, _, err := s.repo.ListMessages(ctx, c.ID, 0, 0)
	if err != nil {
		return nil, err
	}
	return &ConversationView{Conversation: c, Messages: msgs}, nil
}

func (s *Service) Messages(ctx context.Context, caller, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	if _, err := s.repo.GetConversation(ctx, caller, conversationID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// Send appends a message from caller, who must take part in the
// conversation.
func (s *Service) Send(ctx context.Context, caller, conversationID uuid.UUID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Invalid("content", "This field may not be blank.")
	}
	if _, err := s.repo.GetConversation(ctx, caller, conversationID); err != nil {
		return nil, err
	}
	m := &Message{ConversationID: conversationID, SenderID: caller, Content: content}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
