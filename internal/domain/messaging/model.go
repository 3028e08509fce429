// Package messaging lets a user open conversations with care providers and
// exchange messages in them.
package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Conversation links the user who opened it (the patient) with the
// counterpart they named (the doctor). Either participant may read it.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient"`
	DoctorID  uuid.UUID `json:"doctor"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Conversation) HasParticipant(id uuid.UUID) bool {
	return id != uuid.Nil && (c.PatientID == id || c.DoctorID == id)
}

// Message is append-only. Messages are ordered by Timestamp and then Seq.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"-"`
	SenderID       uuid.UUID `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Seq            int64     `json:"-"`
}

// ConversationView is a conversation with its messages.
type ConversationView struct {
	*Conversation
	Messages []*Message `json:"messages"`
}
