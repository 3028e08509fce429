package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/db"
)

type pgRepo struct {
	db  record.Queryable
	now func() time.Time
}

func NewPGRepository(q record.Queryable) Repository {
	return &pgRepo{db: q, now: time.Now}
}

const convCols = `id, patient_id, doctor_id, created_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgRepo) CreateConversation(ctx context.Context, c *Conversation) error {
	c.ID = uuid.New()
	c.CreatedAt = r.now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO conversations (`+convCols+`)
		VALUES ($1, $2, $3, $4)`,
		c.ID, c.PatientID, c.DoctorID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", db.Classify(err))
	}
	return nil
}

func (r *pgRepo) GetConversation(ctx context.Context, participant, id uuid.UUID) (*Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx, `
		SELECT `+convCols+` FROM conversations
		WHERE id = $1 AND (patient_id = $2 OR doctor_id = $2)`, id, participant))
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", db.Classify(err))
	}
	return c, nil
}

func (r *pgRepo) ListConversations(ctx context.Context, participant uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversations WHERE patient_id = $1 OR doctor_id = $1`, participant).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", db.Classify(err))
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+convCols+` FROM conversations
		WHERE patient_id = $1 OR doctor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, participant, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", db.Classify(err))
	}
	defer rows.Close()

	items := []*Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *pgRepo) AddMessage(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING seq, timestamp`,
		m.ID, m.ConversationID, m.SenderID, m.Content).Scan(&m.Seq, &m.Timestamp)
	if err != nil {
		return fmt.Errorf("insert message: %w", db.Classify(err))
	}
	return nil
}

func (r *pgRepo) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", db.Classify(err))
	}

	// LIMIT NULL returns every row.
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, sender_id, content, timestamp, seq
		FROM messages WHERE conversation_id = $1
		ORDER BY timestamp ASC, seq ASC
		LIMIT $2 OFFSET $3`, conversationID, lim, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", db.Classify(err))
	}
	defer rows.Close()

	items := []*Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Timestamp, &m.Seq); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, &m)
	}
	return items, total, rows.Err()
}
