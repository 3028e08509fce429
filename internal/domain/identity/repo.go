package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert creates the account or refreshes its email and last_seen_at.
	Upsert(ctx context.Context, a *Account) error
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	// Delete removes the account; owned data goes with it.
	Delete(ctx context.Context, id uuid.UUID) error
}
