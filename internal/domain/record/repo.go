package record

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the owner-scoped store for one record type. Every operation
// is confined to records whose owner is the given account; a record owned by
// someone else behaves exactly like a missing one.
type Repository[T any] interface {
	Create(ctx context.Context, v *T) error
	Get(ctx context.Context, owner, id uuid.UUID) (*T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, owner, id uuid.UUID) error
	List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*T, int, error)
	ListBy(ctx context.Context, owner uuid.UUID, column string, value any) ([]*T, error)
}
