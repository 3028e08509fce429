package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/db"
)

type pgRepo struct {
	db record.Queryable
}

func NewPGRepository(q record.Queryable) Repository {
	return &pgRepo{db: q}
}

func (r *pgRepo) Upsert(ctx context.Context, a *Account) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, subject, email, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(EXCLUDED.email, users.email),
		    last_seen_at = EXCLUDED.last_seen_at
		RETURNING email, created_at, last_seen_at`,
		a.ID, a.Subject, a.Email, a.LastSeenAt,
	).Scan(&a.Email, &a.CreatedAt, &a.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert account: %w", db.Classify(err))
	}
	return nil
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `
		SELECT id, subject, email, created_at, last_seen_at
		FROM users WHERE id = $1`, id,
	).Scan(&a.ID, &a.Subject, &a.Email, &a.CreatedAt, &a.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", db.Classify(err))
	}
	return &a, nil
}

func (r *pgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", db.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(fmt.Errorf("delete account: no row"))
	}
	return nil
}
