package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clim-up/wikaya/internal/platform/apperr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Resolve returns the account for a token subject, creating it on first
// sight.
func (s *Service) Resolve(ctx context.Context, subject, email string) (*Account, error) {
	a := &Account{
		ID:         AccountID(subject),
		Subject:    subject,
		LastSeenAt: s.now().UTC(),
	}
	if email != "" {
		a.Email = &email
	}
	if err := s.repo.Upsert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes the account together with everything it owns.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
