package record

import (
	"context"

	"github.com/google/uuid"
)

// Validator checks a record before it is written. It receives the request
// context so that checks needing the store (a referenced row in the caller's
// scope, say) can run.
type Validator[T any] func(ctx context.Context, v *T) error

type Service[T any] struct {
	repo     Repository[T]
	base     func(*T) *Base
	validate Validator[T]
}

func NewService[T any](repo Repository[T], base func(*T) *Base, validate Validator[T]) *Service[T] {
	return &Service[T]{repo: repo, base: base, validate: validate}
}

// Create stamps the owner and writes v. Whatever id or owner the caller put on
// v is discarded.
func (s *Service[T]) Create(ctx context.Context, owner uuid.UUID, v *T) error {
	b := s.base(v)
	b.ID = uuid.Nil
	b.UserID = owner
	if err := s.check(ctx, v); err != nil {
		return err
	}
	return s.repo.Create(ctx, v)
}

func (s *Service[T]) Get(ctx context.Context, owner, id uuid.UUID) (*T, error) {
	return s.repo.Get(ctx, owner, id)
}

func (s *Service[T]) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*T, int, error) {
	return s.repo.List(ctx, owner, limit, offset)
}

func (s *Service[T]) ListBy(ctx context.Context, owner uuid.UUID, column string, value any) ([]*T, error) {
	return s.repo.ListBy(ctx, owner, column, value)
}

// Patch loads the record within the owner's scope, lets apply change it, puts
// back the identity columns apply may have touched, validates and saves.
func (s *Service[T]) Patch(ctx context.Context, owner, id uuid.UUID, apply func(*T) error) (*T, error) {
	v, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	keep := *s.base(v)
	if err := apply(v); err != nil {
		return nil, err
	}
	*s.base(v) = keep

	if err := s.check(ctx, v); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service[T]) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.repo.Delete(ctx, owner, id)
}

func (s *Service[T]) check(ctx context.Context, v *T) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(ctx, v)
}
