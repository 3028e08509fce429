// Package aichat answers health questions by combining the caller's latest
// vitals with the question and forwarding it to a completion service.
package aichat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clim-up/wikaya/internal/domain/vitals"
	"github.com/clim-up/wikaya/internal/platform/apperr"
)

var ErrEmptyPrompt = errors.New("Prompt is required")

// VitalsSource yields the caller's most recent snapshot.
type VitalsSource interface {
	Latest(ctx context.Context, owner uuid.UUID) (*vitals.Snapshot, error)
}

type Service struct {
	vitals VitalsSource
	llm    Completer
}

func NewService(v VitalsSource, llm Completer) *Service {
	return &Service{vitals: v, llm: llm}
}

// Ask never retries: an upstream failure is returned as an upstream error
// carrying the upstream's message.
func (s *Service) Ask(ctx context.Context, owner uuid.UUID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyPrompt
	}
	snap, err := s.vitals.Latest(ctx, owner)
	if err != nil {
		return "", err
	}
	answer, err := s.llm.Complete(ctx, BuildPrompt(snap, question))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("ai completion failed")
		return "", apperr.Upstream("completion failed", err)
	}
	return answer, nil
}
