package service

import (
	"context"
	"fmt"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
)

// CastVote записывает голос псевдонима устройства и возвращает итоги.
// Повторный голос перезаписывает предыдущий.
// Ошибки: ErrValidation, ErrStoreUnavailable.
func (s *Service) CastVote(ctx context.Context, actor Actor, choice models.VoteChoice) (*models.VoteTally, error) {
	const op = "service/votes/CastVote"

	lg := log.From(ctx).With("op", op, "choice", string(choice))

	if !choice.Valid() {
		lg.Warn("invalid_choice")
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	pseudonym, err := s.ids.Pseudonym(ctx, actor.DeviceID)
	if err != nil {
		lg.Error("pseudonym_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	if err := s.storage.SetVote(ctx, models.Vote{Pseudonym: pseudonym, Choice: choice, UpdatedAt: s.now().UTC()}); err != nil {
		lg.Error("storage_set_vote_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	return s.VoteTally(ctx)
}

// VoteTally — итоги опроса. Сбой хранилища -> нулевые итоги.
func (s *Service) VoteTally(ctx context.Context) (*models.VoteTally, error) {
	const op = "service/votes/VoteTally"

	tally, err := s.storage.VoteTally(ctx)
	if err != nil {
		log.From(ctx).Error("storage_vote_tally_failed", "op", op, "err", err)
		return &models.VoteTally{}, nil
	}
	return tally, nil
}
