package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/pkg/redact"
)

// Identity — анонимная личность устройства.
type Identity struct {
	Pseudonym           string
	OnboardingDismissed bool
	Authenticated       bool
}

// Identity возвращает (и при первом обращении создаёт) псевдоним устройства.
func (s *Service) Identity(ctx context.Context, actor Actor) (*Identity, error) {
	const op = "service/me/Identity"

	lg := log.From(ctx).With("op", op, "device", redact.DeviceID(actor.DeviceID))

	pseudonym, err := s.ids.Pseudonym(ctx, actor.DeviceID)
	if err != nil {
		lg.Error("pseudonym_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	dismissed, err := s.ids.OnboardingDismissed(ctx, actor.DeviceID)
	if err != nil {
		lg.Warn("onboarding_state_failed", "err", err)
	}

	return &Identity{
		Pseudonym:           pseudonym,
		OnboardingDismissed: dismissed,
		Authenticated:       actor.AccountID != uuid.Nil,
	}, nil
}

// DismissOnboarding запоминает, что устройство закрыло приветственный экран.
func (s *Service) DismissOnboarding(ctx context.Context, actor Actor) error {
	const op = "service/me/DismissOnboarding"

	if err := s.ids.DismissOnboarding(ctx, actor.DeviceID); err != nil {
		log.From(ctx).Error("onboarding_state_failed", "op", op, "err", err)
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	return nil
}

// Tags — предлагаемые теги для формы публикации.
func (s *Service) Tags() []string {
	return append([]string(nil), CuratedTags...)
}

// Kinds — допустимые виды постов.
func (s *Service) Kinds() []models.PostKind {
	return append([]models.PostKind(nil), models.PostKinds...)
}
