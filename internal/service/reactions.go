package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/reactions"
	"github.com/pribylovaa/thinkedin/internal/storage"
)

// ReactionState — счётчики поста и реакции текущего устройства.
type ReactionState struct {
	PostID    string
	Reactions models.Reactions
	Mine      reactions.Flags
}

// ToggleReaction переключает реакцию устройства.
// Счётчики в ответе оптимистичные; серверный счётчик обновляется в фоне,
// и его сбой не влияет на результат.
// Ошибки: ErrValidation, ErrNotFound (пост ещё не встречался и не найден), ErrStoreUnavailable.
func (s *Service) ToggleReaction(ctx context.Context, actor Actor, postID string, kind models.ReactionKind) (*ReactionState, error) {
	const op = "service/reactions/ToggleReaction"

	postID = strings.TrimSpace(postID)
	lg := log.From(ctx).With("op", op, "post_id", postID, "kind", string(kind))

	if postID == "" || actor.DeviceID == "" || !kind.Valid() {
		lg.Warn("invalid_reaction")
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	if err := s.ensureShown(ctx, postID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.reactions.Toggle(ctx, actor.DeviceID, postID, kind)
	if err != nil {
		lg.Error("device_state_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	flags, err := s.reactions.Flags(ctx, actor.DeviceID, postID)
	if err != nil {
		lg.Warn("device_state_failed", "err", err)
		flags = reactions.Flags{kind: res.Reacted}
	}

	return &ReactionState{PostID: postID, Reactions: res.Reactions, Mine: flags}, nil
}

// Reactions возвращает отображаемые счётчики поста и флаги устройства.
// Счётчики перечитываются из хранилища: их могли изменить другие экземпляры.
// Неподтверждённые локальные изменения при этом не теряются.
func (s *Service) Reactions(ctx context.Context, actor Actor, postID string) (*ReactionState, error) {
	const op = "service/reactions/Reactions"

	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	version := s.reactions.Version(postID)

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	shown := s.reactions.Refresh(*post, version)

	flags := reactions.Flags{}
	if actor.DeviceID != "" {
		var err error
		if flags, err = s.reactions.Flags(ctx, actor.DeviceID, postID); err != nil {
			log.From(ctx).Warn("device_state_failed", "op", op, "err", err)
			flags = reactions.Flags{}
		}
	}

	return &ReactionState{PostID: postID, Reactions: shown, Mine: flags}, nil
}

// Subscribe подписывает onChange на изменения счётчиков поста.
// Каждый снимок также обновляет отображаемые счётчики. Cancel идемпотентен.
func (s *Service) Subscribe(ctx context.Context, postID string, onChange func(models.ReactionSnapshot)) (storage.Subscription, error) {
	const op = "service/reactions/Subscribe"

	postID = strings.TrimSpace(postID)
	if postID == "" || onChange == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	sub, err := s.storage.Subscribe(ctx, postID, func(snap models.ReactionSnapshot) {
		s.reactions.Apply(snap)
		onChange(snap)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		log.From(ctx).Error("storage_subscribe_failed", "op", op, "post_id", postID, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	return sub, nil
}

// ensureShown подгружает счётчики поста, если процесс их ещё не видел.
func (s *Service) ensureShown(ctx context.Context, postID string) error {
	if _, ok := s.reactions.Shown(postID); ok {
		return nil
	}

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return err
	}

	s.reactions.Seed(*post)
	return nil
}

func (s *Service) loadPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.storage.PostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Warn("post_not_found", "post_id", postID)
			return nil, ErrNotFound
		}
		log.From(ctx).Error("storage_post_by_id_failed", "post_id", postID, "err", err)
		return nil, ErrStoreUnavailable
	}
	return post, nil
}
