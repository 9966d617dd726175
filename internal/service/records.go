package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/storage"
)

// EditRecord заменяет содержимое поста или комментария владельца.
//
// Проверки до записи: аутентификация, существование, владелец, содержимое.
// Хранилище повторяет проверку владельца атомарно с обновлением (last-write-wins).
// Ошибки: ErrValidation, ErrUnauthenticated, ErrUnauthorized, ErrNotFound, ErrStoreUnavailable.
func (s *Service) EditRecord(ctx context.Context, actor Actor, kind models.RecordKind, id, content string) error {
	const op = "service/records/EditRecord"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "kind", string(kind), "id", id)

	if !kind.Valid() || id == "" {
		lg.Warn("invalid_record")
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	if actor.AccountID == uuid.Nil {
		lg.Warn("unauthenticated")
		return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, ErrUnauthenticated)
	}

	// Чужая запись отклоняется раньше проверки содержимого.
	if err := s.checkOwner(ctx, kind, id, actor.AccountID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	content, ok := sanitizeContent(content, s.maxLen(kind))
	if !ok {
		lg.Warn("invalid_content")
		return fmt.Errorf("%s: content: %w", op, ErrValidation)
	}

	if err := s.storage.EditRecord(ctx, kind, id, content, actor.AccountID); err != nil {
		return fmt.Errorf("%s: %w", op, s.mutationError(ctx, err))
	}

	lg.Info("record_edited")
	return nil
}

// DeleteRecord удаляет запись владельца: пост — вместе с комментариями, комментарий — в tombstone.
// Ошибки: ErrValidation, ErrUnauthenticated, ErrUnauthorized, ErrNotFound, ErrStoreUnavailable.
func (s *Service) DeleteRecord(ctx context.Context, actor Actor, kind models.RecordKind, id string) error {
	const op = "service/records/DeleteRecord"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "kind", string(kind), "id", id)

	if !kind.Valid() || id == "" {
		lg.Warn("invalid_record")
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	if actor.AccountID == uuid.Nil {
		lg.Warn("unauthenticated")
		return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, ErrUnauthenticated)
	}

	if err := s.checkOwner(ctx, kind, id, actor.AccountID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteRecord(ctx, kind, id, actor.AccountID); err != nil {
		return fmt.Errorf("%s: %w", op, s.mutationError(ctx, err))
	}

	if kind == models.RecordPost {
		s.reactions.Forget(id)
	}

	lg.Info("record_deleted")
	return nil
}

// checkOwner читает запись и сверяет владельца.
func (s *Service) checkOwner(ctx context.Context, kind models.RecordKind, id string, account uuid.UUID) error {
	lg := log.From(ctx)

	var (
		owned bool
		err   error
	)

	switch kind {
	case models.RecordPost:
		var p *models.Post
		p, err = s.storage.PostByID(ctx, id)
		if err == nil {
			owned = p.OwnedBy(account)
		}
	case models.RecordComment:
		var c *models.Comment
		c, err = s.storage.CommentByID(ctx, id)
		if err == nil {
			if c.IsDeleted {
				lg.Warn("record_deleted_already", "id", id)
				return ErrNotFound
			}
			owned = c.OwnedBy(account)
		}
	}

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("record_not_found", "id", id)
			return ErrNotFound
		}
		lg.Error("storage_read_record_failed", "id", id, "err", err)
		return ErrStoreUnavailable
	}

	if !owned {
		lg.Warn("ownership_mismatch", "id", id, "account_id", account.String())
		return ErrUnauthorized
	}

	return nil
}

// mutationError переводит ошибки Edit/Delete хранилища в сервисные.
func (s *Service) mutationError(ctx context.Context, err error) error {
	lg := log.From(ctx)

	switch {
	case errors.Is(err, storage.ErrNotFound):
		lg.Warn("record_vanished")
		return ErrNotFound
	case errors.Is(err, storage.ErrForbidden):
		lg.Warn("ownership_mismatch")
		return ErrUnauthorized
	case errors.Is(err, storage.ErrInvalidArgument):
		lg.Warn("invalid_record")
		return ErrValidation
	default:
		lg.Error("storage_mutation_failed", "err", err)
		return ErrStoreUnavailable
	}
}

func (s *Service) maxLen(kind models.RecordKind) int {
	if kind == models.RecordComment {
		return s.cfg.Limits.CommentMaxLen
	}
	return s.cfg.Limits.PostMaxLen
}
