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
	"github.com/pribylovaa/thinkedin/internal/thread"
)

// CreateCommentInput — комментарий к посту или ответ на комментарий.
// ParentID пуст у корневых комментариев; глубина не ограничивается.
type CreateCommentInput struct {
	PostID   string
	ParentID string
	Content  string
}

// Thread — дерево комментариев поста.
//   - Total — все узлы, включая tombstone;
//   - Policy решает, где UI перестаёт предлагать ответ.
type Thread struct {
	PostID string
	Roots  []*thread.Node
	Total  int
	Policy thread.Policy
}

// CreateComment — бизнес-операция комментирования.
//
// Ошибки: ErrValidation, ErrNotFound (нет поста или родителя), ErrRejected, ErrStoreUnavailable.
func (s *Service) CreateComment(ctx context.Context, actor Actor, in CreateCommentInput) (*models.Comment, error) {
	const op = "service/comments/CreateComment"

	in.PostID = strings.TrimSpace(in.PostID)
	in.ParentID = strings.TrimSpace(in.ParentID)

	lg := log.From(ctx).With(
		"op", op,
		"post_id", in.PostID,
		"parent_id", in.ParentID,
	)

	if in.PostID == "" {
		lg.Warn("empty_post_id")
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	content, ok := sanitizeContent(in.Content, s.cfg.Limits.CommentMaxLen)
	if !ok {
		lg.Warn("invalid_content")
		return nil, fmt.Errorf("%s: content: %w", op, ErrValidation)
	}

	pseudonym, err := s.ids.Pseudonym(ctx, actor.DeviceID)
	if err != nil {
		lg.Error("pseudonym_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	if err := s.moderate(ctx, models.RecordComment, content, pseudonym); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comm, err := s.storage.CreateComment(ctx, models.Comment{
		PostID:    in.PostID,
		ParentID:  in.ParentID,
		Content:   content,
		Pseudonym: pseudonym,
		OwnerID:   actor.AccountID,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("post_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrParentNotFound):
			lg.Warn("parent_not_found")
			return nil, fmt.Errorf("%s: parent: %w", op, ErrNotFound)
		default:
			lg.Error("storage_create_comment_failed", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
		}
	}

	lg.Info("comment_created", "comment_id", comm.ID)
	return comm, nil
}

// ListComments — плоский список комментариев поста (created_at ASC).
// Сбой хранилища или неизвестный пост -> пустой список.
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	const op = "service/comments/ListComments"

	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	comments, err := s.storage.ListComments(ctx, postID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Error("storage_list_comments_failed", "op", op, "post_id", postID, "err", err)
		}
		return []models.Comment{}, nil
	}

	return comments, nil
}

// Thread собирает дерево комментариев поста.
func (s *Service) Thread(ctx context.Context, postID string) (*Thread, error) {
	comments, err := s.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	roots := thread.Build(comments)
	return &Thread{
		PostID: strings.TrimSpace(postID),
		Roots:  roots,
		Total:  thread.CountAll(roots),
		Policy: thread.Policy{MaxDepth: s.cfg.Limits.MaxDepth},
	}, nil
}

// ListMyComments — комментарии аккаунта (дашборд). Ошибки: ErrUnauthenticated.
func (s *Service) ListMyComments(ctx context.Context, actor Actor, limit int) ([]models.Comment, error) {
	const op = "service/comments/ListMyComments"

	if actor.AccountID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	comments, err := s.storage.ListCommentsByOwner(ctx, actor.AccountID, limit)
	if err != nil {
		log.From(ctx).Error("storage_list_comments_by_owner_failed", "op", op, "err", err)
		return []models.Comment{}, nil
	}

	return comments, nil
}
