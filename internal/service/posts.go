package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/moderation"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/pkg/redact"
	"github.com/pribylovaa/thinkedin/internal/storage"
)

// CreatePostInput — публикация поста.
//   - Content: 1..Limits.PostMaxLen символов после очистки;
//   - Kind: пусто -> thought;
//   - Tags: нормализуются, пустой набор -> #general.
type CreatePostInput struct {
	Content string
	Tags    []string
	Kind    models.PostKind
}

// CreatePost — бизнес-операция публикации.
//
// Порядок: валидация -> псевдоним устройства -> модерация -> rate limit -> запись.
// Окно rate limit занимает только пост, дошедший до записи; сбой записи окно освобождает.
// Ошибки: ErrValidation, ErrRateLimited, ErrRejected, ErrStoreUnavailable.
func (s *Service) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	const op = "service/posts/CreatePost"

	lg := log.From(ctx).With("op", op, "device", redact.DeviceID(actor.DeviceID))

	content, ok := sanitizeContent(in.Content, s.cfg.Limits.PostMaxLen)
	if !ok {
		lg.Warn("invalid_content")
		return nil, fmt.Errorf("%s: content: %w", op, ErrValidation)
	}

	kind := in.Kind
	if kind == "" {
		kind = models.KindThought
	}
	if !kind.Valid() {
		lg.Warn("invalid_kind", "kind", string(kind))
		return nil, fmt.Errorf("%s: kind: %w", op, ErrValidation)
	}

	tags, ok := normalizeTags(in.Tags, s.cfg.Limits.MaxTags, s.cfg.Limits.TagMaxLen)
	if !ok {
		lg.Warn("invalid_tags", "tags", len(in.Tags))
		return nil, fmt.Errorf("%s: tags: %w", op, ErrValidation)
	}

	pseudonym, err := s.ids.Pseudonym(ctx, actor.DeviceID)
	if err != nil {
		lg.Error("pseudonym_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	if err := s.moderate(ctx, models.RecordPost, content, pseudonym); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.allowPost(ctx, actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post, err := s.storage.CreatePost(ctx, models.Post{
		Content:   content,
		Pseudonym: pseudonym,
		OwnerID:   actor.AccountID,
		Tags:      tags,
		Kind:      kind,
	})
	if err != nil {
		lg.Error("storage_create_post_failed", "err", err)
		s.releasePost(ctx, actor)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	s.reactions.Seed(*post)
	lg.Info("post_created", "post_id", post.ID, "kind", string(post.Kind))

	return post, nil
}

// ListPosts — лента, новые сверху. Сбой хранилища -> пустая лента.
func (s *Service) ListPosts(ctx context.Context, limit int) ([]models.Post, error) {
	const op = "service/posts/ListPosts"

	posts, err := s.storage.ListPosts(ctx, limit)
	if err != nil {
		log.From(ctx).Error("storage_list_posts_failed", "op", op, "err", err)
		return []models.Post{}, nil
	}

	s.reactions.Seed(posts...)
	return posts, nil
}

// SearchPosts — поиск по содержимому и тегам. Пустой запрос эквивалентен ленте.
// Ошибки: ErrValidation (слишком длинный запрос).
func (s *Service) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	const op = "service/posts/SearchPosts"

	query = strings.TrimSpace(query)
	if max := s.cfg.Limits.SearchQueryMax; max > 0 && utf8.RuneCountInString(query) > max {
		log.From(ctx).Warn("invalid_query", "op", op)
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	posts, err := s.storage.SearchPosts(ctx, query, limit)
	if err != nil {
		log.From(ctx).Error("storage_search_posts_failed", "op", op, "err", err)
		return []models.Post{}, nil
	}

	s.reactions.Seed(posts...)
	return posts, nil
}

// GetPost возвращает пост по ID.
// Ошибки: ErrValidation (пустой id), ErrNotFound, ErrStoreUnavailable.
func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	const op = "service/posts/GetPost"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "post_id", id)

	if id == "" {
		lg.Warn("empty_id")
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("post_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		lg.Error("storage_post_by_id_failed", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}

	s.reactions.Seed(*post)
	return post, nil
}

// ListMyPosts — посты аккаунта (дашборд). Ошибки: ErrUnauthenticated.
func (s *Service) ListMyPosts(ctx context.Context, actor Actor, limit int) ([]models.Post, error) {
	const op = "service/posts/ListMyPosts"

	if actor.AccountID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	posts, err := s.storage.ListPostsByOwner(ctx, actor.AccountID, limit)
	if err != nil {
		log.From(ctx).Error("storage_list_posts_by_owner_failed", "op", op, "err", err)
		return []models.Post{}, nil
	}

	return posts, nil
}

// allowPost — не больше одного поста с устройства за RateLimit.PostWindow.
// Сбой лимитера пропускает публикацию.
func (s *Service) allowPost(ctx context.Context, actor Actor) error {
	window := s.cfg.RateLimit.PostWindow
	if window <= 0 || actor.DeviceID == "" {
		return nil
	}

	ok, err := s.limiter.Allow(ctx, postLimitKey(actor), window)
	if err != nil {
		log.From(ctx).Warn("rate_limit_unavailable", "err", err)
		return nil
	}

	if !ok {
		log.From(ctx).Warn("rate_limited", "device", redact.DeviceID(actor.DeviceID))
		return ErrRateLimited
	}

	return nil
}

// releasePost возвращает окно, занятое постом, который не удалось записать.
func (s *Service) releasePost(ctx context.Context, actor Actor) {
	if s.cfg.RateLimit.PostWindow <= 0 || actor.DeviceID == "" {
		return
	}
	if err := s.limiter.Release(ctx, postLimitKey(actor)); err != nil {
		log.From(ctx).Warn("rate_limit_release_failed", "err", err)
	}
}

func postLimitKey(actor Actor) string { return "post:" + actor.DeviceID }

// moderate запускает валидатор. Ошибка проверки пропускает содержимое (fail-open).
func (s *Service) moderate(ctx context.Context, kind models.RecordKind, content, pseudonym string) error {
	verdict, err := s.validator.Validate(ctx, moderation.Content{
		Kind:      kind,
		Text:      content,
		Pseudonym: pseudonym,
	})
	if err != nil {
		log.From(ctx).Warn("moderation_failed_open", "kind", string(kind), "err", err)
	}

	if !verdict.Allowed && err == nil {
		log.From(ctx).Warn("content_rejected",
			"kind", string(kind),
			"reason", string(verdict.Reason),
		)
		return &RejectedError{Reason: verdict.Reason, Detail: verdict.Detail}
	}

	return nil
}
