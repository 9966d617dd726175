package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/pkg/log"
)

// Recommendation — ответ чат-бота: пояснение модели и выбранные посты.
type Recommendation struct {
	Text  string
	Posts []models.Post
}

// Recommend подбирает среди свежих постов подходящие под запрос пользователя.
// Модели уходят Chatbot.Posts последних постов; сбой чтения ленты не мешает ответу.
// Ошибки: ErrValidation, ErrRecommendUnavailable.
func (s *Service) Recommend(ctx context.Context, prompt string) (*Recommendation, error) {
	const op = "service/recommend/Recommend"

	prompt = strings.TrimSpace(prompt)
	lg := log.From(ctx).With("op", op)

	if prompt == "" || utf8.RuneCountInString(prompt) > s.cfg.Chatbot.PromptMaxLen {
		lg.Warn("invalid_prompt")
		return nil, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	if s.recommend == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrRecommendUnavailable)
	}

	posts, err := s.storage.ListPosts(ctx, s.cfg.Chatbot.Posts)
	if err != nil {
		lg.Error("storage_list_posts_failed", "err", err)
		posts = nil
	}

	reply, err := s.recommend.Recommend(ctx, prompt, posts)
	if err != nil {
		lg.Error("recommend_failed", "posts", len(posts), "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrRecommendUnavailable)
	}

	picked := make([]models.Post, 0, len(reply.Picks))
	for _, i := range reply.Picks {
		if i >= 0 && i < len(posts) {
			picked = append(picked, posts[i])
		}
	}

	lg.Info("recommended", "posts", len(posts), "picked", len(picked))
	return &Recommendation{Text: reply.Text, Posts: picked}, nil
}
