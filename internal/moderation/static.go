package moderation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pribylovaa/thinkedin/internal/config"
	"github.com/pribylovaa/thinkedin/internal/models"
)

// DefaultProfanity — стоп-слова; совпадение — подстрока без учёта регистра.
var DefaultProfanity = []string{
	"fuck", "shit", "bitch", "asshole", "bastard",
	"dick", "cunt", "slut", "whore", "motherfucker",
}

// DefaultSpam — шаблоны спама.
var DefaultSpam = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(buy now|free money|click here|limited offer|work from home)\b`),
	regexp.MustCompile(`(?i)(https?://\S+\s*){3,}`),
	regexp.MustCompile(`[!?]{5,}`),
	regexp.MustCompile(`(?i)\b(viagra|casino|crypto giveaway)\b`),
}

// Rules — параметры статического фильтра.
type Rules struct {
	PostMinLen            int
	PostMaxLen            int
	PostDuplicateLimit    int
	CommentDuplicateLimit int
	DuplicateWindow       time.Duration
	Profanity             []string
	Spam                  []*regexp.Regexp
}

// RulesFromConfig собирает правила из конфигурации со встроенными списками слов и шаблонов.
func RulesFromConfig(cfg config.ModerationConfig) Rules {
	return Rules{
		PostMinLen:            cfg.PostMinLen,
		PostMaxLen:            cfg.PostMaxLen,
		PostDuplicateLimit:    cfg.PostDuplicateLimit,
		CommentDuplicateLimit: cfg.CommentDuplicateLimit,
		DuplicateWindow:       cfg.DuplicateWindow,
		Profanity:             DefaultProfanity,
		Spam:                  DefaultSpam,
	}
}

// Static — фильтр по стоп-словам, длине, спам-шаблонам и дубликатам.
type Static struct {
	rules Rules
	dups  DuplicateCounter
	now   func() time.Time
}

// NewStatic создаёт фильтр. dups == nil отключает проверку дубликатов.
func NewStatic(rules Rules, dups DuplicateCounter) *Static {
	lowered := make([]string, 0, len(rules.Profanity))
	for _, w := range rules.Profanity {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lowered = append(lowered, w)
		}
	}
	rules.Profanity = lowered

	return &Static{rules: rules, dups: dups, now: time.Now}
}

// Validate проверяет правила от дешёвых к дорогим; обращение к хранилищу — последним.
func (s *Static) Validate(ctx context.Context, c Content) (Verdict, error) {
	text := strings.TrimSpace(c.Text)

	if c.Kind == models.RecordPost {
		n := utf8.RuneCountInString(text)
		if n < s.rules.PostMinLen || (s.rules.PostMaxLen > 0 && n > s.rules.PostMaxLen) {
			return Reject(ReasonLength, fmt.Sprintf("post length must be within %d..%d characters", s.rules.PostMinLen, s.rules.PostMaxLen)), nil
		}
	}

	lower := strings.ToLower(text)
	for _, w := range s.rules.Profanity {
		if strings.Contains(lower, w) {
			return Reject(ReasonProfanity, "content contains a blocked word"), nil
		}
	}

	for _, rx := range s.rules.Spam {
		if rx.MatchString(text) {
			return Reject(ReasonSpam, "content looks like spam"), nil
		}
	}

	limit := s.duplicateLimit(c.Kind)
	if s.dups == nil || limit <= 0 {
		return Allow, nil
	}

	n, err := s.dups.CountRecent(ctx, c.Kind, text, s.now().Add(-s.rules.DuplicateWindow))
	if err != nil {
		return Allow, fmt.Errorf("moderation: count duplicates: %w", err)
	}

	if n >= int64(limit) {
		return Reject(ReasonDuplicate, "the same text was posted too many times recently"), nil
	}

	return Allow, nil
}

func (s *Static) duplicateLimit(kind models.RecordKind) int {
	switch kind {
	case models.RecordPost:
		return s.rules.PostDuplicateLimit
	case models.RecordComment:
		return s.rules.CommentDuplicateLimit
	}
	return 0
}
