// Package moderation проверяет новые посты и комментарии до сохранения.
//
// Валидаторы возвращают Verdict и ошибку. Ошибка означает «проверить не удалось»:
// решение пропустить содержимое (fail-open) принимает вызывающий.
package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reason — причина отклонения.
type Reason string

const (
	ReasonProfanity Reason = "profanity"
	ReasonDuplicate Reason = "duplicate"
	ReasonLength    Reason = "length"
	ReasonSpam      Reason = "spam"
	ReasonRemote    Reason = "remote"
)

var verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "thinkedin_moderation_verdicts_total",
	Help: "The total number of moderation verdicts",
}, []string{"kind", "verdict"})

// Content — проверяемая запись.
type Content struct {
	Kind      models.RecordKind
	Text      string
	Pseudonym string
}

// Verdict — результат проверки.
type Verdict struct {
	Allowed bool
	Reason  Reason
	Detail  string
}

// Allow — вердикт «пропустить».
var Allow = Verdict{Allowed: true}

// Reject собирает отказ с причиной.
func Reject(reason Reason, detail string) Verdict {
	return Verdict{Allowed: false, Reason: reason, Detail: detail}
}

// ContentValidator — подключаемая проверка содержимого.
type ContentValidator interface {
	Validate(ctx context.Context, c Content) (Verdict, error)
}

// ValidatorFunc адаптирует функцию к ContentValidator.
type ValidatorFunc func(ctx context.Context, c Content) (Verdict, error)

func (f ValidatorFunc) Validate(ctx context.Context, c Content) (Verdict, error) { return f(ctx, c) }

// DuplicateCounter считает недавние записи с тем же текстом.
type DuplicateCounter interface {
	CountRecent(ctx context.Context, kind models.RecordKind, content string, since time.Time) (int64, error)
}

// Chain запускает валидаторы по очереди.
//   - первый отказ прерывает цепочку;
//   - ошибка валидатора не прерывает цепочку, ошибки копятся и возвращаются вместе с Allow.
type Chain []ContentValidator

func (ch Chain) Validate(ctx context.Context, c Content) (Verdict, error) {
	var errs []error
	for _, v := range ch {
		if v == nil {
			continue
		}

		verdict, err := v.Validate(ctx, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !verdict.Allowed {
			verdicts.WithLabelValues(string(c.Kind), string(verdict.Reason)).Inc()
			return verdict, nil
		}
	}

	label := "allowed"
	if len(errs) > 0 {
		label = "unchecked"
	}
	verdicts.WithLabelValues(string(c.Kind), label).Inc()

	return Allow, errors.Join(errs...)
}
