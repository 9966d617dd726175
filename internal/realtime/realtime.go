// Package realtime рассылает снимки счётчиков реакций подписчикам поста.
package realtime

import (
	"context"
	"errors"

	"github.com/pribylovaa/thinkedin/internal/models"
)

// ErrClosed — шина закрыта, новые подписки и публикации не принимаются.
var ErrClosed = errors.New("realtime: bus closed")

// Handler получает очередной снимок счётчиков.
// Порядок между постами не гарантируется; внутри поста важен последний снимок.
type Handler func(models.ReactionSnapshot)

// Subscription — отменяемая подписка; Cancel идемпотентен.
type Subscription interface {
	Cancel()
}

// Bus — транспорт изменений счётчиков.
type Bus interface {
	Publish(ctx context.Context, snap models.ReactionSnapshot) error
	Subscribe(postID string, h Handler) (Subscription, error)
	Close() error
}

// cancelFunc адаптирует функцию к Subscription.
type cancelFunc func()

func (f cancelFunc) Cancel() { f() }
