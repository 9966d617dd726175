package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pribylovaa/thinkedin/internal/models"
)

// NATS — шина поверх NATS core pub/sub: снимки видят все инстансы сервиса.
// Subject: <prefix>.<postID>.
type NATS struct {
	conn   *nats.Conn
	prefix string
	log    *slog.Logger
}

// Connect подключается к NATS и возвращает шину.
func Connect(url, prefix string, log *slog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("thinkedin"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return NewNATS(nc, prefix, log), nil
}

// NewNATS оборачивает готовое соединение.
func NewNATS(nc *nats.Conn, prefix string, log *slog.Logger) *NATS {
	if log == nil {
		log = slog.Default()
	}

	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = "thinkedin.reactions"
	}

	return &NATS{conn: nc, prefix: prefix, log: log}
}

func (n *NATS) subject(postID string) string {
	return n.prefix + "." + postID
}

// Publish отправляет снимок в subject поста.
func (n *NATS) Publish(_ context.Context, snap models.ReactionSnapshot) error {
	const op = "realtime/nats/Publish"

	if n.conn.IsClosed() {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	if err := n.conn.Publish(n.subject(snap.PostID), data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe подписывается на subject поста. Битые сообщения пропускаются с логом.
func (n *NATS) Subscribe(postID string, h Handler) (Subscription, error) {
	const op = "realtime/nats/Subscribe"

	if n.conn.IsClosed() {
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}

	sub, err := n.conn.Subscribe(n.subject(postID), func(msg *nats.Msg) {
		var snap models.ReactionSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			n.log.Warn("realtime_decode_failed",
				slog.String("subject", msg.Subject),
				slog.String("err", err.Error()),
			)
			return
		}
		h(snap)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var once sync.Once
	return cancelFunc(func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil && !n.conn.IsClosed() {
				n.log.Warn("realtime_unsubscribe_failed",
					slog.String("subject", sub.Subject),
					slog.String("err", err.Error()),
				)
			}
		})
	}), nil
}

// Flush дожидается, пока сервер подтвердит отправленные данные.
func (n *NATS) Flush() error {
	return n.conn.Flush()
}

// Close дренирует подписки и закрывает соединение.
func (n *NATS) Close() error {
	if n.conn.IsClosed() {
		return nil
	}
	return n.conn.Drain()
}
