package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
	"github.com/pribylovaa/thinkedin/internal/models"
	logctx "github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "thinkedin_live_subscribers",
	Help: "The number of open live reaction websockets",
})

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

func (h *Handlers) GetReactions(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Reactions(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reactionsFromService(st))
}

// ToggleReaction — POST /posts/{id}/reactions/{kind}.
// Ответ содержит оптимистичные счётчики: серверный инкремент идёт в фоне.
func (h *Handlers) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	kind := models.ReactionKind(chi.URLParam(r, "kind"))

	st, err := h.Service.ToggleReaction(r.Context(), actorFrom(r), chi.URLParam(r, "id"), kind)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reactionsFromService(st))
}

// LiveReactions — websocket со снимками счётчиков поста.
// Первое сообщение — текущее состояние, дальше — каждое изменение.
// Медленный клиент получает только последний снимок.
func (h *Handlers) LiveReactions(w http.ResponseWriter, r *http.Request) {
	const op = "http/handlers/LiveReactions"

	postID := chi.URLParam(r, "id")
	lg := logctx.From(r.Context()).With("op", op, "post_id", postID)

	// До апгрейда, чтобы 404/400 ушли обычным HTTP-ответом.
	st, err := h.Service.Reactions(r.Context(), actorFrom(r), postID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		lg.Warn("websocket_upgrade_failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates := make(chan models.ReactionSnapshot, 1)
	push := func(snap models.ReactionSnapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}

	sub, err := h.Service.Subscribe(ctx, st.PostID, push)
	if err != nil {
		lg.Error("subscribe_failed", "err", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(liveWriteWait))
		return
	}
	defer sub.Cancel()

	liveSubscribers.Inc()
	defer liveSubscribers.Dec()

	// Читатель нужен для control-фреймов и обнаружения закрытия.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(v)
	}

	if err := write(models.ReactionSnapshot{PostID: st.PostID, Reactions: st.Reactions, At: time.Now().UTC()}); err != nil {
		return
	}

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	lg.Debug("live_subscribed")
	for {
		select {
		case <-ctx.Done():
			lg.Debug("live_closed")
			return
		case snap := <-updates:
			if err := write(snap); err != nil {
				lg.Debug("live_write_failed", "err", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}
