package realtime

import (
	"context"
	"sync"

	"github.com/pribylovaa/thinkedin/internal/models"
)

// Hub — in-process шина: подходит для одного инстанса и для тестов.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
	closed bool
}

// NewHub создаёт пустой Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]Handler)}
}

// Publish синхронно вызывает обработчики подписчиков поста.
// Обработчики вызываются вне блокировки, поэтому могут отменять подписки.
func (h *Hub) Publish(_ context.Context, snap models.ReactionSnapshot) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}

	handlers := make([]Handler, 0, len(h.subs[snap.PostID]))
	for _, fn := range h.subs[snap.PostID] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(snap)
	}

	return nil
}

// Subscribe регистрирует обработчик для поста.
func (h *Hub) Subscribe(postID string, fn Handler) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	h.nextID++
	id := h.nextID

	if h.subs[postID] == nil {
		h.subs[postID] = make(map[uint64]Handler)
	}
	h.subs[postID][id] = fn

	var once sync.Once
	return cancelFunc(func() {
		once.Do(func() { h.remove(postID, id) })
	}), nil
}

// Subscribers — число активных подписок поста.
func (h *Hub) Subscribers(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[postID])
}

// Close снимает все подписки.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.subs = make(map[string]map[uint64]Handler)
	return nil
}

func (h *Hub) remove(postID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[postID], id)
	if len(h.subs[postID]) == 0 {
		delete(h.subs, postID)
	}
}
