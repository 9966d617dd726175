package cache

import (
	"context"
	"sync"
	"time"
)

// Limiter ограничивает частоту действий по ключу (обычно — устройство).
type Limiter interface {
	// Allow возвращает true, если действие разрешено, и занимает окно window.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release досрочно освобождает окно ключа.
	Release(ctx context.Context, key string) error
}

// MemoryLimiter — Limiter в памяти процесса, для запуска без Redis.
type MemoryLimiter struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryLimiter создаёт пустой лимитер.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{until: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Чистим протухшие окна, чтобы карта не росла.
	for k, t := range l.until {
		if !now.Before(t) {
			delete(l.until, k)
		}
	}

	if _, busy := l.until[key]; busy {
		return false, nil
	}

	l.until[key] = now.Add(window)
	return true, nil
}

func (l *MemoryLimiter) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.until, key)
	l.mu.Unlock()
	return nil
}
