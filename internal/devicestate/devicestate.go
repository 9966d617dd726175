// Package devicestate — локальное key-value хранилище устройства.
// Здесь живут псевдоним, флаги реакций и признак закрытого онбординга.
// Данные привязаны к устройству, а не к аккаунту.
package devicestate

import (
	"context"
	"sync"
)

// Ключи, под которыми приложение хранит состояние устройства.
const (
	KeyPseudonym           = "thinkedin_shadow_identity"
	KeyOnboardingDismissed = "thinkedin_onboarding_dismissed"
	keyReactionsPrefix     = "thinkedin_reactions_"
)

// ReactionsKey — ключ флагов реакций устройства для поста.
func ReactionsKey(postID string) string {
	return keyReactionsPrefix + postID
}

// Store — хранилище одного устройства.
type Store interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Provider выдаёт Store конкретного устройства.
type Provider interface {
	ForDevice(deviceID string) Store
}

// Memory — in-memory Provider для одного процесса и тестов.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

// ForDevice возвращает Store устройства; пустой id — отдельное «безымянное» устройство.
func (m *Memory) ForDevice(deviceID string) Store {
	return memoryStore{m: m, device: deviceID}
}

type memoryStore struct {
	m      *Memory
	device string
}

func (s memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	v, ok := s.m.data[s.device][key]
	return v, ok, nil
}

func (s memoryStore) Set(_ context.Context, key, value string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	kv, ok := s.m.data[s.device]
	if !ok {
		kv = make(map[string]string)
		s.m.data[s.device] = kv
	}
	kv[key] = value
	return nil
}

func (s memoryStore) Delete(_ context.Context, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	delete(s.m.data[s.device], key)
	return nil
}
