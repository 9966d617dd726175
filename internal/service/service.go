// service содержит бизнес-логику Thinkedin: посты, комментарии, реакции, модерацию и псевдонимы.
package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/cache"
	"github.com/pribylovaa/thinkedin/internal/config"
	"github.com/pribylovaa/thinkedin/internal/devicestate"
	"github.com/pribylovaa/thinkedin/internal/identity"
	"github.com/pribylovaa/thinkedin/internal/moderation"
	"github.com/pribylovaa/thinkedin/internal/reactions"
	"github.com/pribylovaa/thinkedin/internal/recommend"
	"github.com/pribylovaa/thinkedin/internal/storage"
)

var (
	// ErrValidation — пустое/слишком длинное содержимое, неизвестный вид, битые теги.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated — операция требует аккаунт, а запрос анонимный.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized — запись принадлежит другому аккаунту (или никому).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound — запись отсутствует или исчезла между чтением и изменением.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable — сбой хранилища/сети.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRejected — содержимое отклонено модерацией.
	ErrRejected = errors.New("rejected by moderation")
	// ErrRateLimited — устройство публикует слишком часто.
	ErrRateLimited = errors.New("rate limited")
	// ErrRecommendUnavailable — подбор постов выключен или модель не ответила.
	ErrRecommendUnavailable = errors.New("recommendations unavailable")
)

// RejectedError — отказ модерации с причиной; errors.Is(err, ErrRejected) == true.
type RejectedError struct {
	Reason moderation.Reason
	Detail string
}

func (e *RejectedError) Error() string {
	return ErrRejected.Error() + ": " + string(e.Reason)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// Actor — кто выполняет операцию.
//   - DeviceID — устройство (псевдоним, флаги реакций, rate limit);
//   - AccountID — аккаунт из access-токена, uuid.Nil для анонимного запроса.
type Actor struct {
	DeviceID  string
	AccountID uuid.UUID
}

// Deps — подключаемые зависимости; nil-поля заменяются реализациями в памяти.
type Deps struct {
	Devices   devicestate.Provider
	Validator moderation.ContentValidator
	Limiter   cache.Limiter

	// Recommender — подбор постов; nil — подбор выключен.
	Recommender recommend.Recommender
}

// Service — описывает бизнес-логику Thinkedin.
type Service struct {
	storage   storage.Storage
	cfg       config.Config
	ids       *identity.Assigner
	validator moderation.ContentValidator
	limiter   cache.Limiter
	reactions *reactions.Reconciler
	recommend recommend.Recommender
	now       func() time.Time
}

// New создает новый экземпляр Service.
// Без Validator используется статический фильтр с подсчётом дубликатов через storage.
func New(storage storage.Storage, cfg config.Config, deps Deps) *Service {
	if deps.Devices == nil {
		deps.Devices = devicestate.NewMemory()
	}

	if deps.Validator == nil {
		deps.Validator = moderation.NewStatic(moderation.RulesFromConfig(cfg.Moderation), storage)
	}

	if deps.Limiter == nil {
		deps.Limiter = cache.NewMemoryLimiter()
	}

	return &Service{
		storage:   storage,
		cfg:       cfg,
		ids:       identity.NewAssigner(deps.Devices),
		validator: deps.Validator,
		limiter:   deps.Limiter,
		reactions: reactions.New(storage, deps.Devices, cfg.Reactions.SyncTimeout, cfg.Reactions.CacheSize),
		recommend: deps.Recommender,
		now:       time.Now,
	}
}

// Wait дожидается фоновых синхронизаций реакций (при остановке процесса).
func (s *Service) Wait() {
	s.reactions.Wait()
}
