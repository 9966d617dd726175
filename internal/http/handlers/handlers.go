package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/pribylovaa/thinkedin/internal/auth"
	"github.com/pribylovaa/thinkedin/internal/http/middleware"
	"github.com/pribylovaa/thinkedin/internal/service"
)

// Handlers агрегирует зависимости (бизнес-логика + websocket-апгрейдер).
type Handlers struct {
	Service  *service.Service
	upgrader websocket.Upgrader
}

func New(s *service.Service) *Handlers {
	return &Handlers{
		Service: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Фронт раздаётся с другого origin; аутентификации на сокете нет, только чтение счётчиков.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// actorFrom собирает Actor из контекста запроса (Device + AuthBearer).
func actorFrom(r *http.Request) service.Actor {
	return service.Actor{
		DeviceID:  middleware.DeviceFrom(r.Context()),
		AccountID: auth.AccountFrom(r.Context()),
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// errInvalidArgument — локальная ошибка парсинга -> ErrValidation.
func errInvalidArgument(what string) error {
	return fmt.Errorf("http: %s: %w", what, service.ErrValidation)
}

// parseLimit читает ?limit=; 0 или отсутствие — лимит по умолчанию.
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errInvalidArgument("limit")
	}
	return n, nil
}
