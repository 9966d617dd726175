// errors стандартизирует ответы об ошибках HTTP-слоя thinkedin.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Источник истинности по маппингу: sentinel-ошибки internal/service.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/thinkedin/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// Reason — причина отказа модерации (только для code=rejected).
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - ErrUnauthenticated проверяется раньше ErrUnauthorized: анонимная
//     попытка изменить запись несёт обе ошибки и должна дать 401;
//   - неизвестная ошибка — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var rej *service.RejectedError
	if stderrors.As(err, &rej) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: APIError{Code: "rejected", Message: "content rejected", Reason: string(rej.Reason)},
		}
	}

	status, code, msg := baseFromService(err)
	return status, ErrorResponse{
		Error: APIError{Code: code, Message: msg},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromService — таблица sentinel -> HTTP/FE-код/сообщение:
//   - ErrValidation -> 400
//   - ErrUnauthenticated -> 401
//   - ErrUnauthorized -> 403
//   - ErrNotFound -> 404
//   - ErrRejected -> 422
//   - ErrRateLimited -> 429
//   - ErrRecommendUnavailable -> 503
//   - context.Canceled -> 499
//   - context.DeadlineExceeded -> 504
//   - ErrStoreUnavailable -> 503
func baseFromService(err error) (int, string, string) {
	switch {
	case stderrors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized", "not the owner of this record"
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, service.ErrRejected):
		return http.StatusUnprocessableEntity, "rejected", "content rejected"
	case stderrors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "too many posts, slow down"
	case stderrors.Is(err, service.ErrRecommendUnavailable):
		return http.StatusServiceUnavailable, "recommend_unavailable", "recommendations are unavailable"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case stderrors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}
