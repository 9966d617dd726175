package middleware

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// HeaderDeviceID — идентификатор устройства (браузера), который клиент хранит у себя.
const HeaderDeviceID = "X-Device-Id"

const maxDeviceIDLen = 128

type deviceKey struct{}

// Device читает X-Device-Id. Пустой или битый id заменяется новым uuid,
// который возвращается клиенту в ответе: клиент сохраняет его и присылает дальше.
func Device() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderDeviceID))
			if !validDeviceID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderDeviceID, id)

			ctx := context.WithValue(r.Context(), deviceKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DeviceFrom возвращает id устройства или "".
func DeviceFrom(ctx context.Context) string {
	id, _ := ctx.Value(deviceKey{}).(string)
	return id
}

func validDeviceID(id string) bool {
	if id == "" || len(id) > maxDeviceIDLen {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_')
	}) < 0
}
