package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Timeout ограничивает время обработки запроса величиной d.
//   - d <= 0 — no-op;
//   - websocket-апгрейд не ограничивается: соединение живёт дольше запроса;
//   - более ранний дедлайн родителя сохраняется (WithTimeout берёт минимум).
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
