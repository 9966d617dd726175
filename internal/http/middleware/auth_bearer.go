package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/auth"
	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
	logctx "github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/pkg/redact"
	"github.com/pribylovaa/thinkedin/internal/service"
)

// TokenVerifier — проверка access-токена (auth.Verifier).
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт аккаунт в контекст (auth.WithAccount).
//   - заголовка нет — запрос анонимный и проходит дальше;
//   - токен не прошёл проверку — 401 без вызова обработчика.
func AuthBearer(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || v == nil {
				next.ServeHTTP(w, r)
				return
			}

			const prefix = "Bearer "
			token := ""
			if strings.HasPrefix(header, prefix) {
				token = strings.TrimSpace(header[len(prefix):])
			}

			if token == "" {
				logctx.From(r.Context()).Warn("malformed_authorization")
				apierrors.WriteError(w, r, fmt.Errorf("auth: %w", service.ErrUnauthenticated))
				return
			}

			account, err := v.Verify(token)
			if err != nil {
				logctx.From(r.Context()).Warn("invalid_token", "token", redact.Token(), "err", err)
				apierrors.WriteError(w, r, fmt.Errorf("auth: %w", service.ErrUnauthenticated))
				return
			}

			ctx := logctx.With(r.Context(), "account_id", account.String())
			next.ServeHTTP(w, r.WithContext(auth.WithAccount(ctx, account)))
		})
	}
}
