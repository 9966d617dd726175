package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/pribylovaa/thinkedin/internal/errors"
	logctx "github.com/pribylovaa/thinkedin/internal/pkg/log"
)

var httpPanics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "thinkedin_http_panics_total",
	Help: "The total number of panics recovered in HTTP handlers",
})

// Recover ловит panic обработчика: пишет стек в лог, отвечает 500/internal.
// http.ErrAbortHandler пробрасывается дальше, net/http обрабатывает его сам.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				httpPanics.Inc()
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic_recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.WriteError(w, r, errors.New("panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
