// Package interceptors — серверные gRPC-интерсепторы thinkedin (recover, логирование, таймаут).
package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout ограничивает unary-вызов величиной d, как middleware.Timeout в HTTP.
// Более ранний дедлайн клиента сохраняется, более поздний урезается до d.
// d <= 0 — no-op. Стримы (health Watch) не ограничиваются.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	if d <= 0 {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(ctx, req)
		}
	}

	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}
