// Package log переносит request-scoped *slog.Logger через context.
//
// Логгер в контексте обогащается по мере прохождения запроса:
// request_id (middleware.Logging), device (middleware.Device), op (сервис).
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста, иначе slog.Default().
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// With дописывает атрибуты к логгеру контекста и возвращает новый контекст.
func With(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	return Into(ctx, From(ctx).With(args...))
}

// Detached — контекст без отмены и дедлайна родителя, с тем же логгером.
// Нужен фоновой синхронизации реакций, которая переживает HTTP-запрос.
func Detached(ctx context.Context) context.Context {
	return Into(context.Background(), From(ctx))
}
