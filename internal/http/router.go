package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/thinkedin/internal/http/handlers"
	"github.com/pribylovaa/thinkedin/internal/http/middleware"
	logctx "github.com/pribylovaa/thinkedin/internal/pkg/log"
	"github.com/pribylovaa/thinkedin/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Verifier middleware.TokenVerifier
	// Ping — проверка хранилища для /healthz; nil — всегда ok.
	Ping func(ctx context.Context) error
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),
	)

	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/healthz", healthz(opts.Ping))
	root.Handle("/metrics", promhttp.Handler())

	h := handlers.New(svc)

	api := chi.NewRouter()
	api.Use(
		middleware.Device(),
		middleware.AuthBearer(opts.Verifier),
		middleware.Timeout(opts.Timeout),
	)
	registerRoutes(api, h)

	if opts.BasePath != "" {
		root.Mount(opts.BasePath, api)
		return root
	}

	root.Mount("/", api)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
// Timeout пропускает websocket-апгрейд, поэтому /live регистрируется вместе с остальными.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/tags", h.Tags)

	// posts
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/{id}", h.GetPost)
	r.Patch("/posts/{id}", h.EditPost)
	r.Delete("/posts/{id}", h.DeletePost)

	// comments
	r.Get("/posts/{id}/comments", h.Thread)
	r.Post("/posts/{id}/comments", h.CreateComment)
	r.Patch("/comments/{id}", h.EditComment)
	r.Delete("/comments/{id}", h.DeleteComment)

	// reactions
	r.Get("/posts/{id}/reactions", h.GetReactions)
	r.Post("/posts/{id}/reactions/{kind}", h.ToggleReaction)
	r.Get("/posts/{id}/live", h.LiveReactions)

	// me
	r.Get("/me", h.Me)
	r.Post("/me/onboarding/dismiss", h.DismissOnboarding)
	r.Get("/me/posts", h.MyPosts)
	r.Get("/me/comments", h.MyComments)

	// votes
	r.Get("/votes", h.VoteTally)
	r.Post("/votes", h.CastVote)

	r.Post("/chatbot", h.Recommend)
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := ping(ctx); err != nil {
				logctx.From(r.Context()).Warn("healthz_failed", "err", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
