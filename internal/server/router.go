package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/id"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/server/handler"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/storage"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, service handler.ReviewService, store storage.Store, ids *id.Generator, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogFields)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		sessions := handler.NewSessionHandler(store, ids, log)
		reviews := handler.NewReviewHandler(service, store, log)
		chat := handler.NewChatHandler(service, log)

		r.Post("/sessions", sessions.Create)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/review", reviews.Review)
			r.Post("/chat", chat.Chat)
			r.Get("/messages", sessions.Messages)
		})
		r.Get("/reviews/{reviewID}", reviews.Get)
	})

	return r
}

// requestLogFields tags every log record of a request with its request id.
func requestLogFields(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithLogFields(r.Context(), logger.LogFields{
			RequestID: middleware.GetReqID(r.Context()),
			Component: "http",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
