package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/larriantoniy/domofon_bot/internal/http/handlers"
	"github.com/larriantoniy/domofon_bot/internal/http/middleware"
)

// NewRouter собирает роутер вебхуков провайдера.
func NewRouter(webhookPath string, webhook *handlers.WebhookHandler, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	// провайдер шлёт и GET с query, и POST с JSON
	r.Get(webhookPath, webhook.HandleCall)
	r.Post(webhookPath, webhook.HandleCall)

	return r
}
