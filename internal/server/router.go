package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/luminary-chat/luminary/internal/api"
	"github.com/luminary-chat/luminary/internal/api/handlers"
	"github.com/luminary-chat/luminary/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler  *handlers.SearchHandler
	PersonaHandler *handlers.PersonaHandler
	ChatHandler    *handlers.ChatHandler
	ChunkHandler   *handlers.ChunkHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/search", cfg.SearchHandler.Search)
	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Route("/personas", func(r chi.Router) {
		r.Get("/", cfg.PersonaHandler.List)
		r.Get("/{slug}", cfg.PersonaHandler.Get)
	})

	r.Get("/chunks/{id}/source", cfg.ChunkHandler.GetSource)

	return r
}
