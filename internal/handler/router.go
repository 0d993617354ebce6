package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hiroki-koketsu/taskboard/internal/auth"
)

// NewRouter assembles the HTTP API. Task routes require a verified principal;
// the health probe does not.
func NewRouter(h *TaskHandler, verifier *auth.Verifier, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(verifier.Middleware(logger)).Mount("/tasks", h.Routes())
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		h.respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "route not found"})
	})

	return r
}
