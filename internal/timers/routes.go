package timers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tss1979/timetracker/internal/middleware"
)

// SetupRoutes returns the timer API. It expects the session middleware to
// have run already and rejects anonymous callers.
func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)

	r.Get("/", h.ListHandler)
	r.Post("/", h.CreateHandler)
	r.Post("/{id}/stop", h.StopHandler)

	return r
}
