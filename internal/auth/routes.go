package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers /login, /signup and /logout. limit, when not nil,
// guards the two credential endpoints.
func SetupRoutes(h *Handler, limit func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		credentials := r
		if limit != nil {
			credentials = r.With(limit)
		}
		credentials.Post("/login", h.LoginHandler)
		credentials.Post("/signup", h.SignupHandler)
		r.Get("/logout", h.LogoutHandler)
	}
}
