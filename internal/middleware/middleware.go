package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/utils"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "sessionId"

type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*models.User, error)
}

// SessionMiddleware attaches the caller's identity to the request context.
// It never rejects a request: handlers decide what an anonymous caller may do.
// Only a store failure ends the request early, with a 500.
func SessionMiddleware(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.Resolve(r.Context(), cookie.Value)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to resolve session",
					"request_id", GetRequestID(r.Context()),
					"error", err,
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := utils.WithIdentity(r.Context(), utils.Identity{User: user, SessionID: cookie.Value})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests without a resolved user with 403.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware echoes the origin back only if it is on the allow-list.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions && origin != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
