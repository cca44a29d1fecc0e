package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tss1979/timetracker/internal/metrics"
	"github.com/tss1979/timetracker/internal/middleware"
	"github.com/tss1979/timetracker/internal/utils"
)

// Values of the authError query parameter understood by the landing page.
const (
	AuthErrorInvalid  = "true"
	AuthErrorMissing  = "missing"
	AuthErrorPassword = "password"
)

type SessionIssuer interface {
	Create(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

type Handler struct {
	accounts     *Accounts
	sessions     SessionIssuer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	secureCookie bool
}

// NewHandler builds the login, signup and logout handlers. secureCookie marks
// the session cookie Secure, which browsers only honour over HTTPS.
func NewHandler(accounts *Accounts, sessions SessionIssuer, m *metrics.Metrics, logger *slog.Logger, secureCookie bool) *Handler {
	return &Handler{
		accounts:     accounts,
		sessions:     sessions,
		metrics:      m,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.accounts.VerifyCredentials(r.Context(), username, password)
	if errors.Is(err, ErrMissingCredentials) || (err == nil && user == nil) {
		h.metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		http.Redirect(w, r, "/?authError="+AuthErrorInvalid, http.StatusFound)
		return
	}
	if err != nil {
		h.metrics.LoginAttempts.WithLabelValues("error").Inc()
		h.serverError(w, r, "login failed", err)
		return
	}

	if !h.startSession(w, r, user.ID) {
		return
	}
	h.metrics.LoginAttempts.WithLabelValues("success").Inc()
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	userID, created, err := h.accounts.CreateUser(r.Context(), username, password)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		http.Redirect(w, r, "/?authError="+AuthErrorMissing, http.StatusFound)
		return
	case errors.Is(err, ErrPasswordTooLong):
		http.Redirect(w, r, "/?authError="+AuthErrorPassword, http.StatusFound)
		return
	case err != nil:
		h.serverError(w, r, "signup failed", err)
		return
	}

	if created {
		h.metrics.Signups.WithLabelValues("created").Inc()
	} else {
		h.metrics.Signups.WithLabelValues("existing").Inc()
	}

	if !h.startSession(w, r, userID) {
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetIdentityFromContext(r.Context())
	if !ok || id.User == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := h.sessions.Delete(r.Context(), id.SessionID); err != nil {
		h.serverError(w, r, "logout failed", err)
		return
	}
	h.metrics.SessionsDeleted.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// startSession issues a session cookie. It reports false after writing an
// error response.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	sessionID, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "failed to create session", err)
		return false
	}
	h.metrics.SessionsCreated.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	})
	return true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
