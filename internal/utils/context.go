package utils

import (
	"context"

	"github.com/tss1979/timetracker/internal/models"
)

type contextKey string

const ContextIdentityKey contextKey = "identity"

// Identity is what the session middleware learned about the caller. User is
// nil when the cookie named no live session.
type Identity struct {
	User      *models.User
	SessionID string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ContextIdentityKey).(Identity)
	return id, ok
}

// GetUserFromContext returns the resolved user, if any.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	id, ok := GetIdentityFromContext(ctx)
	if !ok || id.User == nil {
		return nil, false
	}
	return id.User, true
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return "", false
	}
	return user.ID, true
}
