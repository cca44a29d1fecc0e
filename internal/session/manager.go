// Package session creates, resolves and deletes server-side login sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/store"
	"github.com/tss1979/timetracker/internal/utils"
)

// Cache is an optional read-through cache of session id → user id.
type Cache interface {
	Get(ctx context.Context, sessionID string) (userID string, ok bool, err error)
	Set(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// Options configure a Manager. Zero values are usable.
type Options struct {
	// TTL bounds a session's lifetime. Zero means until logout.
	TTL    time.Duration
	Cache  Cache
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Manager owns the session lifecycle.
type Manager struct {
	sessions store.Sessions
	users    store.Users
	ttl      time.Duration
	cache    Cache
	clock    clockwork.Clock
	logger   *slog.Logger
}

func NewManager(sessions store.Sessions, users store.Users, opts Options) *Manager {
	m := &Manager{
		sessions: sessions,
		users:    users,
		ttl:      opts.TTL,
		cache:    opts.Cache,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Create stores a new session for userID and returns its token.
func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	token, err := utils.NewSessionToken()
	if err != nil {
		return "", err
	}

	now := m.clock.Now()
	s := &models.Session{SessionID: token, UserID: userID, CreatedAt: now}
	if m.ttl > 0 {
		exp := now.Add(m.ttl)
		s.ExpiresAt = &exp
	}

	if err := m.sessions.CreateSession(ctx, s); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	m.cacheSet(ctx, token, userID, m.ttl)
	return token, nil
}

// Resolve returns the user behind sessionID. It returns nil without an error
// when the session is unknown, expired, or points at a missing user.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	userID, hit := m.cacheGet(ctx, sessionID)
	if !hit {
		s, err := m.sessions.FindSession(ctx, sessionID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve session: %w", err)
		}

		now := m.clock.Now()
		if s.Expired(now) {
			return nil, nil
		}
		userID = s.UserID

		var remaining time.Duration
		if s.ExpiresAt != nil {
			remaining = s.ExpiresAt.Sub(now)
		}
		m.cacheSet(ctx, sessionID, userID, remaining)
	}

	user, err := m.users.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session user: %w", err)
	}
	return user, nil
}

// Delete removes the session and waits for the store to confirm. Unknown
// sessions are not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if m.cache != nil {
		if err := m.cache.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

// Cache failures degrade to store lookups.
func (m *Manager) cacheGet(ctx context.Context, sessionID string) (string, bool) {
	if m.cache == nil {
		return "", false
	}
	userID, ok, err := m.cache.Get(ctx, sessionID)
	if err != nil {
		m.logger.WarnContext(ctx, "session cache read failed", "error", err)
		return "", false
	}
	return userID, ok
}

func (m *Manager) cacheSet(ctx context.Context, sessionID, userID string, ttl time.Duration) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, sessionID, userID, ttl); err != nil {
		m.logger.WarnContext(ctx, "session cache write failed", "error", err)
	}
}
