// Package store defines the document-store gateway shared by every service:
// the users, sessions and timers collections.
package store

import (
	"context"
	"errors"

	"github.com/tss1979/timetracker/internal/models"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Users is the users collection. Create assigns an ID when the user has none.
type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// Sessions is the sessions collection. DeleteSession is idempotent.
type Sessions interface {
	CreateSession(ctx context.Context, session *models.Session) error
	FindSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Timers is the timers collection.
type Timers interface {
	CreateTimer(ctx context.Context, timer *models.Timer) error
	FindTimer(ctx context.Context, id string) (*models.Timer, error)
	// StopTimer finalises an active timer. It returns ErrNotFound when no
	// active timer with that id exists.
	StopTimer(ctx context.Context, id string, end, duration int64) error
	ListTimers(ctx context.Context, userID string, active bool) ([]models.Timer, error)
}

// Gateway is a connected store exposing all three collections.
type Gateway interface {
	Users
	Sessions
	Timers

	// Migrate creates the collections and indexes. Safe to call repeatedly.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
