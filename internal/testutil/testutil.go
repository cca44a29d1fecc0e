// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tss1979/timetracker/internal/db"
	"github.com/tss1979/timetracker/internal/logging"
	"github.com/tss1979/timetracker/internal/store/gormstore"
)

// NewStore returns a migrated store backed by a private in-memory SQLite
// database. It is closed when the test ends.
func NewStore(t *testing.T) *gormstore.Store {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := db.ConnectSQLite(dsn, logging.Discard())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	s := gormstore.New(gdb)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}
