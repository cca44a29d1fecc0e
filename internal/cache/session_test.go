package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryTTL(t *testing.T) {
	tests := []struct {
		name      string
		def       time.Duration
		remaining time.Duration
		want      time.Duration
	}{
		{"no session expiry uses default", 10 * time.Minute, 0, 10 * time.Minute},
		{"short remaining lifetime wins", 10 * time.Minute, time.Minute, time.Minute},
		{"long remaining lifetime capped", 10 * time.Minute, time.Hour, 10 * time.Minute},
		{"no default uses remaining", 0, time.Minute, time.Minute},
		{"neither set keeps forever", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntryTTL(tt.def, tt.remaining))
		})
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "not-a-redis-url", time.Minute)
	require.Error(t, err)
}

// TestSessionCache_Integration runs against a real Redis when REDIS_TEST_URL is set.
func TestSessionCache_Integration(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("skipping integration test (requires REDIS_TEST_URL)")
	}
	ctx := context.Background()

	c, err := New(ctx, redisURL, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sessionID := uuid.NewString()

	_, ok, err := c.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sessionID, "user-1", 0))
	userID, ok, err := c.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, c.Delete(ctx, sessionID))
	require.NoError(t, c.Delete(ctx, sessionID))
	_, ok, err = c.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}
