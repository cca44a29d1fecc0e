// Package seeds loads demo users and timers from a YAML file.
package seeds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/tss1979/timetracker/internal/auth"
	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/store"
)

// File is the top level of a seed file.
type File struct {
	Users []User `yaml:"users"`
}

type User struct {
	Username string  `yaml:"username"`
	Password string  `yaml:"password"`
	Timers   []Timer `yaml:"timers"`
}

// Timer is a seeded timer. Start is RFC 3339. An empty Duration leaves the
// timer running.
type Timer struct {
	Description string `yaml:"description"`
	Start       string `yaml:"start"`
	Duration    string `yaml:"duration"`
}

// Result counts what a seed run inserted.
type Result struct {
	UsersCreated  int
	UsersExisting int
	Timers        int
}

func Load(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	defer fh.Close()
	return Load(fh)
}

// SeedAll creates every user in f. Timers are only inserted for users that
// did not exist yet, so re-running a seed file adds nothing.
func SeedAll(ctx context.Context, accounts *auth.Accounts, timers store.Timers, f *File, logger *slog.Logger) (Result, error) {
	var res Result
	for _, u := range f.Users {
		id, created, err := accounts.CreateUser(ctx, u.Username, u.Password)
		if err != nil {
			return res, fmt.Errorf("failed to create user %q: %w", u.Username, err)
		}
		if !created {
			res.UsersExisting++
			logger.Info("user exists, skipping", "username", u.Username)
			continue
		}
		res.UsersCreated++

		for _, ts := range u.Timers {
			t, err := ts.toModel(id)
			if err != nil {
				return res, fmt.Errorf("user %q: %w", u.Username, err)
			}
			if err := timers.CreateTimer(ctx, t); err != nil {
				return res, fmt.Errorf("failed to create timer %q: %w", ts.Description, err)
			}
			res.Timers++
		}
	}

	logger.Info("seeded users",
		"created", res.UsersCreated,
		"existing", res.UsersExisting,
		"timers", res.Timers,
	)
	return res, nil
}

func (ts Timer) toModel(userID string) (*models.Timer, error) {
	start, err := time.Parse(time.RFC3339, ts.Start)
	if err != nil {
		return nil, fmt.Errorf("timer %q: bad start: %w", ts.Description, err)
	}

	t := &models.Timer{
		UserID:      userID,
		Description: ts.Description,
		Start:       start.UnixMilli(),
		End:         start.UnixMilli(),
		IsActive:    true,
	}
	if ts.Duration == "" {
		return t, nil
	}

	d, err := time.ParseDuration(ts.Duration)
	if err != nil {
		return nil, fmt.Errorf("timer %q: bad duration: %w", ts.Description, err)
	}
	if d < 0 {
		return nil, fmt.Errorf("timer %q: negative duration %s", ts.Description, d)
	}
	ms := d.Milliseconds()
	t.End = t.Start + ms
	t.Duration = &ms
	t.IsActive = false
	return t, nil
}
