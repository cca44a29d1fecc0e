// Package timers starts, stops and lists a user's time-tracking timers.
package timers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/store"
)

var (
	ErrTimerNotFound = errors.New("timer not found")
	ErrTimerInactive = errors.New("timer already stopped")
)

type Service struct {
	timers store.Timers
	clock  clockwork.Clock
}

// NewService reads the current time from clock. A nil clock uses the wall
// clock.
func NewService(timers store.Timers, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{timers: timers, clock: clock}
}

// Start creates a running timer for userID and returns its id.
func (s *Service) Start(ctx context.Context, userID, description string) (string, error) {
	now := s.clock.Now().UnixMilli()
	t := &models.Timer{
		UserID:      userID,
		Description: description,
		Start:       now,
		End:         now,
		IsActive:    true,
	}
	if err := s.timers.CreateTimer(ctx, t); err != nil {
		return "", fmt.Errorf("start timer: %w", err)
	}
	return t.ID, nil
}

// Stop finalises one of userID's running timers. Timers owned by someone
// else are reported as not found.
func (s *Service) Stop(ctx context.Context, userID, timerID string) error {
	t, err := s.timers.FindTimer(ctx, timerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTimerNotFound
	}
	if err != nil {
		return fmt.Errorf("find timer: %w", err)
	}
	if t.UserID != userID {
		return ErrTimerNotFound
	}
	if !t.IsActive {
		return ErrTimerInactive
	}

	end := s.clock.Now().UnixMilli()
	err = s.timers.StopTimer(ctx, t.ID, end, end-t.Start)
	if errors.Is(err, store.ErrNotFound) {
		// A concurrent stop got there first.
		return ErrTimerInactive
	}
	if err != nil {
		return fmt.Errorf("stop timer: %w", err)
	}
	return nil
}

// List returns userID's timers whose active flag equals active.
func (s *Service) List(ctx context.Context, userID string, active bool) ([]models.Timer, error) {
	list, err := s.timers.ListTimers(ctx, userID, active)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	if list == nil {
		list = []models.Timer{}
	}
	return list, nil
}

// ParseActiveFilter reads the isActive query parameter. Only "true" selects
// running timers.
func ParseActiveFilter(raw string) bool {
	return raw == "true"
}
