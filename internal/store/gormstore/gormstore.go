// Package gormstore implements store.Gateway on top of gorm, for PostgreSQL
// and SQLite.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/store"
)

// Store is a gorm-backed gateway.
type Store struct {
	db *gorm.DB
}

var _ store.Gateway = (*Store)(nil)

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate auto-migrates the users, sessions and timers tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Session{}, &models.Timer{}); err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err, "failed to get user by username")
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "failed to get user by ID")
	}
	return &user, nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Store) FindSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error; err != nil {
		return nil, notFound(err, "failed to get session")
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) CreateTimer(ctx context.Context, timer *models.Timer) error {
	if timer.ID == "" {
		timer.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(timer).Error; err != nil {
		return fmt.Errorf("failed to create timer: %w", err)
	}
	return nil
}

func (s *Store) FindTimer(ctx context.Context, id string) (*models.Timer, error) {
	var timer models.Timer
	if err := s.db.WithContext(ctx).First(&timer, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "failed to get timer")
	}
	return &timer, nil
}

func (s *Store) StopTimer(ctx context.Context, id string, end, duration int64) error {
	result := s.db.WithContext(ctx).
		Model(&models.Timer{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"end_ms":      end,
			"duration_ms": duration,
			"is_active":   false,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to stop timer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListTimers(ctx context.Context, userID string, active bool) ([]models.Timer, error) {
	timers := []models.Timer{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, active).
		Order("start_ms").
		Find(&timers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	return timers, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// isUniqueViolation matches gorm's translated error (TranslateError must be
// enabled on the connection) and raw PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
