package models

import "time"

// Session maps an opaque token to a user. A user may hold any number of
// sessions. ExpiresAt is nil when sessions live until logout.
type Session struct {
	SessionID string     `gorm:"primaryKey;size:64" json:"-"`
	UserID    string     `gorm:"index;not null" json:"-"`
	CreatedAt time.Time  `json:"-"`
	ExpiresAt *time.Time `json:"-"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
