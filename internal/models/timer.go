package models

// Timer is a tracked time span. Start, End and Duration are Unix milliseconds.
// Duration is nil while the timer is active.
type Timer struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	UserID      string `gorm:"index:idx_timers_owner_active;not null" json:"user_id"`
	Description string `json:"description"`
	Start       int64  `gorm:"column:start_ms;not null" json:"start"`
	End         int64  `gorm:"column:end_ms;not null" json:"end"`
	Duration    *int64 `gorm:"column:duration_ms" json:"duration,omitempty"`
	IsActive    bool   `gorm:"index:idx_timers_owner_active;not null" json:"isActive"`
}
