// Package domain holds the capabilities shared by every aggregate.
package domain

import "time"

// Entity is implemented by anything with a stable identity.
type Entity[ID comparable] interface {
	EntityID() ID
}

// Timestamps is embedded by persisted entities.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// NewTimestamps sets both timestamps to now.
func NewTimestamps(now time.Time) Timestamps {
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

func (t *Timestamps) Touch(now time.Time) {
	t.UpdatedAt = now
}
