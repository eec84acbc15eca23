package booking

import (
	"time"

	"staybook/internal/domain"
	"staybook/internal/pkg/ids"
)

// History is an immutable audit row. Rows are inserted once and never
// updated or deleted.
type History struct {
	ID          ids.BookingHistoryID `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID   ids.BookingID        `json:"booking_id" gorm:"type:uuid;not null;index"`
	Sequence    int                  `json:"sequence" gorm:"not null"`
	Description string               `json:"description" gorm:"type:text;not null"`
	Status      Status               `json:"status" gorm:"type:varchar(20);not null"`
	ActorID     *ids.AccountID       `json:"actor_id,omitempty" gorm:"type:uuid"`
	CreatedAt   time.Time            `json:"created_at" gorm:"not null"`
}

func (History) TableName() string { return "booking_histories" }

func (h *History) EntityID() ids.BookingHistoryID { return h.ID }

var _ domain.Entity[ids.BookingHistoryID] = (*History)(nil)

func newHistory(booking ids.BookingID, seq int, desc string, status Status, actor ids.AccountID, now time.Time) History {
	h := History{
		ID:          ids.New[ids.BookingHistoryID](),
		BookingID:   booking,
		Sequence:    seq,
		Description: desc,
		Status:      status,
		CreatedAt:   now,
	}
	if !actor.IsZero() {
		h.ActorID = &actor
	}
	return h
}
