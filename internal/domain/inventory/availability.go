// Package inventory owns per-room-type nightly stock and the promotions
// applied to its price. Bookings reference these rows but never own them.
package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

// Availability is the stock and nightly price of one room type on one date.
// AvailableQuantity is only changed through DecrementQuantity and
// IncrementQuantity; the repository performs the same operations atomically
// against the stored row.
type Availability struct {
	ID                ids.RoomAvailabilityID `json:"id" gorm:"type:uuid;primaryKey"`
	RoomTypeID        ids.RoomTypeID         `json:"room_type_id" gorm:"type:uuid;not null;uniqueIndex:idx_availability_room_date,priority:1"`
	Date              time.Time              `json:"date" gorm:"not null;uniqueIndex:idx_availability_room_date,priority:2"`
	AvailableQuantity int                    `json:"available_quantity" gorm:"not null;check:chk_availability_quantity,available_quantity >= 0"`
	Price             decimal.Decimal        `json:"price" gorm:"type:decimal(18,2);not null"`
	domain.Timestamps
}

func (Availability) TableName() string { return "room_availabilities" }

func (a *Availability) EntityID() ids.RoomAvailabilityID { return a.ID }

var _ domain.Entity[ids.RoomAvailabilityID] = (*Availability)(nil)

// NewAvailability validates quantity >= 0, price > 0 and date >= today.
func NewAvailability(roomType ids.RoomTypeID, date time.Time, quantity int, price decimal.Decimal, now time.Time) (*Availability, error) {
	var errs []error
	if quantity < 0 {
		errs = append(errs, ErrInvalidQuantity)
	}
	if !price.IsPositive() {
		errs = append(errs, ErrInvalidPrice)
	}
	day := clock.Date(date)
	if day.Before(clock.Date(now)) {
		errs = append(errs, ErrDateInPast)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}
	return &Availability{
		ID:                ids.New[ids.RoomAvailabilityID](),
		RoomTypeID:        roomType,
		Date:              day,
		AvailableQuantity: quantity,
		Price:             money.Round(price),
		Timestamps:        domain.NewTimestamps(now),
	}, nil
}

// DecrementQuantity reserves n rooms.
func (a *Availability) DecrementQuantity(n int, now time.Time) error {
	if n <= 0 {
		return ErrInvalidAdjustment
	}
	if a.AvailableQuantity < n {
		return ErrInsufficientQuantity.WithMessage("only %d room(s) left on %s", a.AvailableQuantity, a.Date.Format(time.DateOnly))
	}
	a.AvailableQuantity -= n
	a.Touch(now)
	return nil
}

// IncrementQuantity releases n rooms. It never fails; non-positive n is a no-op.
func (a *Availability) IncrementQuantity(n int, now time.Time) {
	if n <= 0 {
		return
	}
	a.AvailableQuantity += n
	a.Touch(now)
}

func (a *Availability) UpdatePrice(price decimal.Decimal, now time.Time) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	a.Price = money.Round(price)
	a.Touch(now)
	return nil
}
