// Package booking is the Booking aggregate: a guest's reservation with its
// room-type lines and an append-only status history.
package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Booking is the aggregate root. Details and History are only created
// through its methods.
type Booking struct {
	ID                 ids.BookingID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID             ids.AccountID   `json:"user_id" gorm:"type:uuid;not null;index"`
	PropertyID         ids.PropertyID  `json:"property_id" gorm:"type:uuid;not null;index"`
	CheckInDate        time.Time       `json:"check_in_date" gorm:"not null"`
	CheckOutDate       time.Time       `json:"check_out_date" gorm:"not null"`
	GuestCount         int             `json:"guest_count" gorm:"not null"`
	TotalPrice         decimal.Decimal `json:"total_price" gorm:"type:decimal(18,2);not null"`
	DiscountAmount     decimal.Decimal `json:"discount_amount" gorm:"type:decimal(18,2);not null;default:0"`
	VoucherCode        *string         `json:"voucher_code,omitempty" gorm:"type:varchar(50)"`
	Status             Status          `json:"status" gorm:"type:varchar(20);not null;index"`
	SpecialRequests    *string         `json:"special_requests,omitempty" gorm:"type:text"`
	CancellationReason *string         `json:"cancellation_reason,omitempty" gorm:"type:text"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	domain.Timestamps

	Details []Detail  `json:"details,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	History []History `json:"history,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`

	unsaved []History
}

func (Booking) TableName() string { return "bookings" }

func (b *Booking) EntityID() ids.BookingID { return b.ID }

var _ domain.Entity[ids.BookingID] = (*Booking)(nil)

type Params struct {
	UserID          ids.AccountID
	PropertyID      ids.PropertyID
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	TotalPrice      decimal.Decimal
	SpecialRequests string
}

// New validates p and returns a pending booking with its first history
// entry. Dates are truncated to calendar days.
func New(p Params, now time.Time) (*Booking, error) {
	checkIn, checkOut := clock.Date(p.CheckIn), clock.Date(p.CheckOut)

	var errs []error
	if checkIn.Before(clock.Date(now)) {
		errs = append(errs, ErrInvalidCheckInDate)
	}
	if !checkOut.After(checkIn) {
		errs = append(errs, ErrInvalidCheckOutDate)
	}
	if p.Guests <= 0 {
		errs = append(errs, ErrInvalidGuestCount)
	}
	if p.TotalPrice.IsNegative() {
		errs = append(errs, ErrInvalidTotalPrice)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}

	b := &Booking{
		ID:             ids.New[ids.BookingID](),
		UserID:         p.UserID,
		PropertyID:     p.PropertyID,
		CheckInDate:    checkIn,
		CheckOutDate:   checkOut,
		GuestCount:     p.Guests,
		TotalPrice:     money.Round(p.TotalPrice),
		DiscountAmount: money.Zero,
		Status:         StatusPending,
		Timestamps:     domain.NewTimestamps(now),
	}
	if notes := strings.TrimSpace(p.SpecialRequests); notes != "" {
		b.SpecialRequests = &notes
	}
	b.record("Booking created", p.UserID, now)
	return b, nil
}

func (b *Booking) Nights() int {
	return clock.Nights(b.CheckInDate, b.CheckOutDate)
}

// Stay lists the nights of the stay, one date per night.
func (b *Booking) Stay() []time.Time {
	return clock.Days(b.CheckInDate, b.CheckOutDate)
}

// AddDetail appends a room-type line. The booking total is not touched; see
// DetailsTotal.
func (b *Booking) AddDetail(roomType ids.RoomTypeID, quantity int, pricePerNight, discount decimal.Decimal, now time.Time) (*Detail, error) {
	d, err := NewDetail(b.ID, roomType, quantity, b.Nights(), pricePerNight, discount, now)
	if err != nil {
		return nil, err
	}
	b.Details = append(b.Details, *d)
	return &b.Details[len(b.Details)-1], nil
}

// AddNightlyDetail appends a room-type line priced from one rate per night
// of the stay.
func (b *Booking) AddNightlyDetail(roomType ids.RoomTypeID, quantity int, nightly []decimal.Decimal, discount decimal.Decimal, now time.Time) (*Detail, error) {
	if len(nightly) != b.Nights() {
		return nil, ErrInvalidNights
	}
	d, err := NewNightlyDetail(b.ID, roomType, quantity, nightly, discount, now)
	if err != nil {
		return nil, err
	}
	b.Details = append(b.Details, *d)
	return &b.Details[len(b.Details)-1], nil
}

// DetailsTotal sums the line totals.
func (b *Booking) DetailsTotal() decimal.Decimal {
	total := money.Zero
	for _, d := range b.Details {
		total = total.Add(d.TotalPrice)
	}
	return money.Round(total)
}

// ApplyVoucher records the voucher code and the discount already spread
// over the details.
func (b *Booking) ApplyVoucher(code string, discount decimal.Decimal, now time.Time) {
	b.VoucherCode = &code
	b.DiscountAmount = money.Round(discount)
	b.record(fmt.Sprintf("Voucher %s applied, discount %s", code, b.DiscountAmount.StringFixed(2)), ids.AccountID{}, now)
}

func (b *Booking) Confirm(actor ids.AccountID, now time.Time) error {
	return b.transition(StatusPending, StatusConfirmed, "Booking confirmed", actor, now)
}

// CheckIn is allowed from confirmed and not before the check-in date.
func (b *Booking) CheckIn(actor ids.AccountID, now time.Time) error {
	if b.Status != StatusConfirmed {
		return b.invalidTransition(StatusCheckedIn)
	}
	if clock.Date(now).Before(b.CheckInDate) {
		return ErrCheckInTooEarly.WithMessage("check-in opens on %s", b.CheckInDate.Format(time.DateOnly))
	}
	return b.transition(StatusConfirmed, StatusCheckedIn, "Guest checked in", actor, now)
}

func (b *Booking) CheckOut(actor ids.AccountID, now time.Time) error {
	return b.transition(StatusCheckedIn, StatusCheckedOut, "Guest checked out", actor, now)
}

func (b *Booking) Complete(actor ids.AccountID, now time.Time) error {
	return b.transition(StatusCheckedOut, StatusCompleted, "Booking completed", actor, now)
}

// Cancel is allowed from every status except completed and cancelled.
func (b *Booking) Cancel(reason string, actor ids.AccountID, now time.Time) error {
	if !b.CanCancel() {
		return ErrCannotCancel
	}
	b.Status = StatusCancelled
	b.CancelledAt = &now
	desc := "Booking cancelled"
	if reason = strings.TrimSpace(reason); reason != "" {
		b.CancellationReason = &reason
		desc += ": " + reason
	}
	b.Touch(now)
	b.record(desc, actor, now)
	return nil
}

func (b *Booking) CanCancel() bool {
	return b.Status != StatusCancelled && b.Status != StatusCompleted
}

// HoldsInventory reports whether the booking still occupies its rooms.
func (b *Booking) HoldsInventory() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) transition(from, to Status, desc string, actor ids.AccountID, now time.Time) error {
	if b.Status != from {
		return b.invalidTransition(to)
	}
	b.Status = to
	b.Touch(now)
	b.record(desc, actor, now)
	return nil
}

func (b *Booking) invalidTransition(to Status) error {
	return ErrInvalidStatusTransition.WithMessage("cannot move booking from %s to %s", b.Status, to)
}

func (b *Booking) record(desc string, actor ids.AccountID, now time.Time) {
	h := newHistory(b.ID, len(b.History)+1, desc, b.Status, actor, now)
	b.History = append(b.History, h)
	b.unsaved = append(b.unsaved, h)
}

// pendingHistory returns and clears the entries recorded since the last
// save.
func (b *Booking) pendingHistory() []History {
	out := b.unsaved
	b.unsaved = nil
	return out
}
