package booking

import (
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/payment"
	"staybook/internal/pkg/ids"
)

type RoomLine struct {
	RoomTypeID ids.RoomTypeID `json:"room_type_id" validate:"required"`
	Quantity   int            `json:"quantity" validate:"gt=0,lte=50"`
}

// CreateRequest is the use-case input. Dates are calendar days in UTC.
type CreateRequest struct {
	UserID          ids.AccountID  `json:"-" validate:"required"`
	PropertyID      ids.PropertyID `json:"property_id" validate:"required"`
	CheckIn         time.Time      `json:"check_in" validate:"required"`
	CheckOut        time.Time      `json:"check_out" validate:"required"`
	Guests          int            `json:"guests" validate:"gt=0"`
	Rooms           []RoomLine     `json:"rooms" validate:"required,min=1,dive"`
	VoucherCode     string         `json:"voucher_code" validate:"omitempty,max=50"`
	SpecialRequests string         `json:"special_requests" validate:"max=2000"`
	PaymentMethod   payment.Method `json:"payment_method"`
}

// createBody is the JSON body of POST /bookings.
type createBody struct {
	PropertyID      ids.PropertyID `json:"property_id" binding:"required"`
	CheckIn         string         `json:"check_in" binding:"required"`
	CheckOut        string         `json:"check_out" binding:"required"`
	Guests          int            `json:"guests" binding:"required"`
	Rooms           []RoomLine     `json:"rooms" binding:"required"`
	VoucherCode     string         `json:"voucher_code"`
	SpecialRequests string         `json:"special_requests"`
	PaymentMethod   payment.Method `json:"payment_method"`
}

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// TransitionRequest moves a booking through its lifecycle. A zero Actor is
// the system.
type TransitionRequest struct {
	BookingID ids.BookingID `validate:"required"`
	Action    Action        `validate:"oneof=confirm check_in check_out complete cancel"`
	Actor     ids.AccountID
	Role      string
	Reason    string `validate:"max=1000"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// Result is a booking together with its current payment.
type Result struct {
	Booking *booking.Booking `json:"booking"`
	Payment *payment.Payment `json:"payment,omitempty"`
}

type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
