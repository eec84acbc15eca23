package payment

import "staybook/internal/pkg/apperr"

var (
	ErrBookingNotPayable = apperr.Failure("Payment.BookingNotPayable", "only pending bookings can be paid")
	ErrAlreadyPaid       = apperr.Conflict("Payment.AlreadyPaid", "booking is already paid")
	ErrNotRefundable     = apperr.Failure("Payment.NotRefundable", "only successful payments can be refunded")
)
