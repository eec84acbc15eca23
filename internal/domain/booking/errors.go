package booking

import "staybook/internal/pkg/apperr"

var (
	ErrInvalidCheckInDate      = apperr.Validation("Booking.InvalidCheckInDate", "check-in date cannot be in the past")
	ErrInvalidCheckOutDate     = apperr.Validation("Booking.InvalidCheckOutDate", "check-out date must be after check-in date")
	ErrInvalidGuestCount       = apperr.Validation("Booking.InvalidGuestCount", "guest count must be greater than zero")
	ErrInvalidTotalPrice       = apperr.Validation("Booking.InvalidTotalPrice", "total price cannot be negative")
	ErrInvalidStatusTransition = apperr.Failure("Booking.InvalidStatusTransition", "booking cannot move to the requested status")
	ErrCheckInTooEarly         = apperr.Failure("Booking.CheckInTooEarly", "check-in is not possible before the check-in date")
	ErrCannotCancel            = apperr.Failure("Booking.CannotCancelBooking", "completed or cancelled bookings cannot be cancelled")
	ErrNotFound                = apperr.NotFound("Booking.NotFound", "booking not found")
	ErrForbidden               = apperr.Forbidden("Booking.Forbidden", "you do not have access to this booking")

	ErrInvalidRoomQuantity   = apperr.Validation("BookingDetail.InvalidRoomQuantity", "room quantity must be greater than zero")
	ErrInvalidNights         = apperr.Validation("BookingDetail.InvalidNights", "nights must be greater than zero")
	ErrInvalidPricePerNight  = apperr.Validation("BookingDetail.InvalidPricePerNight", "price per night cannot be negative")
	ErrInvalidDiscountAmount = apperr.Validation("BookingDetail.InvalidDiscountAmount", "discount amount cannot be negative")
	ErrInvalidDetailTotal    = apperr.Validation("BookingDetail.InvalidTotalPrice", "discount cannot exceed the line amount")
)
