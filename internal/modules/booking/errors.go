package booking

import "staybook/internal/pkg/apperr"

var (
	ErrRoomNotAvailable  = apperr.Failure("Booking.RoomNotAvailable", "room type is not available for the selected dates")
	ErrDuplicateRoomType = apperr.Validation("Booking.DuplicateRoomType", "each room type may appear once per booking")
	ErrCapacityExceeded  = apperr.Validation("Booking.CapacityExceeded", "guest count exceeds the capacity of the selected rooms")
	ErrPropertyInactive  = apperr.Failure("Booking.PropertyUnavailable", "property is not accepting bookings")
	ErrInvalidDate       = apperr.Validation("Booking.InvalidDateFormat", "dates must use the YYYY-MM-DD format")
	ErrUnknownAction     = apperr.Validation("Booking.UnknownAction", "unknown booking action")
)
