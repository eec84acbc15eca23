package inventory

import "staybook/internal/pkg/apperr"

var (
	ErrInvalidQuantity       = apperr.Validation("RoomAvailability.InvalidQuantity", "available quantity cannot be negative")
	ErrInvalidPrice          = apperr.Validation("RoomAvailability.InvalidPrice", "price must be greater than zero")
	ErrDateInPast            = apperr.Validation("RoomAvailability.DateInPast", "availability date cannot be in the past")
	ErrInvalidAdjustment     = apperr.Validation("RoomAvailability.InvalidAdjustment", "quantity adjustment must be greater than zero")
	ErrInsufficientQuantity  = apperr.Failure("RoomAvailability.InsufficientQuantity", "not enough rooms available")
	ErrAvailabilityNotFound  = apperr.NotFound("RoomAvailability.NotFound", "no availability for room type on this date")
	ErrAvailabilityExists    = apperr.Conflict("RoomAvailability.AlreadyExists", "availability already defined for room type on this date")
	ErrBothDiscountTypes     = apperr.Validation("RoomPromotion.BothDiscountTypesDefined", "set either a discount percent or a discount amount, not both")
	ErrNoDiscountDefined     = apperr.Validation("RoomPromotion.NoDiscountDefined", "a discount percent or a discount amount is required")
	ErrInvalidDiscountPct    = apperr.Validation("RoomPromotion.InvalidDiscountPercent", "discount percent must be in (0, 100]")
	ErrInvalidDiscountAmount = apperr.Validation("RoomPromotion.InvalidDiscountAmount", "discount amount must be greater than zero")
	ErrInvalidPromotionDates = apperr.Validation("RoomPromotion.InvalidDateRange", "promotion end date must be after start date")
	ErrPromotionNotFound     = apperr.NotFound("RoomPromotion.NotFound", "promotion not found")
	ErrPromotionExpired      = apperr.Failure("RoomPromotion.Expired", "an expired promotion cannot be reactivated")
)
