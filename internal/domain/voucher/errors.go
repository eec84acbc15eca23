package voucher

import "staybook/internal/pkg/apperr"

var (
	ErrCodeRequired           = apperr.Validation("Voucher.CodeRequired", "voucher code is required")
	ErrInvalidDiscountType    = apperr.Validation("Voucher.InvalidDiscountType", "discount type must be percent or amount")
	ErrInvalidPercent         = apperr.Validation("Voucher.InvalidDiscountPercent", "percent discount must be between 0 and 100")
	ErrInvalidAmount          = apperr.Validation("Voucher.InvalidDiscountAmount", "amount discount must be greater than zero")
	ErrInvalidDateRange       = apperr.Validation("Voucher.InvalidDateRange", "voucher end date must be after start date")
	ErrInvalidUsageLimit      = apperr.Validation("Voucher.InvalidUsageLimit", "usage limit cannot be negative")
	ErrInvalidUserLimit       = apperr.Validation("Voucher.InvalidUsageLimitPerUser", "per-user usage limit cannot be negative")
	ErrInvalidMinimumOrder    = apperr.Validation("Voucher.InvalidMinimumOrderAmount", "minimum order amount cannot be negative")
	ErrInvalidMaximumDiscount = apperr.Validation("Voucher.InvalidMaximumDiscountAmount", "maximum discount amount cannot be negative")
	ErrInvalidTarget          = apperr.Validation("Voucher.InvalidTarget", "non-global voucher targets need a target id")
	ErrDisabled               = apperr.Failure("Voucher.Disabled", "voucher is disabled")
	ErrNotStarted             = apperr.Failure("Voucher.NotStarted", "voucher is not valid yet")
	ErrExpired                = apperr.Failure("Voucher.Expired", "voucher has expired")
	ErrUsageLimitReached      = apperr.Failure("Voucher.UsageLimitReached", "voucher usage limit reached")
	ErrUserLimitReached       = apperr.Failure("Voucher.UserLimitReached", "you have already used this voucher the maximum number of times")
	ErrMinimumOrderNotMet     = apperr.Failure("Voucher.MinimumOrderNotMet", "order amount is below the voucher minimum")
	ErrNotApplicable          = apperr.Failure("Voucher.NotApplicable", "voucher does not apply to this booking")
	ErrNotFound               = apperr.NotFound("Voucher.NotFound", "voucher not found")
	ErrCodeExists             = apperr.Conflict("Voucher.CodeAlreadyExists", "a voucher with this code already exists")
)
