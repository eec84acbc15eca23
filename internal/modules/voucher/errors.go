package voucher

import "staybook/internal/pkg/apperr"

var (
	ErrForbidden      = apperr.Forbidden("Voucher.Forbidden", "you cannot manage this voucher")
	ErrTargetNotOwned = apperr.Forbidden("Voucher.TargetNotOwned", "partners can only target their own properties")
	ErrInvalidDate    = apperr.Validation("Voucher.InvalidDateFormat", "dates must be YYYY-MM-DD or RFC 3339")
	ErrInvalidAmount  = apperr.Validation("Voucher.InvalidPreviewAmount", "preview amount cannot be negative")
)
