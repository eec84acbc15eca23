package settlement

import "staybook/internal/pkg/apperr"

var (
	ErrInvalidDate    = apperr.Validation("Settlement.InvalidDateFormat", "dates must be YYYY-MM-DD")
	ErrWalletRequired = apperr.Validation("Settlement.WalletRequired", "wallet_id is required")
)
