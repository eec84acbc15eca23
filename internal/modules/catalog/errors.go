package catalog

import "staybook/internal/pkg/apperr"

var (
	ErrForbidden     = apperr.Forbidden("Property.Forbidden", "property belongs to another partner")
	ErrInvalidDate   = apperr.Validation("Catalog.InvalidDate", "dates must be formatted as YYYY-MM-DD")
	ErrInvalidRange  = apperr.Validation("Catalog.InvalidRange", "range end must be after its start")
	ErrRangeTooLong  = apperr.Validation("Catalog.RangeTooLong", "a range may span at most 366 nights")
	ErrOwnerRequired = apperr.Validation("Property.OwnerRequired", "owner_account_id is required when an admin creates a property")
)
