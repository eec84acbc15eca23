package payment

import "staybook/internal/pkg/apperr"

var (
	ErrInvalidAmount           = apperr.Validation("Payment.InvalidAmount", "payment amount must be greater than zero")
	ErrInvalidMethod           = apperr.Validation("Payment.InvalidMethod", "unsupported payment method")
	ErrTransactionIDRequired   = apperr.Validation("Payment.TransactionIdRequired", "transaction id is required")
	ErrInvalidStatusTransition = apperr.Failure("Payment.InvalidStatusTransition", "payment cannot move to the requested status")
	ErrCannotFailCompleted     = apperr.Failure("Payment.CannotFailCompletedPayment", "a successful or refunded payment cannot fail")
	ErrCannotCancelCompleted   = apperr.Failure("Payment.CannotCancelCompletedPayment", "a successful or refunded payment cannot be cancelled")
	ErrInvalidSignature        = apperr.Unauthorized("Payment.InvalidSignature", "payment callback signature is invalid")
	ErrAmountMismatch          = apperr.Failure("Payment.AmountMismatch", "callback amount does not match the payment")
	ErrNotFound                = apperr.NotFound("Payment.NotFound", "payment not found")
	ErrAlreadyInProgress       = apperr.Conflict("Payment.AlreadyInProgress", "the booking already has an open payment")
)
