package payment

import (
	"staybook/internal/domain/payment"
	"staybook/internal/pkg/ids"
)

type InitiateRequest struct {
	BookingID ids.BookingID `json:"booking_id" validate:"required"`
	Actor     ids.AccountID `json:"-"`
	Role      string        `json:"-"`
}

type InitiateResult struct {
	Payment    *payment.Payment `json:"payment"`
	PaymentURL string           `json:"payment_url"`
}

// CallbackRequest carries the gateway's signed fields as received.
type CallbackRequest struct {
	Fields map[string]string `validate:"required,min=1"`
}

type RefundRequest struct {
	PaymentID ids.PaymentID `validate:"required"`
	Reason    string        `json:"reason" validate:"max=1000"`
	Actor     ids.AccountID
}

type initiateBody struct {
	BookingID ids.BookingID `json:"booking_id" binding:"required"`
}

type refundBody struct {
	Reason string `json:"reason"`
}
