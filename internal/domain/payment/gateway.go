package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// CallbackResult is what a gateway reports after verifying a callback.
type CallbackResult struct {
	Success       bool
	TransactionID string
	Amount        decimal.Decimal
	OrderID       string
	ResponseCode  string
	Message       string
}

// Gateway is the payment provider adapter. The payment state machine only
// moves on a result returned by VerifyCallback.
type Gateway interface {
	CreatePaymentURL(ctx context.Context, orderID string, amount decimal.Decimal, orderInfo, returnURL string) (string, error)
	VerifyCallback(ctx context.Context, fields map[string]string) (*CallbackResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) (string, error)
}
