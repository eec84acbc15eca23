// Package sandbox is a local payment gateway for development and tests. It
// signs redirect URLs and callbacks with HMAC-SHA256 over the sorted fields.
package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook/internal/domain/payment"
)

const (
	FieldOrderID       = "order_id"
	FieldAmount        = "amount"
	FieldOrderInfo     = "order_info"
	FieldReturnURL     = "return_url"
	FieldTransactionID = "transaction_id"
	FieldResponseCode  = "response_code"
	FieldMessage       = "message"
	FieldSignature     = "signature"

	CodeSuccess = "00"
)

type Gateway struct {
	secret  []byte
	baseURL string
}

var _ payment.Gateway = (*Gateway)(nil)

func New(secret, baseURL string) *Gateway {
	return &Gateway{secret: []byte(secret), baseURL: baseURL}
}

func (g *Gateway) CreatePaymentURL(_ context.Context, orderID string, amount decimal.Decimal, orderInfo, returnURL string) (string, error) {
	fields := map[string]string{
		FieldOrderID:   orderID,
		FieldAmount:    amount.StringFixed(2),
		FieldOrderInfo: orderInfo,
		FieldReturnURL: returnURL,
	}
	q := url.Values{}
	for k, v := range fields {
		if v != "" {
			q.Set(k, v)
		}
	}
	q.Set(FieldSignature, g.Sign(fields))
	return g.baseURL + "?" + q.Encode(), nil
}

// VerifyCallback checks the signature and decodes the callback fields.
// Response code "00" is a success.
func (g *Gateway) VerifyCallback(_ context.Context, fields map[string]string) (*payment.CallbackResult, error) {
	sig := fields[FieldSignature]
	if sig == "" || !hmac.Equal([]byte(strings.ToLower(sig)), []byte(g.Sign(fields))) {
		return nil, payment.ErrInvalidSignature
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(fields[FieldAmount]))
	if err != nil {
		return nil, payment.ErrAmountMismatch.WithMessage("callback amount %q is not a number", fields[FieldAmount])
	}
	code := fields[FieldResponseCode]
	return &payment.CallbackResult{
		Success:       code == CodeSuccess,
		TransactionID: fields[FieldTransactionID],
		Amount:        amount,
		OrderID:       fields[FieldOrderID],
		ResponseCode:  code,
		Message:       fields[FieldMessage],
	}, nil
}

func (g *Gateway) Refund(_ context.Context, transactionID string, amount decimal.Decimal, _ string) (string, error) {
	if strings.TrimSpace(transactionID) == "" {
		return "", payment.ErrTransactionIDRequired
	}
	if !amount.IsPositive() {
		return "", payment.ErrInvalidAmount
	}
	return "rf_" + uuid.NewString(), nil
}

// Sign returns the hex HMAC of every non-empty field except the signature,
// joined as k=v pairs in key order.
func (g *Gateway) Sign(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if k != FieldSignature && v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// Callback builds the signed fields the sandbox sends back for an order.
func (g *Gateway) Callback(orderID string, amount decimal.Decimal, transactionID, responseCode string) map[string]string {
	fields := map[string]string{
		FieldOrderID:       orderID,
		FieldAmount:        amount.StringFixed(2),
		FieldTransactionID: transactionID,
		FieldResponseCode:  responseCode,
	}
	if responseCode != CodeSuccess {
		fields[FieldMessage] = fmt.Sprintf("declined with code %s", responseCode)
	}
	fields[FieldSignature] = g.Sign(fields)
	return fields
}
