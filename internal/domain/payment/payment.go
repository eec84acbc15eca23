// Package payment is the gateway-agnostic payment state machine attached to
// a booking.
package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

type Method string

const (
	MethodVNPay   Method = "vnpay"
	MethodCard    Method = "card"
	MethodWallet  Method = "wallet"
	MethodCash    Method = "cash"
	MethodSandbox Method = "sandbox"
)

func (m Method) Valid() bool {
	switch m {
	case MethodVNPay, MethodCard, MethodWallet, MethodCash, MethodSandbox:
		return true
	}
	return false
}

type Payment struct {
	ID            ids.PaymentID   `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID     ids.BookingID   `json:"booking_id" gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);not null"`
	Method        Method          `json:"method" gorm:"type:varchar(16);not null"`
	Status        Status          `json:"status" gorm:"type:varchar(16);not null;index"`
	TransactionID *string         `json:"transaction_id,omitempty" gorm:"type:varchar(100);index"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty" gorm:"type:text"`
	RefundID      *string         `json:"refund_id,omitempty" gorm:"type:varchar(100)"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty"`
	domain.Timestamps
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) EntityID() ids.PaymentID { return p.ID }

var _ domain.Entity[ids.PaymentID] = (*Payment)(nil)

func New(booking ids.BookingID, amount decimal.Decimal, method Method, now time.Time) (*Payment, error) {
	var errs []error
	if !amount.IsPositive() {
		errs = append(errs, ErrInvalidAmount)
	}
	if !method.Valid() {
		errs = append(errs, ErrInvalidMethod.WithMessage("unsupported payment method %q", method))
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}
	return &Payment{
		ID:         ids.New[ids.PaymentID](),
		BookingID:  booking,
		Amount:     money.Round(amount),
		Method:     method,
		Status:     StatusPending,
		Timestamps: domain.NewTimestamps(now),
	}, nil
}

func (p *Payment) MarkAsProcessing(now time.Time) error {
	if p.Status != StatusPending {
		return p.invalidTransition(StatusProcessing)
	}
	p.Status = StatusProcessing
	p.Touch(now)
	return nil
}

func (p *Payment) MarkAsSuccess(transactionID string, now time.Time) error {
	if p.Status != StatusProcessing {
		return p.invalidTransition(StatusSuccess)
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrTransactionIDRequired
	}
	p.Status = StatusSuccess
	p.TransactionID = &transactionID
	p.PaidAt = &now
	p.Touch(now)
	return nil
}

func (p *Payment) MarkAsFailed(reason string, now time.Time) error {
	if p.IsSettled() {
		return ErrCannotFailCompleted
	}
	p.Status = StatusFailed
	if reason = strings.TrimSpace(reason); reason != "" {
		p.FailureReason = &reason
	}
	p.Touch(now)
	return nil
}

func (p *Payment) MarkAsRefunded(refundID string, now time.Time) error {
	if p.Status != StatusSuccess {
		return p.invalidTransition(StatusRefunded)
	}
	p.Status = StatusRefunded
	if refundID != "" {
		p.RefundID = &refundID
	}
	p.RefundedAt = &now
	p.Touch(now)
	return nil
}

func (p *Payment) Cancel(now time.Time) error {
	if p.IsSettled() {
		return ErrCannotCancelCompleted
	}
	p.Status = StatusCancelled
	p.Touch(now)
	return nil
}

// IsSettled is true once money has moved.
func (p *Payment) IsSettled() bool {
	return p.Status == StatusSuccess || p.Status == StatusRefunded
}

// IsOpen is true while the payment can still succeed.
func (p *Payment) IsOpen() bool {
	return p.Status == StatusPending || p.Status == StatusProcessing
}

func (p *Payment) invalidTransition(to Status) error {
	return ErrInvalidStatusTransition.WithMessage("cannot move payment from %s to %s", p.Status, to)
}
