package wallet

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

type SettlementStatus string

const (
	SettlementPending    SettlementStatus = "pending"
	SettlementProcessing SettlementStatus = "processing"
	SettlementCompleted  SettlementStatus = "completed"
	SettlementFailed     SettlementStatus = "failed"
	SettlementCancelled  SettlementStatus = "cancelled"
)

// Settlement is a payout of a wallet's earnings over [PeriodStart,
// PeriodEnd). NetAmount is fixed at creation.
type Settlement struct {
	ID               ids.SettlementID   `json:"id" gorm:"type:uuid;primaryKey"`
	WalletID         ids.WalletID       `json:"wallet_id" gorm:"type:uuid;not null;index"`
	PeriodStart      time.Time          `json:"period_start" gorm:"not null"`
	PeriodEnd        time.Time          `json:"period_end" gorm:"not null"`
	TotalAmount      decimal.Decimal    `json:"total_amount" gorm:"type:decimal(18,2);not null"`
	CommissionAmount decimal.Decimal    `json:"commission_amount" gorm:"type:decimal(18,2);not null"`
	NetAmount        decimal.Decimal    `json:"net_amount" gorm:"type:decimal(18,2);not null"`
	Status           SettlementStatus   `json:"status" gorm:"type:varchar(16);not null;index"`
	TransactionID    *ids.TransactionID `json:"transaction_id,omitempty" gorm:"type:uuid"`
	FailureReason    *string            `json:"failure_reason,omitempty" gorm:"type:text"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	domain.Timestamps
}

func (Settlement) TableName() string { return "settlements" }

func (s *Settlement) EntityID() ids.SettlementID { return s.ID }

var _ domain.Entity[ids.SettlementID] = (*Settlement)(nil)

func NewSettlement(wallet ids.WalletID, periodStart, periodEnd time.Time, total, commission decimal.Decimal, now time.Time) (*Settlement, error) {
	var errs []error
	if !periodEnd.After(periodStart) {
		errs = append(errs, ErrInvalidPeriod)
	}
	if !total.IsPositive() {
		errs = append(errs, ErrInvalidSettlementAmount)
	}
	if commission.IsNegative() || commission.GreaterThan(total) {
		errs = append(errs, ErrInvalidCommission)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}
	total, commission = money.Round(total), money.Round(commission)
	return &Settlement{
		ID:               ids.New[ids.SettlementID](),
		WalletID:         wallet,
		PeriodStart:      periodStart.UTC(),
		PeriodEnd:        periodEnd.UTC(),
		TotalAmount:      total,
		CommissionAmount: commission,
		NetAmount:        total.Sub(commission),
		Status:           SettlementPending,
		Timestamps:       domain.NewTimestamps(now),
	}, nil
}

// Process starts a pending settlement or retries a failed one.
func (s *Settlement) Process(now time.Time) error {
	switch s.Status {
	case SettlementCompleted:
		return ErrAlreadyProcessed
	case SettlementPending, SettlementFailed:
		s.Status = SettlementProcessing
		s.FailureReason = nil
		s.Touch(now)
		return nil
	}
	return s.invalidTransition(SettlementProcessing)
}

// Complete records the payout transaction.
func (s *Settlement) Complete(txn ids.TransactionID, now time.Time) error {
	switch s.Status {
	case SettlementCompleted:
		return ErrAlreadyProcessed
	case SettlementProcessing:
		s.Status = SettlementCompleted
		s.TransactionID = &txn
		s.PaidAt = &now
		s.Touch(now)
		return nil
	}
	return s.invalidTransition(SettlementCompleted)
}

func (s *Settlement) Fail(reason string, now time.Time) error {
	switch s.Status {
	case SettlementCompleted:
		return ErrAlreadyProcessed
	case SettlementPending, SettlementProcessing:
		s.Status = SettlementFailed
		if reason = strings.TrimSpace(reason); reason != "" {
			s.FailureReason = &reason
		}
		s.Touch(now)
		return nil
	}
	return s.invalidTransition(SettlementFailed)
}

func (s *Settlement) Cancel(now time.Time) error {
	if s.Status != SettlementPending {
		return ErrCannotCancel
	}
	s.Status = SettlementCancelled
	s.Touch(now)
	return nil
}

// IsOpen is true while the settlement still claims its period.
func (s *Settlement) IsOpen() bool {
	return s.Status != SettlementCancelled && s.Status != SettlementFailed
}

func (s *Settlement) invalidTransition(to SettlementStatus) error {
	return ErrSettlementTransition.WithMessage("cannot move settlement from %s to %s", s.Status, to)
}
