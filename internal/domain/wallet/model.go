// Package wallet is the partner balance ledger: wallets, their signed
// transactions and the periodic settlements paid out of them.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"staybook/internal/domain"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

// Wallet holds an account's balance. Balance only changes through Credit and
// Debit; Version guards concurrent writers.
type Wallet struct {
	ID        ids.WalletID    `json:"id" gorm:"type:uuid;primaryKey"`
	AccountID ids.AccountID   `json:"account_id" gorm:"type:uuid;not null;uniqueIndex"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(18,2);not null;default:0"`
	Version   int64           `json:"-" gorm:"not null;default:0"`
	domain.Timestamps
}

func (Wallet) TableName() string { return "wallets" }

func (w *Wallet) EntityID() ids.WalletID { return w.ID }

var _ domain.Entity[ids.WalletID] = (*Wallet)(nil)

func (w *Wallet) BeforeCreate(_ *gorm.DB) error {
	if w.ID.IsZero() {
		w.ID = ids.New[ids.WalletID]()
	}
	return nil
}

func NewWallet(account ids.AccountID, now time.Time) *Wallet {
	return &Wallet{
		ID:         ids.New[ids.WalletID](),
		AccountID:  account,
		Balance:    money.Zero,
		Timestamps: domain.NewTimestamps(now),
	}
}

func (w *Wallet) Credit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return ErrInvalidTransactionAmount
	}
	w.Balance = money.Round(w.Balance.Add(amount))
	w.Touch(now)
	return nil
}

// Debit never leaves the balance negative.
func (w *Wallet) Debit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return ErrInvalidTransactionAmount
	}
	if amount.GreaterThan(w.Balance) {
		return ErrInsufficientFunds.WithMessage("balance %s is less than %s", w.Balance.StringFixed(2), amount.StringFixed(2))
	}
	w.Balance = money.Round(w.Balance.Sub(amount))
	w.Touch(now)
	return nil
}

type TransactionType string

const (
	TypePayment    TransactionType = "payment"
	TypeRefund     TransactionType = "refund"
	TypeSettlement TransactionType = "settlement"
	TypeCommission TransactionType = "commission"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypePayment, TypeRefund, TypeSettlement, TypeCommission, TypeDeposit, TypeWithdrawal:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
	TxnReversed  TransactionStatus = "reversed"
)

// Transaction is a signed ledger entry: credits are positive, debits
// negative. Rows are appended; only Status moves afterwards.
type Transaction struct {
	ID           ids.TransactionID `json:"id" gorm:"type:uuid;primaryKey"`
	WalletID     ids.WalletID      `json:"wallet_id" gorm:"type:uuid;not null;index"`
	BookingID    *ids.BookingID    `json:"booking_id,omitempty" gorm:"type:uuid;index"`
	Amount       decimal.Decimal   `json:"amount" gorm:"type:decimal(18,2);not null"`
	BalanceAfter decimal.Decimal   `json:"balance_after" gorm:"type:decimal(18,2);not null;default:0"`
	Type         TransactionType   `json:"type" gorm:"type:varchar(16);not null;index"`
	Status       TransactionStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Description  *string           `json:"description,omitempty" gorm:"type:text"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	domain.Timestamps
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) EntityID() ids.TransactionID { return t.ID }

var _ domain.Entity[ids.TransactionID] = (*Transaction)(nil)

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = ids.New[ids.TransactionID]()
	}
	return nil
}

// Entry describes the transaction a Credit or Debit appends. A zero At
// means now.
type Entry struct {
	Type        TransactionType
	BookingID   *ids.BookingID
	Description string
	At          time.Time
}

// NewTransaction returns a pending entry. Negative amounts are debits.
func NewTransaction(wallet ids.WalletID, amount decimal.Decimal, e Entry, now time.Time) (*Transaction, error) {
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if !e.Type.Valid() {
		return nil, ErrInvalidTransactionType.WithMessage("unknown transaction type %q", e.Type)
	}
	t := &Transaction{
		ID:         ids.New[ids.TransactionID](),
		WalletID:   wallet,
		BookingID:  e.BookingID,
		Amount:     money.Round(amount),
		Type:       e.Type,
		Status:     TxnPending,
		Timestamps: domain.NewTimestamps(now),
	}
	if e.Description != "" {
		desc := e.Description
		t.Description = &desc
	}
	return t, nil
}

func (t *Transaction) Complete(now time.Time) error {
	switch t.Status {
	case TxnCompleted:
		return ErrAlreadyCompleted
	case TxnPending:
		t.Status = TxnCompleted
		t.CompletedAt = &now
		t.Touch(now)
		return nil
	}
	return ErrTransactionTransition.WithMessage("cannot complete a %s transaction", t.Status)
}

func (t *Transaction) Fail(now time.Time) error {
	switch t.Status {
	case TxnCompleted, TxnReversed:
		return ErrCannotFailCompleted
	}
	t.Status = TxnFailed
	t.Touch(now)
	return nil
}

func (t *Transaction) Reverse(now time.Time) error {
	if t.Status != TxnCompleted {
		return ErrCannotReverse
	}
	t.Status = TxnReversed
	t.Touch(now)
	return nil
}
