package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
	"staybook/internal/store"
)

// Repository serialises balance changes per wallet: every Credit or Debit
// locks the wallet row, applies the change in memory and writes it back
// guarded by the version it read.
type Repository struct {
	db          *gorm.DB
	uow         *store.UnitOfWork
	wallets     *store.Repository[Wallet, ids.WalletID]
	txns        *store.Repository[Transaction, ids.TransactionID]
	settlements *store.Repository[Settlement, ids.SettlementID]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		uow:         store.NewUnitOfWork(db),
		wallets:     store.NewRepository[Wallet, ids.WalletID](db, ErrNotFound),
		txns:        store.NewRepository[Transaction, ids.TransactionID](db, ErrTransactionNotFound),
		settlements: store.NewRepository[Settlement, ids.SettlementID](db, ErrSettlementNotFound),
	}
}

// GetOrCreate returns the account's wallet, creating an empty one on first
// use. A concurrent create is resolved by reading the winner.
func (r *Repository) GetOrCreate(ctx context.Context, account ids.AccountID, now time.Time) (*Wallet, error) {
	w, err := r.GetByAccount(ctx, account)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	w = NewWallet(account, now)
	if err := r.wallets.Add(ctx, w); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return r.GetByAccount(ctx, account)
		}
		return nil, err
	}
	return w, nil
}

func (r *Repository) GetByAccount(ctx context.Context, account ids.AccountID) (*Wallet, error) {
	var w Wallet
	if err := store.DB(ctx, r.db).Where("account_id = ?", account).First(&w).Error; err != nil {
		return nil, store.Translate(err, ErrNotFound)
	}
	w.Balance = money.Round(w.Balance)
	return &w, nil
}

func (r *Repository) GetByID(ctx context.Context, id ids.WalletID) (*Wallet, error) {
	w, err := r.wallets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Balance = money.Round(w.Balance)
	return w, nil
}

// GetForUpdate locks the wallet row until the surrounding unit of work ends.
func (r *Repository) GetForUpdate(ctx context.Context, id ids.WalletID) (*Wallet, error) {
	w, err := r.wallets.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Balance = money.Round(w.Balance)
	return w, nil
}

func (r *Repository) ListWallets(ctx context.Context) ([]Wallet, error) {
	return r.wallets.Query(ctx, func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") })
}

// Credit adds amount to the wallet and appends a completed positive entry.
func (r *Repository) Credit(ctx context.Context, walletID ids.WalletID, amount decimal.Decimal, e Entry) (*Wallet, *Transaction, error) {
	return r.apply(ctx, walletID, amount, e, (*Wallet).Credit)
}

// Debit subtracts amount and appends a completed negative entry. It fails
// with ErrInsufficientFunds against the locked balance.
func (r *Repository) Debit(ctx context.Context, walletID ids.WalletID, amount decimal.Decimal, e Entry) (*Wallet, *Transaction, error) {
	return r.apply(ctx, walletID, amount.Neg(), e, func(w *Wallet, a decimal.Decimal, now time.Time) error {
		return w.Debit(a.Neg(), now)
	})
}

func (r *Repository) apply(ctx context.Context, walletID ids.WalletID, signed decimal.Decimal, e Entry, change func(*Wallet, decimal.Decimal, time.Time) error) (*Wallet, *Transaction, error) {
	var (
		wallet *Wallet
		txn    *Transaction
	)
	now := e.At
	if now.IsZero() {
		return nil, nil, ErrMissingEntryTime
	}
	err := r.uow.Do(ctx, func(ctx context.Context) error {
		w, err := r.wallets.GetForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		w.Balance = money.Round(w.Balance)
		if err := change(w, signed, now); err != nil {
			return err
		}

		res := store.DB(ctx, r.db).Model(&Wallet{}).
			Where("id = ? AND version = ?", w.ID, w.Version).
			Updates(map[string]any{"balance": w.Balance, "version": w.Version + 1, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrStale
		}
		w.Version++

		t, err := NewTransaction(w.ID, signed, e, now)
		if err != nil {
			return err
		}
		t.BalanceAfter = w.Balance
		if err := t.Complete(now); err != nil {
			return err
		}
		if err := r.txns.Add(ctx, t); err != nil {
			return err
		}
		wallet, txn = w, t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return wallet, txn, nil
}

// TxnFilter narrows ListTransactions. Zero fields are ignored; the period
// is [From, To).
type TxnFilter struct {
	Type      TransactionType
	Status    TransactionStatus
	BookingID *ids.BookingID
	From      time.Time
	To        time.Time
	Limit     int
}

func (r *Repository) ListTransactions(ctx context.Context, walletID ids.WalletID, f TxnFilter) ([]Transaction, error) {
	return r.txns.Query(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("wallet_id = ?", walletID)
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.BookingID != nil {
			q = q.Where("booking_id = ?", *f.BookingID)
		}
		if !f.From.IsZero() {
			q = q.Where("created_at >= ?", f.From)
		}
		if !f.To.IsZero() {
			q = q.Where("created_at < ?", f.To)
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		return q.Order("created_at DESC")
	})
}

// SumTransactions adds up the absolute amounts of the matching entries.
func (r *Repository) SumTransactions(ctx context.Context, walletID ids.WalletID, f TxnFilter) (decimal.Decimal, error) {
	f.Limit = 0
	rows, err := r.ListTransactions(ctx, walletID, f)
	if err != nil {
		return money.Zero, err
	}
	sum := money.Zero
	for _, t := range rows {
		sum = sum.Add(t.Amount.Abs())
	}
	return money.Round(sum), nil
}

// ReverseBookingEntries marks the completed entries of the given types for
// a booking as reversed and returns them.
func (r *Repository) ReverseBookingEntries(ctx context.Context, walletID ids.WalletID, booking ids.BookingID, now time.Time, types ...TransactionType) ([]Transaction, error) {
	var out []Transaction
	err := r.uow.Do(ctx, func(ctx context.Context) error {
		var rows []Transaction
		err := store.DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("wallet_id = ? AND booking_id = ? AND status = ? AND type IN ?", walletID, booking, TxnCompleted, types).
			Find(&rows).Error
		if err != nil {
			return err
		}
		for i := range rows {
			if err := rows[i].Reverse(now); err != nil {
				return err
			}
			err := store.DB(ctx, r.db).Model(&Transaction{}).Where("id = ?", rows[i].ID).
				Updates(map[string]any{"status": rows[i].Status, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		out = rows
		return nil
	})
	return out, err
}

func (r *Repository) CreateSettlement(ctx context.Context, s *Settlement) error {
	return r.settlements.Add(ctx, s)
}

func (r *Repository) GetSettlement(ctx context.Context, id ids.SettlementID) (*Settlement, error) {
	return r.settlements.GetByID(ctx, id)
}

func (r *Repository) GetSettlementForUpdate(ctx context.Context, id ids.SettlementID) (*Settlement, error) {
	return r.settlements.GetForUpdate(ctx, id)
}

func (r *Repository) SaveSettlement(ctx context.Context, s *Settlement) error {
	return r.settlements.Update(ctx, s)
}

func (r *Repository) ListSettlements(ctx context.Context, walletID ids.WalletID) ([]Settlement, error) {
	return r.settlements.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("wallet_id = ?", walletID).Order("period_start DESC")
	})
}

// HasOpenSettlement reports whether a settlement that is neither cancelled
// nor failed overlaps [start, end).
func (r *Repository) HasOpenSettlement(ctx context.Context, walletID ids.WalletID, start, end time.Time) (bool, error) {
	var n int64
	err := store.DB(ctx, r.db).Model(&Settlement{}).
		Where("wallet_id = ? AND status NOT IN ? AND period_start < ? AND period_end > ?",
			walletID, []SettlementStatus{SettlementCancelled, SettlementFailed}, end, start).
		Count(&n).Error
	return n > 0, err
}
