package wallet

import (
	"context"

	"gorm.io/gorm"

	"staybook/internal/domain/wallet"
	"staybook/internal/jobs"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/pipeline"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service struct {
	wallets *wallet.Repository
	queue   jobs.Enqueuer
	clock   clock.Clock

	withdraw pipeline.Handler[WithdrawRequest, *WithdrawResult]
}

func NewService(db *gorm.DB, queue jobs.Enqueuer, clk clock.Clock, stages pipeline.Stages) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		wallets: wallet.NewRepository(db),
		queue:   queue,
		clock:   clk,
	}
	s.withdraw = pipeline.Chain(s.withdrawFunds, append(
		pipeline.Standard[WithdrawRequest, *WithdrawResult]("wallet.withdraw", stages),
		pipeline.Audit(queue, func(req WithdrawRequest, res *WithdrawResult) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "wallet.withdraw",
				ActorID:  req.AccountID.String(),
				EntityID: res.Transaction.ID.String(),
				Detail:   map[string]any{"amount": res.Transaction.Amount.StringFixed(2), "balance": res.Wallet.Balance.StringFixed(2)},
			}
		}),
	)...)
	return s
}

// GetWallet returns the account's wallet, opening an empty one on first use.
func (s *Service) GetWallet(ctx context.Context, account ids.AccountID) (*wallet.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, account, s.clock.Now())
}

func (s *Service) ListTransactions(ctx context.Context, account ids.AccountID, q TransactionsQuery) ([]wallet.Transaction, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, wallet.ErrInvalidTransactionType.WithMessage("unknown transaction type %q", q.Type)
	}
	w, err := s.wallets.GetOrCreate(ctx, account, s.clock.Now())
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.wallets.ListTransactions(ctx, w.ID, wallet.TxnFilter{Type: q.Type, Limit: limit})
}

// Withdraw pays out part of the balance. The balance can never go negative.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	return s.withdraw(ctx, req)
}

func (s *Service) withdrawFunds(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	w, err := s.wallets.GetOrCreate(ctx, req.AccountID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	desc := req.Description
	if desc == "" {
		desc = "Withdrawal"
	}
	updated, txn, err := s.wallets.Debit(ctx, w.ID, req.Amount, wallet.Entry{
		Type:        wallet.TypeWithdrawal,
		Description: desc,
		At:          s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	err = jobs.Notify(ctx, s.queue, jobs.Notification{
		AccountID: req.AccountID,
		Event:     "wallet.withdrawn",
		Data:      map[string]any{"amount": req.Amount.StringFixed(2), "balance": updated.Balance.StringFixed(2)},
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("notification enqueue failed")
	}
	return &WithdrawResult{Wallet: updated, Transaction: txn}, nil
}
