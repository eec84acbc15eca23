package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"staybook/internal/domain/wallet"
	"staybook/internal/jobs"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/pipeline"
	"staybook/internal/store"
)

type Service struct {
	uow     *store.UnitOfWork
	wallets *wallet.Repository
	queue   jobs.Enqueuer
	clock   clock.Clock

	settle     pipeline.Handler[SettleRequest, *wallet.Settlement]
	transition pipeline.Handler[TransitionRequest, *wallet.Settlement]
}

func NewService(db *gorm.DB, queue jobs.Enqueuer, clk clock.Clock, stages pipeline.Stages) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		uow:     store.NewUnitOfWork(db),
		wallets: wallet.NewRepository(db),
		queue:   queue,
		clock:   clk,
	}

	s.settle = pipeline.Chain(s.createSettlement, append(
		pipeline.Standard[SettleRequest, *wallet.Settlement]("settlement.create", stages),
		pipeline.Audit(queue, func(req SettleRequest, res *wallet.Settlement) jobs.AuditEntry {
			e := jobs.AuditEntry{
				Action:   "settlement.create",
				EntityID: res.ID.String(),
				Detail: map[string]any{
					"wallet_id": res.WalletID.String(),
					"total":     res.TotalAmount.StringFixed(2),
					"net":       res.NetAmount.StringFixed(2),
				},
			}
			if !req.Actor.IsZero() {
				e.ActorID = req.Actor.String()
			}
			return e
		}),
	)...)

	s.transition = pipeline.Chain(s.applyTransition, append(
		pipeline.Standard[TransitionRequest, *wallet.Settlement]("settlement.transition", stages),
		pipeline.Audit(queue, func(req TransitionRequest, res *wallet.Settlement) jobs.AuditEntry {
			e := jobs.AuditEntry{
				Action:   "settlement." + string(req.Action),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"status": string(res.Status)},
			}
			if !req.Actor.IsZero() {
				e.ActorID = req.Actor.String()
			}
			return e
		}),
	)...)
	return s
}

// Settle opens a pending settlement for the wallet's completed payments in
// [PeriodStart, PeriodEnd). Commission taken in the period is the
// settlement's commission.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*wallet.Settlement, error) {
	return s.settle(ctx, req)
}

func (s *Service) Process(ctx context.Context, id ids.SettlementID, actor ids.AccountID) (*wallet.Settlement, error) {
	return s.transition(ctx, TransitionRequest{SettlementID: id, Action: ActionProcess, Actor: actor})
}

// Complete pays the net amount out of the wallet.
func (s *Service) Complete(ctx context.Context, id ids.SettlementID, actor ids.AccountID) (*wallet.Settlement, error) {
	return s.transition(ctx, TransitionRequest{SettlementID: id, Action: ActionComplete, Actor: actor})
}

func (s *Service) Fail(ctx context.Context, id ids.SettlementID, reason string, actor ids.AccountID) (*wallet.Settlement, error) {
	return s.transition(ctx, TransitionRequest{SettlementID: id, Action: ActionFail, Reason: reason, Actor: actor})
}

func (s *Service) Cancel(ctx context.Context, id ids.SettlementID, actor ids.AccountID) (*wallet.Settlement, error) {
	return s.transition(ctx, TransitionRequest{SettlementID: id, Action: ActionCancel, Actor: actor})
}

func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*wallet.Settlement, error) {
	return s.transition(ctx, req)
}

func (s *Service) Get(ctx context.Context, id ids.SettlementID) (*wallet.Settlement, error) {
	return s.wallets.GetSettlement(ctx, id)
}

func (s *Service) ListForWallet(ctx context.Context, walletID ids.WalletID) ([]wallet.Settlement, error) {
	return s.wallets.ListSettlements(ctx, walletID)
}

// ListForAccount lists the settlements of the account's wallet. An account
// without a wallet has none.
func (s *Service) ListForAccount(ctx context.Context, account ids.AccountID) ([]wallet.Settlement, error) {
	w, err := s.wallets.GetByAccount(ctx, account)
	if errors.Is(err, wallet.ErrNotFound) {
		return []wallet.Settlement{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.wallets.ListSettlements(ctx, w.ID)
}

// SettleAll settles every wallet for the period with at most limit wallets
// in flight. Wallets with nothing to settle or an open settlement for the
// period are skipped; other per-wallet failures are counted and logged.
func (s *Service) SettleAll(ctx context.Context, periodStart, periodEnd time.Time, limit int) (*Summary, error) {
	wallets, err := s.wallets.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}

	var (
		mu  sync.Mutex
		sum = &Summary{Created: []wallet.Settlement{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, w := range wallets {
		w := w
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st, err := s.Settle(gctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sum.Created = append(sum.Created, *st)
			case errors.Is(err, wallet.ErrNothingToSettle), errors.Is(err, wallet.ErrPeriodAlreadySettled):
				sum.Skipped++
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				sum.Failed++
				logger.Ctx(ctx).Error().Err(err).Str("wallet_id", w.ID.String()).Msg("settle wallet failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (s *Service) createSettlement(ctx context.Context, req SettleRequest) (*wallet.Settlement, error) {
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, wallet.ErrInvalidPeriod
	}
	now := s.clock.Now()
	var st *wallet.Settlement
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		// Concurrent settlements of one wallet queue up on the row lock, so
		// the overlap check below sees every committed settlement.
		if _, err := s.wallets.GetForUpdate(ctx, req.WalletID); err != nil {
			return err
		}
		open, err := s.wallets.HasOpenSettlement(ctx, req.WalletID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if open {
			return wallet.ErrPeriodAlreadySettled
		}

		period := wallet.TxnFilter{Status: wallet.TxnCompleted, From: req.PeriodStart, To: req.PeriodEnd}
		period.Type = wallet.TypePayment
		total, err := s.wallets.SumTransactions(ctx, req.WalletID, period)
		if err != nil {
			return err
		}
		if !total.IsPositive() {
			return wallet.ErrNothingToSettle
		}
		period.Type = wallet.TypeCommission
		commission, err := s.wallets.SumTransactions(ctx, req.WalletID, period)
		if err != nil {
			return err
		}

		st, err = wallet.NewSettlement(req.WalletID, req.PeriodStart, req.PeriodEnd, total, commission, now)
		if err != nil {
			return err
		}
		return s.wallets.CreateSettlement(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) applyTransition(ctx context.Context, req TransitionRequest) (*wallet.Settlement, error) {
	now := s.clock.Now()
	var (
		st    *wallet.Settlement
		owner ids.AccountID
	)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		st, err = s.wallets.GetSettlementForUpdate(ctx, req.SettlementID)
		if err != nil {
			return err
		}

		switch req.Action {
		case ActionProcess:
			err = st.Process(now)
		case ActionFail:
			err = st.Fail(req.Reason, now)
		case ActionCancel:
			err = st.Cancel(now)
		case ActionComplete:
			err = s.payOut(ctx, st, now)
			if err == nil {
				var w *wallet.Wallet
				if w, err = s.wallets.GetByID(ctx, st.WalletID); err == nil {
					owner = w.AccountID
				}
			}
		default:
			err = fmt.Errorf("unknown settlement action %q", req.Action)
		}
		if err != nil {
			return err
		}
		return s.wallets.SaveSettlement(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	if !owner.IsZero() {
		nerr := jobs.Notify(ctx, s.queue, jobs.Notification{
			AccountID: owner,
			Event:     "settlement.completed",
			Data:      map[string]any{"settlement_id": st.ID.String(), "net_amount": st.NetAmount.StringFixed(2)},
		})
		if nerr != nil {
			logger.Ctx(ctx).Warn().Err(nerr).Msg("notification enqueue failed")
		}
	}
	return st, nil
}

// payOut debits the net amount and completes the settlement with the
// payout transaction.
func (s *Service) payOut(ctx context.Context, st *wallet.Settlement, now time.Time) error {
	if st.Status != wallet.SettlementProcessing {
		// Let the entity report the precise transition error.
		return st.Complete(ids.TransactionID{}, now)
	}
	_, txn, err := s.wallets.Debit(ctx, st.WalletID, st.NetAmount, wallet.Entry{
		Type:        wallet.TypeSettlement,
		Description: fmt.Sprintf("Settlement %s to %s", st.PeriodStart.Format(time.DateOnly), st.PeriodEnd.Format(time.DateOnly)),
		At:          now,
	})
	if err != nil {
		return err
	}
	return st.Complete(txn.ID, now)
}
