package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/payment"
	"staybook/internal/domain/wallet"
	"staybook/internal/jobs"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/money"
	"staybook/internal/pkg/pipeline"
	"staybook/internal/store"
)

type Config struct {
	// CommissionRate is the platform's share of a payment, e.g. 0.10.
	CommissionRate decimal.Decimal
	ReturnURL      string
}

type Service struct {
	uow      *store.UnitOfWork
	payments *payment.Repository
	bookings *booking.Repository
	catalog  *catalog.Repository
	wallets  *wallet.Repository
	gateway  payment.Gateway
	queue    jobs.Enqueuer
	clock    clock.Clock
	cfg      Config

	initiate pipeline.Handler[InitiateRequest, *InitiateResult]
	callback pipeline.Handler[CallbackRequest, *payment.Payment]
	refund   pipeline.Handler[RefundRequest, *payment.Payment]
}

func NewService(db *gorm.DB, gateway payment.Gateway, queue jobs.Enqueuer, clk clock.Clock, cfg Config, stages pipeline.Stages) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		uow:      store.NewUnitOfWork(db),
		payments: payment.NewRepository(db),
		bookings: booking.NewRepository(db),
		catalog:  catalog.NewRepository(db),
		wallets:  wallet.NewRepository(db),
		gateway:  gateway,
		queue:    queue,
		clock:    clk,
		cfg:      cfg,
	}

	s.initiate = pipeline.Chain(s.initiatePayment, append(
		pipeline.Standard[InitiateRequest, *InitiateResult]("payment.initiate", stages),
		pipeline.Audit(queue, func(req InitiateRequest, res *InitiateResult) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "payment.initiate",
				ActorID:  req.Actor.String(),
				EntityID: res.Payment.ID.String(),
				Detail:   map[string]any{"booking_id": req.BookingID.String(), "amount": res.Payment.Amount.StringFixed(2)},
			}
		}),
	)...)

	s.callback = pipeline.Chain(s.handleCallback, append(
		pipeline.Standard[CallbackRequest, *payment.Payment]("payment.callback", stages),
		pipeline.Audit(queue, func(_ CallbackRequest, res *payment.Payment) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "payment.callback",
				EntityID: res.ID.String(),
				Detail:   map[string]any{"status": string(res.Status)},
			}
		}),
	)...)

	s.refund = pipeline.Chain(s.refundByID, append(
		pipeline.Standard[RefundRequest, *payment.Payment]("payment.refund", stages),
		pipeline.Audit(queue, func(req RefundRequest, res *payment.Payment) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "payment.refund",
				ActorID:  req.Actor.String(),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"reason": req.Reason},
			}
		}),
	)...)
	return s
}

// Initiate returns the gateway URL for the booking's payment and moves it
// to processing. Calling it again for a processing payment returns a fresh
// URL for the same payment.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	return s.initiate(ctx, req)
}

// HandleCallback applies a gateway result. Repeated callbacks for a settled
// payment are acknowledged without side effects.
func (s *Service) HandleCallback(ctx context.Context, fields map[string]string) (*payment.Payment, error) {
	return s.callback(ctx, CallbackRequest{Fields: fields})
}

// Refund returns a successful payment's money through the gateway and
// takes it back out of the owner's wallet. The booking is left as is.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (*payment.Payment, error) {
	return s.refund(ctx, req)
}

func (s *Service) Get(ctx context.Context, id ids.PaymentID) (*payment.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) initiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	now := s.clock.Now()
	var res InitiateResult
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if req.Role != jwt.RoleAdmin && req.Actor != b.UserID {
			return booking.ErrForbidden
		}
		if b.Status != booking.StatusPending {
			return ErrBookingNotPayable.WithMessage("booking is %s", b.Status)
		}

		p, err := s.payments.GetByBooking(ctx, b.ID)
		switch {
		case errors.Is(err, payment.ErrNotFound):
			p = nil
		case err != nil:
			return err
		}

		switch {
		case p != nil && p.IsSettled():
			return ErrAlreadyPaid
		case p == nil || !p.IsOpen():
			method := payment.MethodVNPay
			if p != nil {
				method = p.Method
			}
			if p, err = payment.New(b.ID, b.TotalPrice, method, now); err != nil {
				return err
			}
			if err := s.payments.Create(ctx, p); err != nil {
				return err
			}
		}
		if p.Status == payment.StatusPending {
			if err := p.MarkAsProcessing(now); err != nil {
				return err
			}
			if err := s.payments.Save(ctx, p); err != nil {
				return err
			}
		}

		url, err := s.gateway.CreatePaymentURL(ctx, p.ID.String(), p.Amount, "Booking "+b.ID.String(), s.cfg.ReturnURL)
		if err != nil {
			return fmt.Errorf("create payment url: %w", err)
		}
		res = InitiateResult{Payment: p, PaymentURL: url}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) handleCallback(ctx context.Context, req CallbackRequest) (*payment.Payment, error) {
	log := logger.Ctx(ctx)
	result, err := s.gateway.VerifyCallback(ctx, req.Fields)
	if err != nil {
		log.Warn().Err(err).Str("order_id", req.Fields["order_id"]).Msg("payment callback rejected")
		return nil, err
	}
	id, err := ids.Parse[ids.PaymentID](result.OrderID)
	if err != nil {
		return nil, payment.ErrNotFound.WithMessage("unknown order %q", result.OrderID)
	}

	now := s.clock.Now()
	var (
		p       *payment.Payment
		outcome error
		guest   ids.AccountID
	)
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.payments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if final(p, result.Success) {
			log.Info().Str("payment_id", p.ID.String()).Str("status", string(p.Status)).Msg("idempotent callback, payment already final")
			return nil
		}

		b, err := s.bookings.GetForUpdate(ctx, p.BookingID)
		if err != nil {
			return err
		}
		guest = b.UserID

		if !result.Amount.Equal(p.Amount) {
			reason := fmt.Sprintf("amount mismatch callback=%s expected=%s", result.Amount.StringFixed(2), p.Amount.StringFixed(2))
			log.Error().Str("payment_id", p.ID.String()).Msg(reason)
			outcome = payment.ErrAmountMismatch
			if err := p.MarkAsFailed(reason, now); err != nil {
				return err
			}
			return s.payments.Save(ctx, p)
		}

		if !result.Success {
			reason := result.Message
			if reason == "" {
				reason = "gateway response code " + result.ResponseCode
			}
			if err := p.MarkAsFailed(reason, now); err != nil {
				return err
			}
			return s.payments.Save(ctx, p)
		}

		// The booking was cancelled while the guest was paying.
		if p.Status == payment.StatusCancelled {
			refundID, err := s.gateway.Refund(ctx, result.TransactionID, p.Amount, "booking cancelled before payment completed")
			if err != nil {
				return fmt.Errorf("refund late payment: %w", err)
			}
			log.Warn().Str("payment_id", p.ID.String()).Str("refund_id", refundID).Msg("late payment refunded")
			p.RefundID = &refundID
			p.Touch(now)
			return s.payments.Save(ctx, p)
		}

		if p.Status == payment.StatusPending {
			if err := p.MarkAsProcessing(now); err != nil {
				return err
			}
		}
		if err := p.MarkAsSuccess(result.TransactionID, now); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, p); err != nil {
			return err
		}

		if b.Status == booking.StatusPending {
			if err := b.Confirm(ids.AccountID{}, now); err != nil {
				return err
			}
			if err := s.bookings.Save(ctx, b); err != nil {
				return err
			}
		}
		return s.creditOwner(ctx, b, p.Amount, now)
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}

	s.notify(ctx, guest, "payment."+string(p.Status), p)
	return p, nil
}

// final reports whether a callback can no longer change p.
func final(p *payment.Payment, success bool) bool {
	switch {
	case p.IsSettled():
		return true
	case p.Status == payment.StatusCancelled:
		return !success || p.RefundID != nil
	case p.Status == payment.StatusFailed:
		return !success
	}
	return false
}

// creditOwner books the gross payment into the property owner's wallet and
// takes the platform commission out of it.
func (s *Service) creditOwner(ctx context.Context, b *booking.Booking, gross decimal.Decimal, now time.Time) error {
	property, err := s.catalog.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return err
	}
	w, err := s.wallets.GetOrCreate(ctx, property.OwnerAccountID, now)
	if err != nil {
		return err
	}
	bookingID := b.ID
	_, _, err = s.wallets.Credit(ctx, w.ID, gross, wallet.Entry{
		Type:        wallet.TypePayment,
		BookingID:   &bookingID,
		Description: "Payment for booking " + b.ID.String(),
		At:          now,
	})
	if err != nil {
		return err
	}
	commission := money.Round(gross.Mul(s.cfg.CommissionRate))
	if !commission.IsPositive() {
		return nil
	}
	_, _, err = s.wallets.Debit(ctx, w.ID, commission, wallet.Entry{
		Type:        wallet.TypeCommission,
		BookingID:   &bookingID,
		Description: "Commission for booking " + b.ID.String(),
		At:          now,
	})
	return err
}

// ReleaseBooking cancels the open payment of a cancelled booking or refunds
// the successful one. It joins the caller's unit of work.
func (s *Service) ReleaseBooking(ctx context.Context, bookingID ids.BookingID, reason string) error {
	now := s.clock.Now()
	return s.uow.Do(ctx, func(ctx context.Context) error {
		latest, err := s.payments.GetByBooking(ctx, bookingID)
		if errors.Is(err, payment.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		p, err := s.payments.GetForUpdate(ctx, latest.ID)
		if err != nil {
			return err
		}
		switch {
		case p.IsOpen():
			if err := p.Cancel(now); err != nil {
				return err
			}
			return s.payments.Save(ctx, p)
		case p.Status == payment.StatusSuccess:
			if reason == "" {
				reason = "booking cancelled"
			}
			return s.refundPayment(ctx, p, reason, now)
		}
		return nil
	})
}

func (s *Service) refundByID(ctx context.Context, req RefundRequest) (*payment.Payment, error) {
	now := s.clock.Now()
	var (
		p     *payment.Payment
		guest ids.AccountID
	)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.payments.GetForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		if p.Status != payment.StatusSuccess {
			return ErrNotRefundable.WithMessage("payment is %s", p.Status)
		}
		b, err := s.bookings.GetByID(ctx, p.BookingID)
		if err != nil {
			return err
		}
		guest = b.UserID
		return s.refundPayment(ctx, p, req.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, guest, "payment.refunded", p)
	return p, nil
}

// refundPayment reverses the booking's wallet entries, debits what the owner
// kept and only then asks the gateway to refund, so a short wallet stops
// the refund before money leaves.
func (s *Service) refundPayment(ctx context.Context, p *payment.Payment, reason string, now time.Time) error {
	b, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return err
	}
	property, err := s.catalog.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return err
	}
	w, err := s.wallets.GetByAccount(ctx, property.OwnerAccountID)
	if err != nil {
		return err
	}

	reversed, err := s.wallets.ReverseBookingEntries(ctx, w.ID, b.ID, now, wallet.TypePayment, wallet.TypeCommission)
	if err != nil {
		return err
	}
	kept := money.Zero
	for _, t := range reversed {
		kept = kept.Add(t.Amount)
	}
	kept = money.Round(kept)
	if kept.IsPositive() {
		bookingID := b.ID
		_, _, err := s.wallets.Debit(ctx, w.ID, kept, wallet.Entry{
			Type:        wallet.TypeRefund,
			BookingID:   &bookingID,
			Description: "Refund for booking " + b.ID.String(),
			At:          now,
		})
		if err != nil {
			return err
		}
	}

	txn := ""
	if p.TransactionID != nil {
		txn = *p.TransactionID
	}
	refundID, err := s.gateway.Refund(ctx, txn, p.Amount, reason)
	if err != nil {
		return fmt.Errorf("gateway refund: %w", err)
	}
	if err := p.MarkAsRefunded(refundID, now); err != nil {
		return err
	}
	return s.payments.Save(ctx, p)
}

func (s *Service) notify(ctx context.Context, account ids.AccountID, event string, p *payment.Payment) {
	err := jobs.Notify(ctx, s.queue, jobs.Notification{
		AccountID: account,
		Event:     event,
		Data: map[string]any{
			"payment_id": p.ID.String(),
			"booking_id": p.BookingID.String(),
			"amount":     p.Amount.StringFixed(2),
		},
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("notification enqueue failed")
	}
}
