package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/inventory"
	"staybook/internal/domain/payment"
	"staybook/internal/domain/voucher"
	"staybook/internal/jobs"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/money"
	"staybook/internal/pkg/pipeline"
	"staybook/internal/store"
)

// Refunder settles the money side of a cancelled booking: an open payment
// is cancelled and a successful one refunded.
type Refunder interface {
	ReleaseBooking(ctx context.Context, bookingID ids.BookingID, reason string) error
}

type Service struct {
	uow       *store.UnitOfWork
	bookings  *booking.Repository
	catalog   *catalog.Repository
	inventory *inventory.Repository
	vouchers  *voucher.Repository
	payments  *payment.Repository
	refunds   Refunder
	queue     jobs.Enqueuer
	clock     clock.Clock

	create     pipeline.Handler[CreateRequest, *Result]
	transition pipeline.Handler[TransitionRequest, *booking.Booking]
}

func NewService(db *gorm.DB, refunds Refunder, queue jobs.Enqueuer, clk clock.Clock, stages pipeline.Stages) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		uow:       store.NewUnitOfWork(db),
		bookings:  booking.NewRepository(db),
		catalog:   catalog.NewRepository(db),
		inventory: inventory.NewRepository(db),
		vouchers:  voucher.NewRepository(db),
		payments:  payment.NewRepository(db),
		refunds:   refunds,
		queue:     queue,
		clock:     clk,
	}

	s.create = pipeline.Chain(s.createBooking, append(
		pipeline.Standard[CreateRequest, *Result]("booking.create", stages),
		pipeline.Audit(queue, func(req CreateRequest, res *Result) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "booking.create",
				ActorID:  req.UserID.String(),
				EntityID: res.Booking.ID.String(),
				Detail: map[string]any{
					"property_id": req.PropertyID.String(),
					"total":       res.Booking.TotalPrice.StringFixed(2),
				},
			}
		}),
	)...)

	s.transition = pipeline.Chain(s.applyTransition, append(
		pipeline.Standard[TransitionRequest, *booking.Booking]("booking.transition", stages),
		pipeline.Audit(queue, func(req TransitionRequest, res *booking.Booking) jobs.AuditEntry {
			e := jobs.AuditEntry{
				Action:   "booking." + string(req.Action),
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

// CreateBooking prices the stay, redeems the voucher, reserves inventory and
// opens a pending payment in one unit of work.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*Result, error) {
	return s.create(ctx, req)
}

func (s *Service) Confirm(ctx context.Context, id ids.BookingID, actor ids.AccountID, role string) (*booking.Booking, error) {
	return s.transition(ctx, TransitionRequest{BookingID: id, Action: ActionConfirm, Actor: actor, Role: role})
}

func (s *Service) CheckIn(ctx context.Context, id ids.BookingID, actor ids.AccountID, role string) (*booking.Booking, error) {
	return s.transition(ctx, TransitionRequest{BookingID: id, Action: ActionCheckIn, Actor: actor, Role: role})
}

func (s *Service) CheckOut(ctx context.Context, id ids.BookingID, actor ids.AccountID, role string) (*booking.Booking, error) {
	return s.transition(ctx, TransitionRequest{BookingID: id, Action: ActionCheckOut, Actor: actor, Role: role})
}

func (s *Service) Complete(ctx context.Context, id ids.BookingID, actor ids.AccountID, role string) (*booking.Booking, error) {
	return s.transition(ctx, TransitionRequest{BookingID: id, Action: ActionComplete, Actor: actor, Role: role})
}

// Cancel releases the booking's rooms and voucher use and settles its
// payment.
func (s *Service) Cancel(ctx context.Context, id ids.BookingID, reason string, actor ids.AccountID, role string) (*booking.Booking, error) {
	return s.transition(ctx, TransitionRequest{BookingID: id, Action: ActionCancel, Actor: actor, Role: role, Reason: reason})
}

func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*booking.Booking, error) {
	return s.transition(ctx, req)
}

type lineQuote struct {
	roomType catalog.RoomType
	quantity int
	nightly  []decimal.Decimal
	subtotal decimal.Decimal
}

func (s *Service) createBooking(ctx context.Context, req CreateRequest) (*Result, error) {
	now := s.clock.Now()

	v, err := s.loadVoucher(ctx, req.VoucherCode, now)
	if err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = payment.MethodVNPay
	}

	var (
		b     *booking.Booking
		p     *payment.Payment
		owner ids.AccountID
	)
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		property, err := s.catalog.GetProperty(ctx, req.PropertyID)
		if err != nil {
			return err
		}
		if !property.IsActive {
			return ErrPropertyInactive
		}
		owner = property.OwnerAccountID

		wanted := make([]ids.RoomTypeID, 0, len(req.Rooms))
		seen := make(map[ids.RoomTypeID]bool, len(req.Rooms))
		for _, line := range req.Rooms {
			if seen[line.RoomTypeID] {
				return ErrDuplicateRoomType.WithMessage("room type %s is listed twice", line.RoomTypeID)
			}
			seen[line.RoomTypeID] = true
			wanted = append(wanted, line.RoomTypeID)
		}
		roomTypes, err := s.catalog.RoomTypesOf(ctx, property.ID, wanted)
		if err != nil {
			return err
		}
		capacity := 0
		for _, line := range req.Rooms {
			capacity += roomTypes[line.RoomTypeID].Capacity * line.Quantity
		}
		if req.Guests > capacity {
			return ErrCapacityExceeded.WithMessage("%d guests do not fit in rooms for %d", req.Guests, capacity)
		}

		b, err = booking.New(booking.Params{
			UserID:          req.UserID,
			PropertyID:      property.ID,
			CheckIn:         req.CheckIn,
			CheckOut:        req.CheckOut,
			Guests:          req.Guests,
			TotalPrice:      money.Zero,
			SpecialRequests: req.SpecialRequests,
		}, now)
		if err != nil {
			return err
		}

		stay := b.Stay()
		quotes := make([]lineQuote, 0, len(req.Rooms))
		weights := make([]decimal.Decimal, 0, len(req.Rooms))
		subtotal := money.Zero
		for _, line := range req.Rooms {
			q, err := s.quoteLine(ctx, roomTypes[line.RoomTypeID], line.Quantity, stay)
			if err != nil {
				return err
			}
			quotes = append(quotes, q)
			weights = append(weights, q.subtotal)
			subtotal = subtotal.Add(q.subtotal)
		}

		discounts := make([]decimal.Decimal, len(quotes))
		for i := range discounts {
			discounts[i] = money.Zero
		}
		if v != nil {
			subject := voucher.Subject{PartnerID: property.PartnerID, PropertyID: property.ID, RoomTypes: wanted}
			discount, err := s.redeem(ctx, v, req.UserID, b.ID, subject, subtotal, now)
			if err != nil {
				return err
			}
			discounts = spread(discount, weights)
			b.ApplyVoucher(v.Code, discount, now)
		}

		for i, q := range quotes {
			if _, err := b.AddNightlyDetail(q.roomType.ID, q.quantity, q.nightly, discounts[i], now); err != nil {
				return err
			}
			for _, night := range stay {
				if err := s.inventory.DecrementQuantity(ctx, q.roomType.ID, night, q.quantity, now); err != nil {
					return err
				}
			}
		}
		b.TotalPrice = b.DetailsTotal()

		// A fully discounted stay has nothing to pay.
		if !b.TotalPrice.IsPositive() {
			if err := b.Confirm(ids.AccountID{}, now); err != nil {
				return err
			}
			return s.bookings.Create(ctx, b)
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		p, err = payment.New(b.ID, b.TotalPrice, method, now)
		if err != nil {
			return err
		}
		return s.payments.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, owner, "booking.created", b)
	s.notify(ctx, b.UserID, "booking.created", b)
	return &Result{Booking: b, Payment: p}, nil
}

// loadVoucher resolves and checks a voucher before the unit of work opens so
// that an expiry found on the way is persisted even though the booking
// fails.
func (s *Service) loadVoucher(ctx context.Context, code string, now time.Time) (*voucher.Voucher, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	v, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateForUse(now); err != nil {
		if errors.Is(err, voucher.ErrExpired) {
			if serr := s.vouchers.SaveStatus(ctx, v); serr != nil {
				logger.Ctx(ctx).Warn().Err(serr).Str("voucher", v.Code).Msg("persist voucher expiry")
			}
		}
		return nil, err
	}
	return v, nil
}

// quoteLine prices one room-type line night by night, applying the best
// promotion running on each night.
func (s *Service) quoteLine(ctx context.Context, rt catalog.RoomType, quantity int, stay []time.Time) (lineQuote, error) {
	nightly := make([]decimal.Decimal, 0, len(stay))
	sum := money.Zero
	for _, night := range stay {
		a, err := s.inventory.GetAvailability(ctx, rt.ID, night)
		if errors.Is(err, inventory.ErrAvailabilityNotFound) {
			return lineQuote{}, ErrRoomNotAvailable.WithMessage("%s is not available on %s", rt.Name, night.Format(time.DateOnly))
		}
		if err != nil {
			return lineQuote{}, err
		}
		if a.AvailableQuantity < quantity {
			return lineQuote{}, inventory.ErrInsufficientQuantity.WithMessage("only %d %s room(s) left on %s",
				a.AvailableQuantity, rt.Name, night.Format(time.DateOnly))
		}
		promos, err := s.inventory.ActivePromotions(ctx, rt.ID, night)
		if err != nil {
			return lineQuote{}, err
		}
		price, _ := inventory.BestPrice(a.Price, promos, night)
		price = money.Round(price)
		nightly = append(nightly, price)
		sum = sum.Add(price)
	}
	return lineQuote{
		roomType: rt,
		quantity: quantity,
		nightly:  nightly,
		subtotal: money.Round(sum.Mul(decimal.NewFromInt(int64(quantity)))),
	}, nil
}

// redeem consumes one use of v for the booking and returns the discount on
// orderAmount. The usage increment runs first: it locks the voucher row, so
// the per-user count below sees every committed redemption.
func (s *Service) redeem(ctx context.Context, v *voucher.Voucher, user ids.AccountID, bookingID ids.BookingID, subject voucher.Subject, orderAmount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !voucher.AppliesTo(v.Targets, subject) {
		return money.Zero, voucher.ErrNotApplicable
	}
	if err := v.MeetsMinimumOrder(orderAmount); err != nil {
		return money.Zero, err
	}
	if err := s.vouchers.IncrementUsage(ctx, v.ID, now); err != nil {
		return money.Zero, err
	}
	if v.UsageLimitPerUser != nil {
		used, err := s.vouchers.CountUserRedemptions(ctx, v.ID, user)
		if err != nil {
			return money.Zero, err
		}
		if used >= int64(*v.UsageLimitPerUser) {
			return money.Zero, voucher.ErrUserLimitReached
		}
	}
	if err := s.vouchers.RecordRedemption(ctx, v.ID, user, bookingID, now); err != nil {
		return money.Zero, err
	}
	return v.CalculateDiscount(orderAmount), nil
}

// spread allocates discount over the line subtotals without letting any
// line go below zero.
func spread(discount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	total := money.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	if !discount.LessThan(total) {
		out := make([]decimal.Decimal, len(weights))
		copy(out, weights)
		return out
	}
	out := money.Allocate(discount, weights)
	excess := money.Zero
	for i := range out {
		if out[i].GreaterThan(weights[i]) {
			excess = excess.Add(out[i].Sub(weights[i]))
			out[i] = weights[i]
		}
	}
	for i := range out {
		if !excess.IsPositive() {
			break
		}
		room := money.Min(weights[i].Sub(out[i]), excess)
		out[i] = out[i].Add(room)
		excess = excess.Sub(room)
	}
	return out
}

func (s *Service) applyTransition(ctx context.Context, req TransitionRequest) (*booking.Booking, error) {
	now := s.clock.Now()
	var (
		b     *booking.Booking
		owner ids.AccountID
	)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.bookings.GetForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		property, err := s.catalog.GetProperty(ctx, b.PropertyID)
		if err != nil {
			return err
		}
		owner = property.OwnerAccountID
		if !allowed(req, b, owner) {
			return booking.ErrForbidden
		}

		switch req.Action {
		case ActionConfirm:
			err = b.Confirm(req.Actor, now)
		case ActionCheckIn:
			err = b.CheckIn(req.Actor, now)
		case ActionCheckOut:
			err = b.CheckOut(req.Actor, now)
		case ActionComplete:
			err = b.Complete(req.Actor, now)
		case ActionCancel:
			err = s.cancel(ctx, b, req, now)
		default:
			err = ErrUnknownAction
		}
		if err != nil {
			return err
		}
		return s.bookings.Save(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	event := "booking." + string(req.Action)
	s.notify(ctx, b.UserID, event, b)
	if req.Action == ActionCancel {
		s.notify(ctx, owner, event, b)
	}
	return b, nil
}

// cancel gives back every night of every line, the voucher use, and the
// money. The refund runs last so a gateway failure rolls back the rest.
func (s *Service) cancel(ctx context.Context, b *booking.Booking, req TransitionRequest, now time.Time) error {
	if err := b.Cancel(req.Reason, req.Actor, now); err != nil {
		return err
	}
	for _, d := range b.Details {
		for _, night := range b.Stay() {
			err := s.inventory.IncrementQuantity(ctx, d.RoomTypeID, night, d.Quantity, now)
			if errors.Is(err, inventory.ErrAvailabilityNotFound) {
				logger.Ctx(ctx).Warn().Str("booking_id", b.ID.String()).Str("room_type_id", d.RoomTypeID.String()).
					Time("night", night).Msg("availability row missing on release")
				continue
			}
			if err != nil {
				return err
			}
		}
	}

	red, err := s.vouchers.ReleaseRedemption(ctx, b.ID, now)
	if err != nil {
		return err
	}
	if red != nil {
		if err := s.vouchers.DecrementUsage(ctx, red.VoucherID, now); err != nil {
			return err
		}
	}

	if s.refunds == nil {
		return nil
	}
	return s.refunds.ReleaseBooking(ctx, b.ID, req.Reason)
}

// allowed: admins and the system do anything, the property owner runs the
// stay, the guest may only cancel.
func allowed(req TransitionRequest, b *booking.Booking, owner ids.AccountID) bool {
	switch {
	case req.Actor.IsZero(), req.Role == jwt.RoleAdmin:
		return true
	case req.Actor == owner:
		return true
	case req.Actor == b.UserID:
		return req.Action == ActionCancel
	}
	return false
}

// Get returns the booking with its latest payment to the guest, the
// property owner or an admin.
func (s *Service) Get(ctx context.Context, id ids.BookingID, actor ids.AccountID, role string) (*Result, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != jwt.RoleAdmin && actor != b.UserID {
		property, err := s.catalog.GetProperty(ctx, b.PropertyID)
		if err != nil {
			return nil, err
		}
		if actor != property.OwnerAccountID {
			return nil, booking.ErrForbidden
		}
	}
	res := &Result{Booking: b}
	p, err := s.payments.GetByBooking(ctx, b.ID)
	switch {
	case err == nil:
		res.Payment = p
	case !errors.Is(err, payment.ErrNotFound):
		return nil, err
	}
	return res, nil
}

func (s *Service) ListMine(ctx context.Context, user ids.AccountID, q ListQuery) ([]booking.Booking, error) {
	return s.bookings.ListByUser(ctx, user, q.Limit, q.Offset)
}

// ListForProperty is limited to the property owner and admins.
func (s *Service) ListForProperty(ctx context.Context, property ids.PropertyID, status booking.Status, actor ids.AccountID, role string, q ListQuery) ([]booking.Booking, error) {
	p, err := s.catalog.GetProperty(ctx, property)
	if err != nil {
		return nil, err
	}
	if role != jwt.RoleAdmin && actor != p.OwnerAccountID {
		return nil, booking.ErrForbidden
	}
	return s.bookings.ListByProperty(ctx, property, status, q.Limit, q.Offset)
}

func (s *Service) notify(ctx context.Context, account ids.AccountID, event string, b *booking.Booking) {
	err := jobs.Notify(ctx, s.queue, jobs.Notification{
		AccountID: account,
		Event:     event,
		Data: map[string]any{
			"booking_id": b.ID.String(),
			"status":     string(b.Status),
			"check_in":   b.CheckInDate.Format(time.DateOnly),
		},
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("notification enqueue failed")
	}
}
