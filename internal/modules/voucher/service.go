package voucher

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"staybook/internal/cache"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/voucher"
	"staybook/internal/jobs"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/money"
	"staybook/internal/pkg/pipeline"
)

type Service struct {
	vouchers *voucher.Repository
	catalog  *catalog.Repository
	clock    clock.Clock

	create  pipeline.Handler[CreateRequest, *voucher.Voucher]
	disable pipeline.Handler[DisableRequest, *voucher.Voucher]
	preview pipeline.Handler[PreviewRequest, *Quote]
}

// NewService wires the voucher use cases. Previews are cached in quotes for
// quoteTTL when quotes is non-nil.
func NewService(db *gorm.DB, quotes cache.Cache, quoteTTL time.Duration, queue jobs.Enqueuer, clk clock.Clock, stages pipeline.Stages) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		vouchers: voucher.NewRepository(db),
		catalog:  catalog.NewRepository(db),
		clock:    clk,
	}

	s.create = pipeline.Chain(s.createVoucher, append(
		pipeline.Standard[CreateRequest, *voucher.Voucher]("voucher.create", stages),
		pipeline.Audit(queue, func(req CreateRequest, res *voucher.Voucher) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "voucher.create",
				ActorID:  req.Actor.String(),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"code": res.Code, "type": string(res.DiscountType), "value": res.DiscountValue.StringFixed(2)},
			}
		}),
	)...)

	s.disable = pipeline.Chain(s.disableVoucher, append(
		pipeline.Standard[DisableRequest, *voucher.Voucher]("voucher.disable", stages),
		pipeline.Audit(queue, func(req DisableRequest, res *voucher.Voucher) jobs.AuditEntry {
			return jobs.AuditEntry{Action: "voucher.disable", ActorID: req.Actor.String(), EntityID: res.ID.String()}
		}),
	)...)

	s.preview = pipeline.Chain(s.previewVoucher, append(
		pipeline.Standard[PreviewRequest, *Quote]("voucher.preview", stages),
		pipeline.Caching[PreviewRequest, *Quote](quotes, "quote", quoteTTL, previewKey),
	)...)
	return s
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*voucher.Voucher, error) {
	return s.create(ctx, req)
}

// Disable stops further redemptions. Bookings that already used the voucher
// keep their discount.
func (s *Service) Disable(ctx context.Context, req DisableRequest) (*voucher.Voucher, error) {
	return s.disable(ctx, req)
}

// Preview quotes the discount a voucher would give on amount without
// consuming it. Business rejections come back as an invalid quote.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*Quote, error) {
	return s.preview(ctx, req)
}

func (s *Service) Get(ctx context.Context, code string) (*View, error) {
	v, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return &View{Voucher: v, RemainingUses: v.RemainingUses()}, nil
}

// List returns every voucher to admins and their own vouchers to everyone
// else.
func (s *Service) List(ctx context.Context, actor ids.AccountID, role string) ([]voucher.Voucher, error) {
	if role == jwt.RoleAdmin {
		return s.vouchers.List(ctx, ids.AccountID{})
	}
	return s.vouchers.List(ctx, actor)
}

// ExpireVouchers marks active vouchers whose end date has passed as
// expired.
func (s *Service) ExpireVouchers(ctx context.Context) (int64, error) {
	return s.vouchers.ExpireVouchers(ctx, s.clock.Now())
}

func (s *Service) createVoucher(ctx context.Context, req CreateRequest) (*voucher.Voucher, error) {
	targets := make([]voucher.TargetSpec, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, voucher.TargetSpec{Scope: t.Scope, TargetID: t.TargetID})
	}
	if req.Role != jwt.RoleAdmin {
		if err := s.checkTargetsOwned(ctx, req.Actor, targets); err != nil {
			return nil, err
		}
	}

	v, err := voucher.New(voucher.Params{
		Code:                  req.Code,
		Description:           req.Description,
		DiscountType:          req.DiscountType,
		DiscountValue:         req.DiscountValue,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimit:            req.UsageLimit,
		UsageLimitPerUser:     req.UsageLimitPerUser,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		CreatedBy:             req.Actor,
		Targets:               targets,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.vouchers.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// checkTargetsOwned keeps partner vouchers inside the partner's own
// properties. A partner voucher needs at least one target.
func (s *Service) checkTargetsOwned(ctx context.Context, actor ids.AccountID, targets []voucher.TargetSpec) error {
	if len(targets) == 0 {
		return ErrTargetNotOwned.WithMessage("partner vouchers must target a property, room type or partner")
	}
	owned, err := s.catalog.ListByOwner(ctx, actor)
	if err != nil {
		return err
	}
	properties := make(map[ids.PropertyID]bool, len(owned))
	partners := make(map[ids.PartnerID]bool)
	for _, p := range owned {
		properties[p.ID] = true
		partners[p.PartnerID] = true
	}

	for _, t := range targets {
		if t.TargetID == nil {
			return ErrTargetNotOwned
		}
		ok := false
		switch t.Scope {
		case voucher.ScopePartner:
			ok = partners[ids.PartnerID(*t.TargetID)]
		case voucher.ScopeProperty:
			ok = properties[ids.PropertyID(*t.TargetID)]
		case voucher.ScopeRoomType:
			rt, err := s.catalog.GetRoomType(ctx, ids.RoomTypeID(*t.TargetID))
			if err != nil && !errors.Is(err, catalog.ErrRoomTypeNotFound) {
				return err
			}
			ok = rt != nil && properties[rt.PropertyID]
		}
		if !ok {
			return ErrTargetNotOwned
		}
	}
	return nil
}

func (s *Service) disableVoucher(ctx context.Context, req DisableRequest) (*voucher.Voucher, error) {
	v, err := s.vouchers.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if req.Role != jwt.RoleAdmin && v.CreatedBy != req.Actor {
		return nil, ErrForbidden
	}
	v.Disable(s.clock.Now())
	if err := s.vouchers.SaveStatus(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) previewVoucher(ctx context.Context, req PreviewRequest) (*Quote, error) {
	if req.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	v, err := s.vouchers.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	amount := money.Round(req.Amount)
	q := &Quote{
		Code:        v.Code,
		Amount:      amount,
		Discount:    money.Zero,
		FinalAmount: amount,
		Remaining:   v.RemainingUses(),
	}

	subject := voucher.Subject{PropertyID: req.PropertyID, RoomTypes: req.RoomTypeIDs}
	if !req.PropertyID.IsZero() {
		p, err := s.catalog.GetProperty(ctx, req.PropertyID)
		if err != nil {
			return nil, err
		}
		subject.PartnerID = p.PartnerID
	}

	err = v.Check(s.clock.Now())
	if err == nil && !voucher.AppliesTo(v.Targets, subject) {
		err = voucher.ErrNotApplicable
	}
	if err == nil {
		err = v.MeetsMinimumOrder(amount)
	}
	if err != nil {
		if apperr.IsTyped(err) && apperr.CategoryOf(err) == apperr.CategoryFailure {
			q.Reason = apperr.List(err)[0].Message
			return q, nil
		}
		return nil, err
	}

	q.Valid = true
	q.Discount = v.CalculateDiscount(amount)
	q.FinalAmount = money.SubtractFloor(amount, q.Discount)
	return q, nil
}

func previewKey(req PreviewRequest) (string, bool) {
	rooms := make([]string, 0, len(req.RoomTypeIDs))
	for _, rt := range req.RoomTypeIDs {
		rooms = append(rooms, rt.String())
	}
	sort.Strings(rooms)
	return strings.Join([]string{
		voucher.NormalizeCode(req.Code),
		money.Round(req.Amount).StringFixed(2),
		req.PropertyID.String(),
		strings.Join(rooms, ","),
	}, "|"), true
}
