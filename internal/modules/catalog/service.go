package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"staybook/internal/domain/catalog"
	"staybook/internal/domain/inventory"
	"staybook/internal/jobs"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/pipeline"
	"staybook/internal/store"
)

const (
	maxRangeNights     = 366
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

type Service struct {
	uow       *store.UnitOfWork
	catalog   *catalog.Repository
	inventory *inventory.Repository
	clock     clock.Clock

	createProperty  pipeline.Handler[CreatePropertyRequest, *catalog.Property]
	createRoomType  pipeline.Handler[CreateRoomTypeRequest, *catalog.RoomType]
	setAvailability pipeline.Handler[SetAvailabilityRequest, []inventory.Availability]
	createPromotion pipeline.Handler[CreatePromotionRequest, *inventory.Promotion]
	togglePromotion pipeline.Handler[TogglePromotionRequest, *inventory.Promotion]
}

func NewService(db *gorm.DB, queue jobs.Enqueuer, clk clock.Clock, stages pipeline.Stages) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		uow:       store.NewUnitOfWork(db),
		catalog:   catalog.NewRepository(db),
		inventory: inventory.NewRepository(db),
		clock:     clk,
	}

	s.createProperty = pipeline.Chain(s.addProperty, append(
		pipeline.Standard[CreatePropertyRequest, *catalog.Property]("property.create", stages),
		pipeline.Audit(queue, func(req CreatePropertyRequest, res *catalog.Property) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "property.create",
				ActorID:  req.Actor.String(),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"owner_account_id": res.OwnerAccountID.String()},
			}
		}),
	)...)

	s.createRoomType = pipeline.Chain(s.addRoomType, append(
		pipeline.Standard[CreateRoomTypeRequest, *catalog.RoomType]("room_type.create", stages),
		pipeline.Audit(queue, func(req CreateRoomTypeRequest, res *catalog.RoomType) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "room_type.create",
				ActorID:  req.Actor.String(),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"property_id": res.PropertyID.String()},
			}
		}),
	)...)

	s.setAvailability = pipeline.Chain(s.applyAvailability, append(
		pipeline.Standard[SetAvailabilityRequest, []inventory.Availability]("availability.set", stages),
		pipeline.Audit(queue, func(req SetAvailabilityRequest, res []inventory.Availability) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "availability.set",
				ActorID:  req.Actor.String(),
				EntityID: req.RoomTypeID.String(),
				Detail: map[string]any{
					"from":     req.From.Format(time.DateOnly),
					"to":       req.To.Format(time.DateOnly),
					"quantity": req.Quantity,
					"price":    req.Price.StringFixed(2),
				},
			}
		}),
	)...)

	s.createPromotion = pipeline.Chain(s.addPromotion, append(
		pipeline.Standard[CreatePromotionRequest, *inventory.Promotion]("promotion.create", stages),
		pipeline.Audit(queue, func(req CreatePromotionRequest, res *inventory.Promotion) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "promotion.create",
				ActorID:  req.Actor.String(),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"room_type_id": res.RoomTypeID.String()},
			}
		}),
	)...)

	s.togglePromotion = pipeline.Chain(s.applyToggle, append(
		pipeline.Standard[TogglePromotionRequest, *inventory.Promotion]("promotion.toggle", stages),
		pipeline.Audit(queue, func(req TogglePromotionRequest, res *inventory.Promotion) jobs.AuditEntry {
			return jobs.AuditEntry{
				Action:   "promotion." + string(req.Action),
				ActorID:  req.Actor.String(),
				EntityID: res.ID.String(),
				Detail:   map[string]any{"status": string(res.Status)},
			}
		}),
	)...)
	return s
}

/* ---------- PROPERTIES ---------- */

func (s *Service) CreateProperty(ctx context.Context, req CreatePropertyRequest) (*catalog.Property, error) {
	return s.createProperty(ctx, req)
}

// GetProperty returns the property with its active room types.
func (s *Service) GetProperty(ctx context.Context, id ids.PropertyID) (*catalog.Property, error) {
	p, err := s.catalog.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, catalog.ErrPropertyNotFound
	}
	if p.RoomTypes, err = s.catalog.ListRoomTypes(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Search(ctx context.Context, q SearchQuery) ([]catalog.Property, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.catalog.Search(ctx, q.City, limit)
}

func (s *Service) ListMine(ctx context.Context, owner ids.AccountID) ([]catalog.Property, error) {
	return s.catalog.ListByOwner(ctx, owner)
}

func (s *Service) addProperty(ctx context.Context, req CreatePropertyRequest) (*catalog.Property, error) {
	owner, partner := req.Actor, req.PartnerID
	if req.Role == jwt.RoleAdmin {
		if req.OwnerAccountID.IsZero() {
			return nil, ErrOwnerRequired
		}
		owner = req.OwnerAccountID
	}
	if partner.IsZero() || req.Role != jwt.RoleAdmin {
		var err error
		if partner, err = s.partnerOf(ctx, owner); err != nil {
			return nil, err
		}
	}

	p, err := catalog.NewProperty(partner, owner, req.Name, req.Address, req.City, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.catalog.CreateProperty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// partnerOf reuses the partner of the owner's existing properties. A first
// property opens a partner keyed by the owner's account id.
func (s *Service) partnerOf(ctx context.Context, owner ids.AccountID) (ids.PartnerID, error) {
	owned, err := s.catalog.ListByOwner(ctx, owner)
	if err != nil {
		return ids.PartnerID{}, err
	}
	if len(owned) > 0 {
		return owned[0].PartnerID, nil
	}
	return ids.PartnerID(owner), nil
}

// ownedProperty loads a property the actor may manage.
func (s *Service) ownedProperty(ctx context.Context, id ids.PropertyID, actor ids.AccountID, role string) (*catalog.Property, error) {
	p, err := s.catalog.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != jwt.RoleAdmin && p.OwnerAccountID != actor {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) ownedRoomType(ctx context.Context, id ids.RoomTypeID, actor ids.AccountID, role string) (*catalog.RoomType, error) {
	rt, err := s.catalog.GetRoomType(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProperty(ctx, rt.PropertyID, actor, role); err != nil {
		return nil, err
	}
	return rt, nil
}

/* ---------- ROOM TYPES ---------- */

func (s *Service) CreateRoomType(ctx context.Context, req CreateRoomTypeRequest) (*catalog.RoomType, error) {
	return s.createRoomType(ctx, req)
}

func (s *Service) addRoomType(ctx context.Context, req CreateRoomTypeRequest) (*catalog.RoomType, error) {
	if _, err := s.ownedProperty(ctx, req.PropertyID, req.Actor, req.Role); err != nil {
		return nil, err
	}
	rt, err := catalog.NewRoomType(req.PropertyID, req.Name, req.Capacity, req.BasePrice, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.catalog.CreateRoomType(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

/* ---------- AVAILABILITY ---------- */

// SetAvailability sets stock and price for every night of the range. Stock
// moves by the difference to the stored quantity, so rooms booked meanwhile
// are never handed out twice.
func (s *Service) SetAvailability(ctx context.Context, req SetAvailabilityRequest) ([]inventory.Availability, error) {
	return s.setAvailability(ctx, req)
}

func (s *Service) applyAvailability(ctx context.Context, req SetAvailabilityRequest) ([]inventory.Availability, error) {
	from, to := clock.Date(req.From), clock.Date(req.To)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if from.Before(clock.Date(now)) {
		return nil, inventory.ErrDateInPast
	}
	if !req.Price.IsPositive() {
		return nil, inventory.ErrInvalidPrice
	}
	if _, err := s.ownedRoomType(ctx, req.RoomTypeID, req.Actor, req.Role); err != nil {
		return nil, err
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		for _, day := range clock.Days(from, to) {
			if err := s.setNight(ctx, req, day, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.inventory.ListAvailability(ctx, req.RoomTypeID, from, to)
}

func (s *Service) setNight(ctx context.Context, req SetAvailabilityRequest, day, now time.Time) error {
	current, err := s.inventory.GetAvailability(ctx, req.RoomTypeID, day)
	if errors.Is(err, inventory.ErrAvailabilityNotFound) {
		a, err := inventory.NewAvailability(req.RoomTypeID, day, req.Quantity, req.Price, now)
		if err != nil {
			return err
		}
		return s.inventory.CreateAvailability(ctx, a)
	}
	if err != nil {
		return err
	}

	switch delta := req.Quantity - current.AvailableQuantity; {
	case delta > 0:
		err = s.inventory.IncrementQuantity(ctx, req.RoomTypeID, day, delta, now)
	case delta < 0:
		err = s.inventory.DecrementQuantity(ctx, req.RoomTypeID, day, -delta, now)
	}
	if err != nil {
		return err
	}
	if !current.Price.Equal(req.Price) {
		return s.inventory.SetPrice(ctx, req.RoomTypeID, day, req.Price, now)
	}
	return nil
}

// Calendar prices every stocked night of [from, to) with the best promotion
// active on that night.
func (s *Service) Calendar(ctx context.Context, roomType ids.RoomTypeID, from, to time.Time) ([]Night, error) {
	from, to = clock.Date(from), clock.Date(to)
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetRoomType(ctx, roomType); err != nil {
		return nil, err
	}
	rows, err := s.inventory.ListAvailability(ctx, roomType, from, to)
	if err != nil {
		return nil, err
	}

	nights := make([]Night, 0, len(rows))
	for _, a := range rows {
		promos, err := s.inventory.ActivePromotions(ctx, roomType, a.Date)
		if err != nil {
			return nil, err
		}
		final, applied := inventory.BestPrice(a.Price, promos, a.Date)
		n := Night{Date: a.Date, Available: a.AvailableQuantity, Price: a.Price, FinalPrice: final}
		if applied != nil {
			id := applied.ID
			n.PromotionID = &id
		}
		nights = append(nights, n)
	}
	return nights, nil
}

func checkRange(from, to time.Time) error {
	if !to.After(from) {
		return ErrInvalidRange
	}
	if clock.Nights(from, to) > maxRangeNights {
		return ErrRangeTooLong
	}
	return nil
}

/* ---------- PROMOTIONS ---------- */

func (s *Service) CreatePromotion(ctx context.Context, req CreatePromotionRequest) (*inventory.Promotion, error) {
	return s.createPromotion(ctx, req)
}

func (s *Service) addPromotion(ctx context.Context, req CreatePromotionRequest) (*inventory.Promotion, error) {
	if _, err := s.ownedRoomType(ctx, req.RoomTypeID, req.Actor, req.Role); err != nil {
		return nil, err
	}
	p, err := inventory.NewPromotion(inventory.PromotionParams{
		RoomTypeID:      req.RoomTypeID,
		Name:            req.Name,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.inventory.CreatePromotion(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPromotions(ctx context.Context, roomType ids.RoomTypeID) ([]PromotionView, error) {
	promos, err := s.inventory.ListPromotions(ctx, roomType)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]PromotionView, 0, len(promos))
	for i := range promos {
		out = append(out, PromotionView{Promotion: &promos[i], Active: promos[i].IsActive(now)})
	}
	return out, nil
}

func (s *Service) TogglePromotion(ctx context.Context, req TogglePromotionRequest) (*inventory.Promotion, error) {
	return s.togglePromotion(ctx, req)
}

func (s *Service) applyToggle(ctx context.Context, req TogglePromotionRequest) (*inventory.Promotion, error) {
	p, err := s.inventory.GetPromotion(ctx, req.PromotionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedRoomType(ctx, p.RoomTypeID, req.Actor, req.Role); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if req.Action == PromotionActivate {
		if err := p.Activate(now); err != nil {
			return nil, err
		}
	} else {
		p.Deactivate(now)
	}
	if err := s.inventory.UpdatePromotion(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ExpirePromotions marks promotions whose end date has passed as expired.
func (s *Service) ExpirePromotions(ctx context.Context) (int64, error) {
	return s.inventory.ExpirePromotions(ctx, s.clock.Now())
}
