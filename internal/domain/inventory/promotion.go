package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

type PromotionStatus string

const (
	PromotionActive   PromotionStatus = "active"
	PromotionInactive PromotionStatus = "inactive"
	PromotionExpired  PromotionStatus = "expired"
)

var hundred = decimal.NewFromInt(100)

// Promotion is a time-boxed discount on a room type's nightly price. Exactly
// one of DiscountPercent and DiscountAmount is set.
type Promotion struct {
	ID              ids.RoomPromotionID `json:"id" gorm:"type:uuid;primaryKey"`
	RoomTypeID      ids.RoomTypeID      `json:"room_type_id" gorm:"type:uuid;not null;index"`
	Name            string              `json:"name" gorm:"type:varchar(200)"`
	DiscountPercent decimal.NullDecimal `json:"discount_percent" gorm:"type:decimal(5,2)"`
	DiscountAmount  decimal.NullDecimal `json:"discount_amount" gorm:"type:decimal(18,2)"`
	StartDate       time.Time           `json:"start_date" gorm:"not null;index"`
	EndDate         time.Time           `json:"end_date" gorm:"not null;index"`
	Status          PromotionStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	domain.Timestamps
}

func (Promotion) TableName() string { return "room_promotions" }

func (p *Promotion) EntityID() ids.RoomPromotionID { return p.ID }

var _ domain.Entity[ids.RoomPromotionID] = (*Promotion)(nil)

type PromotionParams struct {
	RoomTypeID      ids.RoomTypeID
	Name            string
	DiscountPercent *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	StartDate       time.Time
	EndDate         time.Time
}

// NewPromotion creates an active promotion.
func NewPromotion(p PromotionParams, now time.Time) (*Promotion, error) {
	var errs []error
	switch {
	case p.DiscountPercent != nil && p.DiscountAmount != nil:
		errs = append(errs, ErrBothDiscountTypes)
	case p.DiscountPercent == nil && p.DiscountAmount == nil:
		errs = append(errs, ErrNoDiscountDefined)
	case p.DiscountPercent != nil:
		if !p.DiscountPercent.IsPositive() || p.DiscountPercent.GreaterThan(hundred) {
			errs = append(errs, ErrInvalidDiscountPct)
		}
	default:
		if !p.DiscountAmount.IsPositive() {
			errs = append(errs, ErrInvalidDiscountAmount)
		}
	}
	start, end := clock.Date(p.StartDate), clock.Date(p.EndDate)
	if !end.After(start) {
		errs = append(errs, ErrInvalidPromotionDates)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}

	promo := &Promotion{
		ID:         ids.New[ids.RoomPromotionID](),
		RoomTypeID: p.RoomTypeID,
		Name:       p.Name,
		StartDate:  start,
		EndDate:    end,
		Status:     PromotionActive,
		Timestamps: domain.NewTimestamps(now),
	}
	if p.DiscountPercent != nil {
		promo.DiscountPercent = decimal.NewNullDecimal(*p.DiscountPercent)
	} else {
		promo.DiscountAmount = decimal.NewNullDecimal(money.Round(*p.DiscountAmount))
	}
	return promo, nil
}

// IsActive is true when the status is active and today lies in
// [StartDate, EndDate], compared by calendar date.
func (p *Promotion) IsActive(now time.Time) bool {
	if p.Status != PromotionActive {
		return false
	}
	today := clock.Date(now)
	return !today.Before(clock.Date(p.StartDate)) && !today.After(clock.Date(p.EndDate))
}

// CalculateDiscountedPrice returns original unchanged when the promotion is
// not active.
func (p *Promotion) CalculateDiscountedPrice(original decimal.Decimal, now time.Time) decimal.Decimal {
	if !p.IsActive(now) {
		return original
	}
	if p.DiscountPercent.Valid {
		return money.ApplyPercent(original, p.DiscountPercent.Decimal)
	}
	return money.SubtractFloor(original, p.DiscountAmount.Decimal)
}

func (p *Promotion) Deactivate(now time.Time) {
	if p.Status == PromotionActive {
		p.Status = PromotionInactive
		p.Touch(now)
	}
}

func (p *Promotion) Activate(now time.Time) error {
	if p.Status == PromotionExpired || clock.Date(now).After(clock.Date(p.EndDate)) {
		return ErrPromotionExpired
	}
	p.Status = PromotionActive
	p.Touch(now)
	return nil
}

// MarkExpired flips the status once the end date has passed and reports
// whether it changed.
func (p *Promotion) MarkExpired(now time.Time) bool {
	if p.Status == PromotionExpired || !clock.Date(now).After(clock.Date(p.EndDate)) {
		return false
	}
	p.Status = PromotionExpired
	p.Touch(now)
	return true
}

// BestPrice applies whichever of promos yields the lowest price. It returns
// the original price and nil when none is active.
func BestPrice(original decimal.Decimal, promos []Promotion, now time.Time) (decimal.Decimal, *Promotion) {
	best := original
	var applied *Promotion
	for i := range promos {
		if !promos[i].IsActive(now) {
			continue
		}
		if price := promos[i].CalculateDiscountedPrice(original, now); price.LessThan(best) {
			best = price
			applied = &promos[i]
		}
	}
	return best, applied
}
