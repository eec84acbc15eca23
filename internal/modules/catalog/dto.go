package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/inventory"
	"staybook/internal/pkg/ids"
)

// ---------- PROPERTIES ----------

// CreatePropertyRequest opens a property for Actor. Admins may create it on
// behalf of another owner.
type CreatePropertyRequest struct {
	Actor          ids.AccountID `json:"-" validate:"required"`
	Role           string        `json:"-"`
	OwnerAccountID ids.AccountID `json:"owner_account_id"`
	PartnerID      ids.PartnerID `json:"partner_id"`
	Name           string        `json:"name" validate:"required,max=200"`
	Address        string        `json:"address" validate:"max=300"`
	City           string        `json:"city" validate:"max=100"`
}

type SearchQuery struct {
	City  string `form:"city"`
	Limit int    `form:"limit"`
}

// ---------- ROOM TYPES ----------

type CreateRoomTypeRequest struct {
	Actor      ids.AccountID   `json:"-" validate:"required"`
	Role       string          `json:"-"`
	PropertyID ids.PropertyID  `json:"-" validate:"required"`
	Name       string          `json:"name" validate:"required,max=200"`
	Capacity   int             `json:"capacity"`
	BasePrice  decimal.Decimal `json:"base_price"`
}

// ---------- AVAILABILITY ----------

// SetAvailabilityRequest sets the stock and price of every night in
// [From, To).
type SetAvailabilityRequest struct {
	Actor      ids.AccountID `validate:"required"`
	Role       string
	RoomTypeID ids.RoomTypeID `validate:"required"`
	From       time.Time      `validate:"required"`
	To         time.Time      `validate:"required"`
	Quantity   int            `validate:"gte=0"`
	Price      decimal.Decimal
}

type availabilityBody struct {
	From     string          `json:"from" binding:"required"`
	To       string          `json:"to" binding:"required"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Night is one priced night of a room type's calendar.
type Night struct {
	Date        time.Time            `json:"date"`
	Available   int                  `json:"available"`
	Price       decimal.Decimal      `json:"price"`
	FinalPrice  decimal.Decimal      `json:"final_price"`
	PromotionID *ids.RoomPromotionID `json:"promotion_id,omitempty"`
}

// ---------- PROMOTIONS ----------

type CreatePromotionRequest struct {
	Actor           ids.AccountID `validate:"required"`
	Role            string
	RoomTypeID      ids.RoomTypeID `validate:"required"`
	Name            string         `validate:"max=200"`
	DiscountPercent *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	StartDate       time.Time `validate:"required"`
	EndDate         time.Time `validate:"required"`
}

type promotionBody struct {
	Name            string           `json:"name"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount"`
	StartDate       string           `json:"start_date" binding:"required"`
	EndDate         string           `json:"end_date" binding:"required"`
}

type PromotionAction string

const (
	PromotionActivate   PromotionAction = "activate"
	PromotionDeactivate PromotionAction = "deactivate"
)

type TogglePromotionRequest struct {
	Actor       ids.AccountID `validate:"required"`
	Role        string
	PromotionID ids.RoomPromotionID `validate:"required"`
	Action      PromotionAction     `validate:"oneof=activate deactivate"`
}

type PromotionView struct {
	*inventory.Promotion
	Active bool `json:"active"`
}
