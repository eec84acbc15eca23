package voucher

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook/internal/domain/voucher"
	"staybook/internal/pkg/ids"
)

type TargetBody struct {
	Scope    voucher.Scope `json:"scope" validate:"oneof=global partner property room_type"`
	TargetID *uuid.UUID    `json:"target_id,omitempty"`
}

type CreateRequest struct {
	Actor                 ids.AccountID        `json:"-" validate:"required"`
	Role                  string               `json:"-"`
	Code                  string               `json:"code" validate:"required,max=50"`
	Description           string               `json:"description" validate:"max=500"`
	DiscountType          voucher.DiscountType `json:"discount_type" validate:"oneof=percent amount"`
	DiscountValue         decimal.Decimal      `json:"discount_value"`
	MinimumOrderAmount    *decimal.Decimal     `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal     `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int                 `json:"usage_limit,omitempty"`
	UsageLimitPerUser     *int                 `json:"usage_limit_per_user,omitempty"`
	StartDate             time.Time            `json:"start_date" validate:"required"`
	EndDate               time.Time            `json:"end_date" validate:"required"`
	Targets               []TargetBody         `json:"targets" validate:"dive"`
}

// createBody is the JSON body of POST /vouchers. Dates are YYYY-MM-DD or
// RFC 3339.
type createBody struct {
	Code                  string               `json:"code" binding:"required"`
	Description           string               `json:"description"`
	DiscountType          voucher.DiscountType `json:"discount_type" binding:"required"`
	DiscountValue         decimal.Decimal      `json:"discount_value"`
	MinimumOrderAmount    *decimal.Decimal     `json:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal     `json:"maximum_discount_amount"`
	UsageLimit            *int                 `json:"usage_limit"`
	UsageLimitPerUser     *int                 `json:"usage_limit_per_user"`
	StartDate             string               `json:"start_date" binding:"required"`
	EndDate               string               `json:"end_date" binding:"required"`
	Targets               []TargetBody         `json:"targets"`
}

type DisableRequest struct {
	Code  string        `validate:"required"`
	Actor ids.AccountID `validate:"required"`
	Role  string
}

// PreviewRequest asks what a voucher would take off an order. PropertyID
// and RoomTypeIDs feed target matching; without them only global vouchers
// apply.
type PreviewRequest struct {
	Code        string           `json:"-" validate:"required,max=50"`
	Amount      decimal.Decimal  `json:"amount"`
	PropertyID  ids.PropertyID   `json:"property_id"`
	RoomTypeIDs []ids.RoomTypeID `json:"room_type_ids"`
}

// Quote is an advisory price. The booking re-runs every check when it
// redeems the voucher.
type Quote struct {
	Code        string          `json:"code"`
	Valid       bool            `json:"valid"`
	Reason      string          `json:"reason,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Discount    decimal.Decimal `json:"discount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	Remaining   *int            `json:"remaining_uses,omitempty"`
}

// View is a voucher as shown to API clients.
type View struct {
	*voucher.Voucher
	RemainingUses *int `json:"remaining_uses,omitempty"`
}
