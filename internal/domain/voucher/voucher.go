// Package voucher implements code-redeemable discounts with usage counters,
// a validity window and target scoping.
package voucher

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusExpired  Status = "expired"
)

var hundred = decimal.NewFromInt(100)

type Voucher struct {
	ID                    ids.VoucherID       `json:"id" gorm:"type:uuid;primaryKey"`
	Code                  string              `json:"code" gorm:"type:varchar(50);not null;uniqueIndex"`
	Description           string              `json:"description,omitempty" gorm:"type:text"`
	DiscountType          DiscountType        `json:"discount_type" gorm:"type:varchar(16);not null"`
	DiscountValue         decimal.Decimal     `json:"discount_value" gorm:"type:decimal(18,2);not null"`
	MinimumOrderAmount    decimal.NullDecimal `json:"minimum_order_amount" gorm:"type:decimal(18,2)"`
	MaximumDiscountAmount decimal.NullDecimal `json:"maximum_discount_amount" gorm:"type:decimal(18,2)"`
	UsageLimit            *int                `json:"usage_limit,omitempty"`
	UsageLimitPerUser     *int                `json:"usage_limit_per_user,omitempty"`
	UsedCount             int                 `json:"used_count" gorm:"not null;default:0"`
	StartDate             time.Time           `json:"start_date" gorm:"not null"`
	EndDate               time.Time           `json:"end_date" gorm:"not null"`
	Status                Status              `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedBy             ids.AccountID       `json:"created_by" gorm:"type:uuid;not null"`
	Targets               []Target            `json:"targets,omitempty" gorm:"foreignKey:VoucherID;constraint:OnDelete:CASCADE"`
	domain.Timestamps
}

func (Voucher) TableName() string { return "vouchers" }

func (v *Voucher) EntityID() ids.VoucherID { return v.ID }

var _ domain.Entity[ids.VoucherID] = (*Voucher)(nil)

type Params struct {
	Code                  string
	Description           string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    *decimal.Decimal
	MaximumDiscountAmount *decimal.Decimal
	UsageLimit            *int
	UsageLimitPerUser     *int
	StartDate             time.Time
	EndDate               time.Time
	CreatedBy             ids.AccountID
	Targets               []TargetSpec
}

// NormalizeCode is the stored form of a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// New validates p and returns an active voucher. Every failed rule is
// reported.
func New(p Params, now time.Time) (*Voucher, error) {
	var errs []error
	code := NormalizeCode(p.Code)
	if code == "" {
		errs = append(errs, ErrCodeRequired)
	}
	switch p.DiscountType {
	case DiscountPercent:
		if p.DiscountValue.IsNegative() || p.DiscountValue.GreaterThan(hundred) {
			errs = append(errs, ErrInvalidPercent)
		}
	case DiscountAmount:
		if !p.DiscountValue.IsPositive() {
			errs = append(errs, ErrInvalidAmount)
		}
	default:
		errs = append(errs, ErrInvalidDiscountType)
	}
	if !p.EndDate.After(p.StartDate) {
		errs = append(errs, ErrInvalidDateRange)
	}
	if p.UsageLimit != nil && *p.UsageLimit < 0 {
		errs = append(errs, ErrInvalidUsageLimit)
	}
	if p.UsageLimitPerUser != nil && *p.UsageLimitPerUser < 0 {
		errs = append(errs, ErrInvalidUserLimit)
	}
	if p.MinimumOrderAmount != nil && p.MinimumOrderAmount.IsNegative() {
		errs = append(errs, ErrInvalidMinimumOrder)
	}
	if p.MaximumDiscountAmount != nil && p.MaximumDiscountAmount.IsNegative() {
		errs = append(errs, ErrInvalidMaximumDiscount)
	}

	v := &Voucher{
		ID:                ids.New[ids.VoucherID](),
		Code:              code,
		Description:       strings.TrimSpace(p.Description),
		DiscountType:      p.DiscountType,
		DiscountValue:     money.Round(p.DiscountValue),
		UsageLimit:        p.UsageLimit,
		UsageLimitPerUser: p.UsageLimitPerUser,
		StartDate:         p.StartDate.UTC(),
		EndDate:           p.EndDate.UTC(),
		Status:            StatusActive,
		CreatedBy:         p.CreatedBy,
		Timestamps:        domain.NewTimestamps(now),
	}
	for _, spec := range p.Targets {
		t, err := newTarget(v.ID, spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		v.Targets = append(v.Targets, *t)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}

	if p.MinimumOrderAmount != nil {
		v.MinimumOrderAmount = decimal.NewNullDecimal(money.Round(*p.MinimumOrderAmount))
	}
	if p.MaximumDiscountAmount != nil {
		v.MaximumDiscountAmount = decimal.NewNullDecimal(money.Round(*p.MaximumDiscountAmount))
	}
	return v, nil
}

// Check runs the redemption checks in order without changing the voucher.
func (v *Voucher) Check(now time.Time) error {
	switch {
	case v.Status == StatusDisabled:
		return ErrDisabled
	case now.Before(v.StartDate):
		return ErrNotStarted
	case v.Status == StatusExpired || now.After(v.EndDate):
		return ErrExpired
	case v.limitReached():
		return ErrUsageLimitReached
	}
	return nil
}

// ValidateForUse is Check plus its one side effect: a voucher found past its
// end date is marked expired. Callers persist the voucher when it reports
// ErrExpired.
func (v *Voucher) ValidateForUse(now time.Time) error {
	err := v.Check(now)
	if errors.Is(err, ErrExpired) && v.Status != StatusExpired {
		v.Status = StatusExpired
		v.Touch(now)
	}
	return err
}

// MeetsMinimumOrder reports ErrMinimumOrderNotMet when orderAmount is below
// the configured minimum.
func (v *Voucher) MeetsMinimumOrder(orderAmount decimal.Decimal) error {
	if v.MinimumOrderAmount.Valid && orderAmount.LessThan(v.MinimumOrderAmount.Decimal) {
		return ErrMinimumOrderNotMet.WithMessage("order amount must be at least %s", v.MinimumOrderAmount.Decimal.StringFixed(2))
	}
	return nil
}

// CalculateDiscount never returns more than orderAmount.
func (v *Voucher) CalculateDiscount(orderAmount decimal.Decimal) decimal.Decimal {
	if !orderAmount.IsPositive() {
		return money.Zero
	}
	var discount decimal.Decimal
	switch v.DiscountType {
	case DiscountPercent:
		discount = money.PercentOf(orderAmount, v.DiscountValue)
		if v.MaximumDiscountAmount.Valid {
			discount = money.Cap(discount, v.MaximumDiscountAmount.Decimal)
		}
	case DiscountAmount:
		discount = v.DiscountValue
	}
	return money.Min(discount, orderAmount)
}

// IncrementUsageCount is the in-memory form of Repository.IncrementUsage.
func (v *Voucher) IncrementUsageCount(now time.Time) error {
	if v.limitReached() {
		return ErrUsageLimitReached
	}
	v.UsedCount++
	v.Touch(now)
	return nil
}

func (v *Voucher) DecrementUsageCount(now time.Time) {
	if v.UsedCount > 0 {
		v.UsedCount--
		v.Touch(now)
	}
}

func (v *Voucher) Disable(now time.Time) {
	if v.Status != StatusDisabled {
		v.Status = StatusDisabled
		v.Touch(now)
	}
}

// RemainingUses is nil for an unlimited voucher.
func (v *Voucher) RemainingUses() *int {
	if v.UsageLimit == nil {
		return nil
	}
	left := *v.UsageLimit - v.UsedCount
	if left < 0 {
		left = 0
	}
	return &left
}

func (v *Voucher) limitReached() bool {
	return v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit
}
