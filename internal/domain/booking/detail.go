package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

// Detail is one room-type line: TotalPrice = Quantity*Nights*PricePerNight
// + PriceAdjustment - DiscountAmount, never negative. PriceAdjustment is zero
// unless the nightly rates differ, where it carries the rounding remainder of
// the averaged PricePerNight.
type Detail struct {
	ID              ids.BookingDetailID `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID       ids.BookingID       `json:"booking_id" gorm:"type:uuid;not null;index"`
	RoomTypeID      ids.RoomTypeID      `json:"room_type_id" gorm:"type:uuid;not null;index"`
	Quantity        int                 `json:"quantity" gorm:"not null"`
	Nights          int                 `json:"nights" gorm:"not null"`
	PricePerNight   decimal.Decimal     `json:"price_per_night" gorm:"type:decimal(18,2);not null"`
	PriceAdjustment decimal.Decimal     `json:"price_adjustment" gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount" gorm:"type:decimal(18,2);not null;default:0"`
	TotalPrice      decimal.Decimal     `json:"total_price" gorm:"type:decimal(18,2);not null"`
	CreatedAt       time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time           `json:"updated_at" gorm:"not null"`
}

func (Detail) TableName() string { return "booking_details" }

func (d *Detail) EntityID() ids.BookingDetailID { return d.ID }

var _ domain.Entity[ids.BookingDetailID] = (*Detail)(nil)

// NewDetail prices every night of the line at pricePerNight.
func NewDetail(bookingID ids.BookingID, roomType ids.RoomTypeID, quantity, nights int, pricePerNight, discount decimal.Decimal, now time.Time) (*Detail, error) {
	return newDetail(bookingID, roomType, quantity, nights, pricePerNight, money.Zero, discount, now)
}

// NewNightlyDetail prices a line from one rate per night. The subtotal is
// quantity times the exact sum of the rates; PricePerNight is their rounded
// average.
func NewNightlyDetail(bookingID ids.BookingID, roomType ids.RoomTypeID, quantity int, nightly []decimal.Decimal, discount decimal.Decimal, now time.Time) (*Detail, error) {
	nights := len(nightly)
	if nights == 0 {
		return nil, ErrInvalidNights
	}
	sum := money.Zero
	for _, rate := range nightly {
		if rate.IsNegative() {
			return nil, ErrInvalidPricePerNight
		}
		sum = sum.Add(money.Round(rate))
	}
	ppn := money.Round(sum.Div(decimal.NewFromInt(int64(nights))))
	exact := money.Round(sum.Mul(decimal.NewFromInt(int64(quantity))))
	adjustment := exact.Sub(money.Round(ppn.Mul(decimal.NewFromInt(int64(quantity * nights)))))
	return newDetail(bookingID, roomType, quantity, nights, ppn, adjustment, discount, now)
}

func newDetail(bookingID ids.BookingID, roomType ids.RoomTypeID, quantity, nights int, pricePerNight, adjustment, discount decimal.Decimal, now time.Time) (*Detail, error) {
	var errs []error
	if quantity <= 0 {
		errs = append(errs, ErrInvalidRoomQuantity)
	}
	if nights <= 0 {
		errs = append(errs, ErrInvalidNights)
	}
	if pricePerNight.IsNegative() {
		errs = append(errs, ErrInvalidPricePerNight)
	}
	if discount.IsNegative() {
		errs = append(errs, ErrInvalidDiscountAmount)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}

	d := &Detail{
		ID:              ids.New[ids.BookingDetailID](),
		BookingID:       bookingID,
		RoomTypeID:      roomType,
		Quantity:        quantity,
		Nights:          nights,
		PricePerNight:   money.Round(pricePerNight),
		PriceAdjustment: money.Round(adjustment),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := d.UpdateDiscount(discount, now); err != nil {
		return nil, err
	}
	return d, nil
}

// Subtotal is the line amount before discount.
func (d *Detail) Subtotal() decimal.Decimal {
	return money.Round(d.PricePerNight.Mul(decimal.NewFromInt(int64(d.Quantity * d.Nights)))).Add(d.PriceAdjustment)
}

// UpdateDiscount recomputes the total and leaves the line unchanged when the
// new discount is negative or larger than the subtotal.
func (d *Detail) UpdateDiscount(discount decimal.Decimal, now time.Time) error {
	if discount.IsNegative() {
		return ErrInvalidDiscountAmount
	}
	discount = money.Round(discount)
	total := d.Subtotal().Sub(discount)
	if total.IsNegative() {
		return ErrInvalidDetailTotal
	}
	d.DiscountAmount = discount
	d.TotalPrice = total
	d.UpdatedAt = now
	return nil
}
