package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
	"staybook/internal/store"
)

// Repository persists availability rows and promotions. Quantity changes
// are single conditional UPDATE statements, so two concurrent decrements of
// the last room can never both succeed.
type Repository struct {
	db           *gorm.DB
	availability *store.Repository[Availability, ids.RoomAvailabilityID]
	promotions   *store.Repository[Promotion, ids.RoomPromotionID]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		availability: store.NewRepository[Availability, ids.RoomAvailabilityID](db, ErrAvailabilityNotFound),
		promotions:   store.NewRepository[Promotion, ids.RoomPromotionID](db, ErrPromotionNotFound),
	}
}

func (r *Repository) CreateAvailability(ctx context.Context, a *Availability) error {
	err := r.availability.Add(ctx, a)
	if errors.Is(err, store.ErrDuplicate) {
		return ErrAvailabilityExists
	}
	return err
}

func (r *Repository) UpdateAvailability(ctx context.Context, a *Availability) error {
	return r.availability.Update(ctx, a)
}

func (r *Repository) GetAvailability(ctx context.Context, roomType ids.RoomTypeID, date time.Time) (*Availability, error) {
	var a Availability
	err := store.DB(ctx, r.db).
		Where("room_type_id = ? AND date = ?", roomType, clock.Date(date)).
		First(&a).Error
	if err != nil {
		return nil, store.Translate(err, ErrAvailabilityNotFound)
	}
	return &a, nil
}

// ListAvailability returns the rows for [from, to) ordered by date.
func (r *Repository) ListAvailability(ctx context.Context, roomType ids.RoomTypeID, from, to time.Time) ([]Availability, error) {
	return r.availability.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("room_type_id = ? AND date >= ? AND date < ?", roomType, clock.Date(from), clock.Date(to)).
			Order("date ASC")
	})
}

// DecrementQuantity reserves n rooms on date. It fails with
// ErrInsufficientQuantity when fewer than n are left and with
// ErrAvailabilityNotFound when the date has no row.
func (r *Repository) DecrementQuantity(ctx context.Context, roomType ids.RoomTypeID, date time.Time, n int, now time.Time) error {
	if n <= 0 {
		return ErrInvalidAdjustment
	}
	day := clock.Date(date)
	res := store.DB(ctx, r.db).Model(&Availability{}).
		Where("room_type_id = ? AND date = ? AND available_quantity >= ?", roomType, day, n).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", n),
			"updated_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := r.GetAvailability(ctx, roomType, day)
	if err != nil {
		return err
	}
	return ErrInsufficientQuantity.WithMessage("only %d room(s) left on %s", current.AvailableQuantity, day.Format(time.DateOnly))
}

// IncrementQuantity releases n rooms on date. A missing row is reported so
// callers can log it; the increment itself never fails on quantity.
func (r *Repository) IncrementQuantity(ctx context.Context, roomType ids.RoomTypeID, date time.Time, n int, now time.Time) error {
	if n <= 0 {
		return nil
	}
	res := store.DB(ctx, r.db).Model(&Availability{}).
		Where("room_type_id = ? AND date = ?", roomType, clock.Date(date)).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", n),
			"updated_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

// SetPrice changes the nightly price of one row without touching its
// quantity.
func (r *Repository) SetPrice(ctx context.Context, roomType ids.RoomTypeID, date time.Time, price decimal.Decimal, now time.Time) error {
	res := store.DB(ctx, r.db).Model(&Availability{}).
		Where("room_type_id = ? AND date = ?", roomType, clock.Date(date)).
		Updates(map[string]any{"price": money.Round(price), "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func (r *Repository) CreatePromotion(ctx context.Context, p *Promotion) error {
	return r.promotions.Add(ctx, p)
}

func (r *Repository) GetPromotion(ctx context.Context, id ids.RoomPromotionID) (*Promotion, error) {
	return r.promotions.GetByID(ctx, id)
}

func (r *Repository) UpdatePromotion(ctx context.Context, p *Promotion) error {
	return r.promotions.Update(ctx, p)
}

// ActivePromotions returns the active promotions of roomType whose date
// window covers day.
func (r *Repository) ActivePromotions(ctx context.Context, roomType ids.RoomTypeID, day time.Time) ([]Promotion, error) {
	d := clock.Date(day)
	return r.promotions.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("room_type_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			roomType, PromotionActive, d, d)
	})
}

// ListPromotions returns every promotion of roomType, newest first.
func (r *Repository) ListPromotions(ctx context.Context, roomType ids.RoomTypeID) ([]Promotion, error) {
	return r.promotions.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("room_type_id = ?", roomType).Order("start_date DESC")
	})
}

// ExpirePromotions marks every active promotion that ended before now as
// expired and returns how many changed.
func (r *Repository) ExpirePromotions(ctx context.Context, now time.Time) (int64, error) {
	res := store.DB(ctx, r.db).Model(&Promotion{}).
		Where("status <> ? AND end_date < ?", PromotionExpired, clock.Date(now)).
		Updates(map[string]any{"status": PromotionExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
