package payment

import (
	"context"

	"gorm.io/gorm"

	"staybook/internal/pkg/ids"
	"staybook/internal/store"
)

type Repository struct {
	db       *gorm.DB
	payments *store.Repository[Payment, ids.PaymentID]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:       db,
		payments: store.NewRepository[Payment, ids.PaymentID](db, ErrNotFound),
	}
}

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	return r.payments.Add(ctx, p)
}

func (r *Repository) GetByID(ctx context.Context, id ids.PaymentID) (*Payment, error) {
	return r.payments.GetByID(ctx, id)
}

// GetForUpdate locks the payment row for a status change.
func (r *Repository) GetForUpdate(ctx context.Context, id ids.PaymentID) (*Payment, error) {
	return r.payments.GetForUpdate(ctx, id)
}

func (r *Repository) Save(ctx context.Context, p *Payment) error {
	return r.payments.Update(ctx, p)
}

// GetByBooking returns the most recent payment of a booking.
func (r *Repository) GetByBooking(ctx context.Context, booking ids.BookingID) (*Payment, error) {
	var p Payment
	err := store.DB(ctx, r.db).Where("booking_id = ?", booking).Order("created_at DESC").First(&p).Error
	if err != nil {
		return nil, store.Translate(err, ErrNotFound)
	}
	return &p, nil
}

func (r *Repository) ListByBooking(ctx context.Context, booking ids.BookingID) ([]Payment, error) {
	return r.payments.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("booking_id = ?", booking).Order("created_at ASC")
	})
}
