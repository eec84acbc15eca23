package booking

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/pkg/ids"
	"staybook/internal/store"
)

// Repository persists the aggregate as a whole: the booking row, its
// details and any history recorded since it was loaded.
type Repository struct {
	db       *gorm.DB
	bookings *store.Repository[Booking, ids.BookingID]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:       db,
		bookings: store.NewRepository[Booking, ids.BookingID](db, ErrNotFound),
	}
}

// Create inserts the booking, its details and its history. Run it inside a
// unit of work together with the inventory changes it depends on.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	if err := store.DB(ctx, r.db).Create(b).Error; err != nil {
		return store.Translate(err, nil)
	}
	b.pendingHistory()
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id ids.BookingID) (*Booking, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate loads the aggregate with the booking row locked.
func (r *Repository) GetForUpdate(ctx context.Context, id ids.BookingID) (*Booking, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id ids.BookingID, lock bool) (*Booking, error) {
	q := store.DB(ctx, r.db)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var b Booking
	err := q.
		Preload("Details").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, store.Translate(err, ErrNotFound)
	}
	return &b, nil
}

// Save writes the booking row and its details and appends new history.
func (r *Repository) Save(ctx context.Context, b *Booking) error {
	db := store.DB(ctx, r.db)
	if err := db.Omit(clause.Associations).Save(b).Error; err != nil {
		return err
	}
	for i := range b.Details {
		if err := db.Save(&b.Details[i]).Error; err != nil {
			return err
		}
	}
	if pending := b.pendingHistory(); len(pending) > 0 {
		if err := db.Create(&pending).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns a guest's bookings, newest first.
func (r *Repository) ListByUser(ctx context.Context, user ids.AccountID, limit, offset int) ([]Booking, error) {
	return r.bookings.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return paginate(q.Where("user_id = ?", user).Preload("Details").Order("created_at DESC"), limit, offset)
	})
}

// ListByProperty returns the bookings of a property, optionally filtered by
// status, newest first.
func (r *Repository) ListByProperty(ctx context.Context, property ids.PropertyID, status Status, limit, offset int) ([]Booking, error) {
	return r.bookings.Query(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("property_id = ?", property)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return paginate(q.Preload("Details").Order("created_at DESC"), limit, offset)
	})
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return q.Limit(limit).Offset(offset)
}
