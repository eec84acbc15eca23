package catalog

import (
	"context"

	"gorm.io/gorm"

	"staybook/internal/pkg/ids"
	"staybook/internal/store"
)

type Repository struct {
	properties *store.Repository[Property, ids.PropertyID]
	roomTypes  *store.Repository[RoomType, ids.RoomTypeID]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		properties: store.NewRepository[Property, ids.PropertyID](db, ErrPropertyNotFound),
		roomTypes:  store.NewRepository[RoomType, ids.RoomTypeID](db, ErrRoomTypeNotFound),
	}
}

func (r *Repository) CreateProperty(ctx context.Context, p *Property) error {
	return r.properties.Add(ctx, p)
}

func (r *Repository) GetProperty(ctx context.Context, id ids.PropertyID) (*Property, error) {
	return r.properties.GetByID(ctx, id)
}

func (r *Repository) ListByOwner(ctx context.Context, owner ids.AccountID) ([]Property, error) {
	return r.properties.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("owner_account_id = ? AND is_active = ?", owner, true).Order("name ASC")
	})
}

// Search lists active properties, optionally in one city.
func (r *Repository) Search(ctx context.Context, city string, limit int) ([]Property, error) {
	return r.properties.Query(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("is_active = ?", true)
		if city != "" {
			q = q.Where("LOWER(city) = LOWER(?)", city)
		}
		return q.Order("name ASC").Limit(limit)
	})
}

func (r *Repository) CreateRoomType(ctx context.Context, rt *RoomType) error {
	return r.roomTypes.Add(ctx, rt)
}

func (r *Repository) GetRoomType(ctx context.Context, id ids.RoomTypeID) (*RoomType, error) {
	return r.roomTypes.GetByID(ctx, id)
}

func (r *Repository) ListRoomTypes(ctx context.Context, property ids.PropertyID) ([]RoomType, error) {
	return r.roomTypes.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("property_id = ? AND is_active = ?", property, true).Order("name ASC")
	})
}

// RoomTypesOf loads the requested room types and checks that each one is an
// active room type of property.
func (r *Repository) RoomTypesOf(ctx context.Context, property ids.PropertyID, wanted []ids.RoomTypeID) (map[ids.RoomTypeID]RoomType, error) {
	rows, err := r.roomTypes.Query(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("id IN ?", wanted)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[ids.RoomTypeID]RoomType, len(rows))
	for _, rt := range rows {
		out[rt.ID] = rt
	}
	for _, id := range wanted {
		rt, ok := out[id]
		if !ok || !rt.IsActive {
			return nil, ErrRoomTypeNotFound.WithMessage("room type %s not found", id)
		}
		if rt.PropertyID != property {
			return nil, ErrRoomTypeMismatch.WithMessage("room type %s does not belong to property %s", id, property)
		}
	}
	return out, nil
}
