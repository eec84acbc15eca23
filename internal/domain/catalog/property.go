// Package catalog is the read side of properties and their room types that
// bookings reference. Listing management lives outside this service; the
// catalog only answers who owns a property and what it offers.
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
)

// Property belongs to a partner. OwnerAccountID is the partner account whose
// wallet receives booking payments.
type Property struct {
	ID             ids.PropertyID `json:"id" gorm:"type:uuid;primaryKey"`
	PartnerID      ids.PartnerID  `json:"partner_id" gorm:"type:uuid;not null;index"`
	OwnerAccountID ids.AccountID  `json:"owner_account_id" gorm:"type:uuid;not null;index"`
	Name           string         `json:"name" gorm:"type:varchar(200);not null"`
	Address        string         `json:"address" gorm:"type:varchar(300)"`
	City           string         `json:"city" gorm:"type:varchar(100);index"`
	IsActive       bool           `json:"is_active" gorm:"not null;default:true"`
	domain.Timestamps

	RoomTypes []RoomType `json:"room_types,omitempty" gorm:"foreignKey:PropertyID"`
}

func (Property) TableName() string { return "properties" }

func (p *Property) EntityID() ids.PropertyID { return p.ID }

var _ domain.Entity[ids.PropertyID] = (*Property)(nil)

func NewProperty(partner ids.PartnerID, owner ids.AccountID, name, address, city string, now time.Time) (*Property, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return &Property{
		ID:             ids.New[ids.PropertyID](),
		PartnerID:      partner,
		OwnerAccountID: owner,
		Name:           name,
		Address:        strings.TrimSpace(address),
		City:           strings.TrimSpace(city),
		IsActive:       true,
		Timestamps:     domain.NewTimestamps(now),
	}, nil
}

type RoomType struct {
	ID         ids.RoomTypeID  `json:"id" gorm:"type:uuid;primaryKey"`
	PropertyID ids.PropertyID  `json:"property_id" gorm:"type:uuid;not null;index"`
	Name       string          `json:"name" gorm:"type:varchar(200);not null"`
	Capacity   int             `json:"capacity" gorm:"not null"`
	BasePrice  decimal.Decimal `json:"base_price" gorm:"type:decimal(18,2);not null"`
	IsActive   bool            `json:"is_active" gorm:"not null;default:true"`
	domain.Timestamps
}

func (RoomType) TableName() string { return "room_types" }

func (r *RoomType) EntityID() ids.RoomTypeID { return r.ID }

var _ domain.Entity[ids.RoomTypeID] = (*RoomType)(nil)

func NewRoomType(property ids.PropertyID, name string, capacity int, basePrice decimal.Decimal, now time.Time) (*RoomType, error) {
	var errs []error
	name = strings.TrimSpace(name)
	if name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if capacity <= 0 {
		errs = append(errs, ErrInvalidCapacity)
	}
	if !basePrice.IsPositive() {
		errs = append(errs, ErrInvalidBasePrice)
	}
	if len(errs) > 0 {
		return nil, apperr.Join(errs...)
	}
	return &RoomType{
		ID:         ids.New[ids.RoomTypeID](),
		PropertyID: property,
		Name:       name,
		Capacity:   capacity,
		BasePrice:  money.Round(basePrice),
		IsActive:   true,
		Timestamps: domain.NewTimestamps(now),
	}, nil
}
