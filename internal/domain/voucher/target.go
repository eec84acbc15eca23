package voucher

import (
	"slices"

	"github.com/google/uuid"

	"staybook/internal/domain"
	"staybook/internal/pkg/ids"
)

type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopePartner  Scope = "partner"
	ScopeProperty Scope = "property"
	ScopeRoomType Scope = "room_type"
)

// Target restricts where a voucher may be redeemed. TargetID is the partner,
// property or room type id depending on Scope and is empty for global
// targets.
type Target struct {
	ID        ids.VoucherTargetID `json:"id" gorm:"type:uuid;primaryKey"`
	VoucherID ids.VoucherID       `json:"voucher_id" gorm:"type:uuid;not null;index"`
	Scope     Scope               `json:"scope" gorm:"type:varchar(16);not null"`
	TargetID  uuid.NullUUID       `json:"target_id" gorm:"type:uuid"`
}

func (Target) TableName() string { return "voucher_targets" }

func (t *Target) EntityID() ids.VoucherTargetID { return t.ID }

var _ domain.Entity[ids.VoucherTargetID] = (*Target)(nil)

type TargetSpec struct {
	Scope    Scope
	TargetID *uuid.UUID
}

func newTarget(voucherID ids.VoucherID, spec TargetSpec) (*Target, error) {
	t := &Target{ID: ids.New[ids.VoucherTargetID](), VoucherID: voucherID, Scope: spec.Scope}
	switch spec.Scope {
	case ScopeGlobal:
		return t, nil
	case ScopePartner, ScopeProperty, ScopeRoomType:
		if spec.TargetID == nil || *spec.TargetID == uuid.Nil {
			return nil, ErrInvalidTarget
		}
		t.TargetID = uuid.NullUUID{UUID: *spec.TargetID, Valid: true}
		return t, nil
	}
	return nil, ErrInvalidTarget.WithMessage("unknown target scope %q", spec.Scope)
}

// Subject describes what a booking touches, for target matching.
type Subject struct {
	PartnerID  ids.PartnerID
	PropertyID ids.PropertyID
	RoomTypes  []ids.RoomTypeID
}

func (t Target) Matches(s Subject) bool {
	switch t.Scope {
	case ScopeGlobal:
		return true
	case ScopePartner:
		return !s.PartnerID.IsZero() && t.TargetID.UUID == s.PartnerID.UUID()
	case ScopeProperty:
		return t.TargetID.UUID == s.PropertyID.UUID()
	case ScopeRoomType:
		return slices.ContainsFunc(s.RoomTypes, func(rt ids.RoomTypeID) bool {
			return t.TargetID.UUID == rt.UUID()
		})
	}
	return false
}

// AppliesTo reports whether any target matches s. A voucher without
// targets is global.
func AppliesTo(targets []Target, s Subject) bool {
	if len(targets) == 0 {
		return true
	}
	return slices.ContainsFunc(targets, func(t Target) bool { return t.Matches(s) })
}
