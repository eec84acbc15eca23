// Package ids provides UUID-backed identifiers typed by the entity they
// identify, so a BookingID can never be passed where a RoomTypeID is expected.
package ids

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is a UUID tagged with a kind marker K.
type ID[K any] uuid.UUID

// Kind markers. They carry no data.
type (
	account          struct{}
	partner          struct{}
	property         struct{}
	roomType         struct{}
	booking          struct{}
	bookingDetail    struct{}
	bookingHistory   struct{}
	roomAvailability struct{}
	roomPromotion    struct{}
	voucher          struct{}
	voucherTarget    struct{}
	payment          struct{}
	wallet           struct{}
	transaction      struct{}
	settlement       struct{}
)

type (
	AccountID          = ID[account]
	PartnerID          = ID[partner]
	PropertyID         = ID[property]
	RoomTypeID         = ID[roomType]
	BookingID          = ID[booking]
	BookingDetailID    = ID[bookingDetail]
	BookingHistoryID   = ID[bookingHistory]
	RoomAvailabilityID = ID[roomAvailability]
	RoomPromotionID    = ID[roomPromotion]
	VoucherID          = ID[voucher]
	VoucherTargetID    = ID[voucherTarget]
	PaymentID          = ID[payment]
	WalletID           = ID[wallet]
	TransactionID      = ID[transaction]
	SettlementID       = ID[settlement]
)

// New returns a fresh random identifier of type T, e.g. ids.New[ids.BookingID]().
func New[T ~[16]byte]() T {
	return T(uuid.New())
}

// Parse parses the canonical textual form.
func Parse[T ~[16]byte](s string) (T, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return T(u), nil
}

// MustParse is Parse for constants in tests and seeds.
func MustParse[T ~[16]byte](s string) T {
	id, err := Parse[T](s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID[K]) UUID() uuid.UUID { return uuid.UUID(id) }

func (id ID[K]) String() string { return uuid.UUID(id).String() }

func (id ID[K]) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id ID[K]) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID[K]) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", string(b), err)
	}
	*id = ID[K](u)
	return nil
}

// Value stores the identifier as its canonical string so it works with both
// the postgres uuid type and sqlite text columns.
func (id ID[K]) Value() (driver.Value, error) {
	return id.String(), nil
}

func (id *ID[K]) Scan(src any) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*id = ID[K](u)
	return nil
}
