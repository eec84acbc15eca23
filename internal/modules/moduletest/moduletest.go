// Package moduletest seeds a sqlite database with a property, its room
// types and stock for use-case tests.
package moduletest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"staybook/internal/database"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/inventory"
	"staybook/internal/domain/voucher"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
	"staybook/internal/store/storetest"
)

// Now is the wall time every world starts at; CheckIn is ten days later.
var (
	Now     = time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	CheckIn = time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
)

// Clock is a settable clock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var _ clock.Clock = (*Clock)(nil)

type World struct {
	DB       *gorm.DB
	Clock    *Clock
	Partner  ids.PartnerID
	Owner    ids.AccountID
	Guest    ids.AccountID
	Admin    ids.AccountID
	Property *catalog.Property

	catalog   *catalog.Repository
	inventory *inventory.Repository
	vouchers  *voucher.Repository
}

// Open migrates every model and creates one active property owned by
// Owner.
func Open(t *testing.T) *World {
	t.Helper()
	db := storetest.Open(t, database.Models()...)
	w := &World{
		DB:        db,
		Clock:     NewClock(Now),
		Partner:   ids.New[ids.PartnerID](),
		Owner:     ids.New[ids.AccountID](),
		Guest:     ids.New[ids.AccountID](),
		Admin:     ids.New[ids.AccountID](),
		catalog:   catalog.NewRepository(db),
		inventory: inventory.NewRepository(db),
		vouchers:  voucher.NewRepository(db),
	}
	p, err := catalog.NewProperty(w.Partner, w.Owner, "Harbour View", "1 Quay St", "Da Nang", Now)
	if err != nil {
		t.Fatalf("new property: %v", err)
	}
	if err := w.catalog.CreateProperty(context.Background(), p); err != nil {
		t.Fatalf("create property: %v", err)
	}
	w.Property = p
	return w
}

func (w *World) RoomType(t *testing.T, name string, capacity int, price string) *catalog.RoomType {
	t.Helper()
	rt, err := catalog.NewRoomType(w.Property.ID, name, capacity, money.MustFromString(price), Now)
	if err != nil {
		t.Fatalf("new room type: %v", err)
	}
	if err := w.catalog.CreateRoomType(context.Background(), rt); err != nil {
		t.Fatalf("create room type: %v", err)
	}
	return rt
}

// Stock creates availability rows for nights consecutive dates from from.
func (w *World) Stock(t *testing.T, rt ids.RoomTypeID, from time.Time, nights, quantity int, price string) {
	t.Helper()
	for i := 0; i < nights; i++ {
		a, err := inventory.NewAvailability(rt, from.AddDate(0, 0, i), quantity, money.MustFromString(price), Now)
		if err != nil {
			t.Fatalf("new availability: %v", err)
		}
		if err := w.inventory.CreateAvailability(context.Background(), a); err != nil {
			t.Fatalf("create availability: %v", err)
		}
	}
}

// PercentOff creates an active percent promotion covering [start, end].
func (w *World) PercentOff(t *testing.T, rt ids.RoomTypeID, start, end time.Time, pct string) {
	t.Helper()
	d := money.MustFromString(pct)
	p, err := inventory.NewPromotion(inventory.PromotionParams{
		RoomTypeID: rt, Name: pct + "% off", DiscountPercent: &d, StartDate: start, EndDate: end,
	}, Now)
	if err != nil {
		t.Fatalf("new promotion: %v", err)
	}
	if err := w.inventory.CreatePromotion(context.Background(), p); err != nil {
		t.Fatalf("create promotion: %v", err)
	}
}

// Voucher stores a voucher valid from a day before Now for thirty days
// unless p sets dates.
func (w *World) Voucher(t *testing.T, p voucher.Params) *voucher.Voucher {
	t.Helper()
	if p.StartDate.IsZero() {
		p.StartDate = Now.AddDate(0, 0, -1)
	}
	if p.EndDate.IsZero() {
		p.EndDate = Now.AddDate(0, 0, 30)
	}
	if p.CreatedBy.IsZero() {
		p.CreatedBy = w.Admin
	}
	v, err := voucher.New(p, Now)
	if err != nil {
		t.Fatalf("new voucher: %v", err)
	}
	if err := w.vouchers.Create(context.Background(), v); err != nil {
		t.Fatalf("create voucher: %v", err)
	}
	return v
}

// Available reads the stock of rt on day.
func (w *World) Available(t *testing.T, rt ids.RoomTypeID, day time.Time) int {
	t.Helper()
	a, err := w.inventory.GetAvailability(context.Background(), rt, day)
	if err != nil {
		t.Fatalf("get availability: %v", err)
	}
	return a.AvailableQuantity
}

// UsedCount reads a voucher's usage counter.
func (w *World) UsedCount(t *testing.T, id ids.VoucherID) int {
	t.Helper()
	v, err := w.vouchers.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	return v.UsedCount
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal { return money.MustFromString(s) }
