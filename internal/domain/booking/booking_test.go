package booking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/money"
	"staybook/internal/store/storetest"
)

var now = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2026, 7, 1+offset, 0, 0, 0, 0, time.UTC)
}

func newBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := New(Params{
		UserID:     ids.New[ids.AccountID](),
		PropertyID: ids.New[ids.PropertyID](),
		CheckIn:    day(2),
		CheckOut:   day(5),
		Guests:     2,
		TotalPrice: money.FromInt(300),
	}, now)
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	b := newBooking(t)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, 3, b.Nights())
	assert.Len(t, b.Stay(), 3)
	require.Len(t, b.History, 1)
	assert.Equal(t, StatusPending, b.History[0].Status)
	assert.Nil(t, b.SpecialRequests)
}

func TestNewBookingValidation(t *testing.T) {
	_, err := New(Params{CheckIn: day(3), CheckOut: day(3), Guests: 1}, now)
	assert.ErrorIs(t, err, ErrInvalidCheckOutDate)
	assert.Len(t, apperr.List(err), 1)

	_, err = New(Params{CheckIn: day(-1), CheckOut: day(-2), Guests: 0, TotalPrice: money.FromInt(-1)}, now)
	require.Error(t, err)
	for _, want := range []error{ErrInvalidCheckInDate, ErrInvalidCheckOutDate, ErrInvalidGuestCount, ErrInvalidTotalPrice} {
		assert.ErrorIs(t, err, want)
	}

	b, err := New(Params{CheckIn: day(0), CheckOut: day(1), Guests: 1, SpecialRequests: "  late arrival "}, now)
	require.NoError(t, err, "check-in today is allowed")
	require.NotNil(t, b.SpecialRequests)
	assert.Equal(t, "late arrival", *b.SpecialRequests)
}

func TestBookingHappyPath(t *testing.T) {
	b := newBooking(t)
	staff := ids.New[ids.AccountID]()

	require.NoError(t, b.Confirm(staff, now))

	err := b.CheckIn(staff, day(1))
	assert.ErrorIs(t, err, ErrCheckInTooEarly)
	assert.Equal(t, StatusConfirmed, b.Status)

	require.NoError(t, b.CheckIn(staff, day(2).Add(14*time.Hour)))
	require.NoError(t, b.CheckOut(staff, day(5)))
	require.NoError(t, b.Complete(staff, day(5)))
	assert.Equal(t, StatusCompleted, b.Status)

	require.Len(t, b.History, 5)
	for i, h := range b.History {
		assert.Equal(t, i+1, h.Sequence)
	}
	assert.Equal(t, staff, *b.History[4].ActorID)

	assert.ErrorIs(t, b.Cancel("too late", staff, day(6)), ErrCannotCancel)
}

func TestBookingRejectsOutOfOrderTransitions(t *testing.T) {
	actor := ids.AccountID{}
	steps := map[Status]func(*Booking) error{
		StatusConfirmed:  func(b *Booking) error { return b.Confirm(actor, day(9)) },
		StatusCheckedIn:  func(b *Booking) error { return b.CheckIn(actor, day(9)) },
		StatusCheckedOut: func(b *Booking) error { return b.CheckOut(actor, day(9)) },
		StatusCompleted:  func(b *Booking) error { return b.Complete(actor, day(9)) },
	}
	next := map[Status]Status{
		StatusPending:    StatusConfirmed,
		StatusConfirmed:  StatusCheckedIn,
		StatusCheckedIn:  StatusCheckedOut,
		StatusCheckedOut: StatusCompleted,
	}

	for _, from := range []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCompleted, StatusCancelled} {
		for to, step := range steps {
			b := newBooking(t)
			b.Status = from
			err := step(b)
			if next[from] == to {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.ErrorIs(t, err, ErrInvalidStatusTransition, "%s -> %s", from, to)
			assert.Equal(t, from, b.Status)
		}
	}
}

func TestBookingCancel(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut} {
		b := newBooking(t)
		b.Status = from
		require.NoError(t, b.Cancel(" guest request ", ids.AccountID{}, now), from)
		assert.Equal(t, StatusCancelled, b.Status)
		assert.Equal(t, "guest request", *b.CancellationReason)
		assert.NotNil(t, b.CancelledAt)
		assert.False(t, b.HoldsInventory())
	}

	b := newBooking(t)
	require.NoError(t, b.Cancel("", ids.AccountID{}, now))
	assert.Nil(t, b.CancellationReason)
	assert.ErrorIs(t, b.Cancel("again", ids.AccountID{}, now), ErrCannotCancel)
}

func TestDetailPricing(t *testing.T) {
	d, err := NewDetail(ids.New[ids.BookingID](), ids.New[ids.RoomTypeID](), 2, 3, money.MustFromString("99.99"), money.FromInt(50), now)
	require.NoError(t, err)
	assert.Equal(t, "599.94", d.Subtotal().StringFixed(2))
	assert.Equal(t, "549.94", d.TotalPrice.StringFixed(2))

	assert.ErrorIs(t, d.UpdateDiscount(money.FromInt(600), now), ErrInvalidDetailTotal)
	assert.Equal(t, "549.94", d.TotalPrice.StringFixed(2), "a rejected discount leaves the line untouched")
	assert.ErrorIs(t, d.UpdateDiscount(money.FromInt(-1), now), ErrInvalidDiscountAmount)

	require.NoError(t, d.UpdateDiscount(d.Subtotal(), now))
	assert.True(t, d.TotalPrice.IsZero())

	_, err = NewDetail(ids.BookingID{}, ids.RoomTypeID{}, 0, 0, money.FromInt(-1), money.FromInt(-1), now)
	for _, want := range []error{ErrInvalidRoomQuantity, ErrInvalidNights, ErrInvalidPricePerNight, ErrInvalidDiscountAmount} {
		assert.ErrorIs(t, err, want)
	}

	_, err = NewDetail(ids.BookingID{}, ids.RoomTypeID{}, 1, 1, money.FromInt(10), money.FromInt(11), now)
	assert.ErrorIs(t, err, ErrInvalidDetailTotal)
}

func TestDetailTotalInvariant(t *testing.T) {
	prices := []string{"0", "0.01", "19.99", "100", "1234.56"}
	for q := 1; q <= 3; q++ {
		for n := 1; n <= 4; n++ {
			for _, p := range prices {
				price := decimal.RequireFromString(p)
				sub := price.Mul(decimal.NewFromInt(int64(q * n)))
				discount := money.Round(sub.Div(decimal.NewFromInt(3)))
				d, err := NewDetail(ids.BookingID{}, ids.RoomTypeID{}, q, n, price, discount, now)
				require.NoError(t, err)
				assert.True(t, d.TotalPrice.Equal(sub.Sub(discount)), "q=%d n=%d p=%s", q, n, p)
				assert.False(t, d.TotalPrice.IsNegative())
			}
		}
	}
}

func TestNightlyDetailKeepsExactSubtotal(t *testing.T) {
	nightly := []decimal.Decimal{
		money.MustFromString("100.01"),
		money.MustFromString("100.01"),
		money.MustFromString("100.00"),
	}
	d, err := NewNightlyDetail(ids.BookingID{}, ids.RoomTypeID{}, 1, nightly, money.MustFromString("0.02"), now)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Nights)
	assert.Equal(t, "100.01", d.PricePerNight.StringFixed(2))
	assert.Equal(t, "-0.01", d.PriceAdjustment.StringFixed(2))
	assert.Equal(t, "300.02", d.Subtotal().StringFixed(2))
	assert.Equal(t, "300.00", d.TotalPrice.StringFixed(2))

	d, err = NewNightlyDetail(ids.BookingID{}, ids.RoomTypeID{}, 2, nightly[:2], money.Zero, now)
	require.NoError(t, err)
	assert.True(t, d.PriceAdjustment.IsZero())
	assert.Equal(t, "400.04", d.TotalPrice.StringFixed(2))

	_, err = NewNightlyDetail(ids.BookingID{}, ids.RoomTypeID{}, 1, nil, money.Zero, now)
	assert.ErrorIs(t, err, ErrInvalidNights)
	_, err = NewNightlyDetail(ids.BookingID{}, ids.RoomTypeID{}, 1, []decimal.Decimal{money.FromInt(-1), money.FromInt(5)}, money.Zero, now)
	assert.ErrorIs(t, err, ErrInvalidPricePerNight)
}

func TestAddDetailUsesStayLength(t *testing.T) {
	b := newBooking(t)
	d, err := b.AddDetail(ids.New[ids.RoomTypeID](), 1, money.FromInt(100), money.Zero, now)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Nights)
	assert.Equal(t, b.ID, d.BookingID)

	_, err = b.AddDetail(ids.New[ids.RoomTypeID](), 2, money.FromInt(50), money.FromInt(20), now)
	require.NoError(t, err)
	assert.Equal(t, "580.00", b.DetailsTotal().StringFixed(2))
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(storetest.Open(t, &Booking{}, &Detail{}, &History{}))

	b := newBooking(t)
	_, err := b.AddDetail(ids.New[ids.RoomTypeID](), 1, money.FromInt(100), money.Zero, now)
	require.NoError(t, err)
	b.ApplyVoucher("SPRING", money.FromInt(10), now)
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.Details, 1)
	assert.Len(t, got.History, 2)
	assert.True(t, got.CheckInDate.Equal(day(2)))
	assert.Equal(t, "SPRING", *got.VoucherCode)

	staff := ids.New[ids.AccountID]()
	require.NoError(t, got.Confirm(staff, now))
	require.NoError(t, repo.Save(ctx, got))
	require.NoError(t, repo.Save(ctx, got), "saving twice does not duplicate history")

	got, err = repo.GetForUpdate(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	require.Len(t, got.History, 3)
	assert.Equal(t, "Booking confirmed", got.History[2].Description)
	assert.Equal(t, staff, *got.History[2].ActorID)

	list, err := repo.ListByUser(ctx, b.UserID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.ListByProperty(ctx, b.PropertyID, StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.GetByID(ctx, ids.New[ids.BookingID]())
	assert.ErrorIs(t, err, ErrNotFound)
}
