package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/payment"
	"staybook/internal/domain/wallet"
	"staybook/internal/gateway/sandbox"
	"staybook/internal/jobs/jobstest"
	bookings "staybook/internal/modules/booking"
	"staybook/internal/modules/moduletest"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/pipeline"
)

type fixture struct {
	w        *moduletest.World
	gw       *sandbox.Gateway
	payments *Service
	bookings *bookings.Service
	wallets  *wallet.Repository
	queue    *jobstest.Recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	w := moduletest.Open(t)
	q := &jobstest.Recorder{}
	gw := sandbox.New("test-secret", "https://sandbox.local/pay")
	paySvc := NewService(w.DB, gw, q, w.Clock, Config{
		CommissionRate: moduletest.Dec("0.10"),
		ReturnURL:      "https://app.local/return",
	}, pipeline.Stages{})
	return &fixture{
		w:        w,
		gw:       gw,
		payments: paySvc,
		bookings: bookings.NewService(w.DB, paySvc, q, w.Clock, pipeline.Stages{}),
		wallets:  wallet.NewRepository(w.DB),
		queue:    q,
	}
}

// book creates a two-night booking of one 100.00 room.
func (f *fixture) book(t *testing.T) *booking.Booking {
	t.Helper()
	rt := f.w.RoomType(t, "Deluxe", 2, "100")
	f.w.Stock(t, rt.ID, moduletest.CheckIn, 2, 1, "100")
	res, err := f.bookings.CreateBooking(context.Background(), bookings.CreateRequest{
		UserID:     f.w.Guest,
		PropertyID: f.w.Property.ID,
		CheckIn:    moduletest.CheckIn,
		CheckOut:   moduletest.CheckIn.AddDate(0, 0, 2),
		Guests:     1,
		Rooms:      []bookings.RoomLine{{RoomTypeID: rt.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	return res.Booking
}

func (f *fixture) initiate(t *testing.T, b *booking.Booking) *InitiateResult {
	t.Helper()
	res, err := f.payments.Initiate(context.Background(), InitiateRequest{BookingID: b.ID, Actor: f.w.Guest, Role: jwt.RoleGuest})
	require.NoError(t, err)
	return res
}

func (f *fixture) ownerBalance(t *testing.T) string {
	t.Helper()
	wal, err := f.wallets.GetByAccount(context.Background(), f.w.Owner)
	require.NoError(t, err)
	return wal.Balance.StringFixed(2)
}

func TestInitiate_ReturnsSignedURL(t *testing.T) {
	f := setup(t)
	b := f.book(t)

	res := f.initiate(t, b)
	assert.Equal(t, payment.StatusProcessing, res.Payment.Status)
	assert.True(t, strings.HasPrefix(res.PaymentURL, "https://sandbox.local/pay?"))
	assert.Contains(t, res.PaymentURL, "order_id="+res.Payment.ID.String())
	assert.Contains(t, res.PaymentURL, "amount=200.00")
	assert.Contains(t, res.PaymentURL, "signature=")

	again := f.initiate(t, b)
	assert.Equal(t, res.Payment.ID, again.Payment.ID)

	_, err := f.payments.Initiate(context.Background(), InitiateRequest{BookingID: b.ID, Actor: ids.New[ids.AccountID](), Role: jwt.RoleGuest})
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestHandleCallback_SuccessConfirmsAndCredits(t *testing.T) {
	f := setup(t)
	b := f.book(t)
	p := f.initiate(t, b).Payment
	ctx := context.Background()

	got, err := f.payments.HandleCallback(ctx, f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", sandbox.CodeSuccess))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, got.Status)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, "TXN-1", *got.TransactionID)

	stored, err := f.bookings.Get(ctx, b.ID, f.w.Guest, jwt.RoleGuest)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Booking.Status)
	assert.Equal(t, "180.00", f.ownerBalance(t))

	// The gateway retries; nothing moves twice.
	again, err := f.payments.HandleCallback(ctx, f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", sandbox.CodeSuccess))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, again.Status)
	assert.Equal(t, "180.00", f.ownerBalance(t))

	wal, err := f.wallets.GetByAccount(ctx, f.w.Owner)
	require.NoError(t, err)
	txns, err := f.wallets.ListTransactions(ctx, wal.ID, wallet.TxnFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	types := map[wallet.TransactionType]string{}
	for _, txn := range txns {
		types[txn.Type] = txn.Amount.StringFixed(2)
	}
	assert.Equal(t, "200.00", types[wallet.TypePayment])
	assert.Equal(t, "-20.00", types[wallet.TypeCommission])

	_, err = f.payments.Initiate(ctx, InitiateRequest{BookingID: b.ID, Actor: f.w.Guest})
	assert.ErrorIs(t, err, ErrBookingNotPayable)
}

func TestHandleCallback_Rejections(t *testing.T) {
	t.Run("tampered amount fails the signature", func(t *testing.T) {
		f := setup(t)
		p := f.initiate(t, f.book(t)).Payment

		fields := f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", sandbox.CodeSuccess)
		fields[sandbox.FieldAmount] = "1.00"
		_, err := f.payments.HandleCallback(context.Background(), fields)
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)

		stored, err := f.payments.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusProcessing, stored.Status)
	})

	t.Run("signed wrong amount fails the payment", func(t *testing.T) {
		f := setup(t)
		p := f.initiate(t, f.book(t)).Payment

		_, err := f.payments.HandleCallback(context.Background(), f.gw.Callback(p.ID.String(), moduletest.Dec("150"), "TXN-1", sandbox.CodeSuccess))
		assert.ErrorIs(t, err, payment.ErrAmountMismatch)

		stored, err := f.payments.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, stored.Status)
		require.NotNil(t, stored.FailureReason)
		assert.Contains(t, *stored.FailureReason, "amount mismatch")
	})

	t.Run("declined payment can be retried", func(t *testing.T) {
		f := setup(t)
		b := f.book(t)
		p := f.initiate(t, b).Payment

		got, err := f.payments.HandleCallback(context.Background(), f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", "24"))
		require.NoError(t, err)
		assert.Equal(t, payment.StatusFailed, got.Status)

		f.w.Clock.Set(moduletest.Now.Add(time.Minute))
		retry := f.initiate(t, b).Payment
		assert.NotEqual(t, p.ID, retry.ID)
		assert.Equal(t, payment.StatusProcessing, retry.Status)
	})
}

func TestInitiate_RetryKeepsPaymentMethod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rt := f.w.RoomType(t, "Deluxe", 2, "100")
	f.w.Stock(t, rt.ID, moduletest.CheckIn, 2, 1, "100")
	res, err := f.bookings.CreateBooking(ctx, bookings.CreateRequest{
		UserID:        f.w.Guest,
		PropertyID:    f.w.Property.ID,
		CheckIn:       moduletest.CheckIn,
		CheckOut:      moduletest.CheckIn.AddDate(0, 0, 2),
		Guests:        1,
		Rooms:         []bookings.RoomLine{{RoomTypeID: rt.ID, Quantity: 1}},
		PaymentMethod: payment.MethodCard,
	})
	require.NoError(t, err)
	p := f.initiate(t, res.Booking).Payment
	assert.Equal(t, payment.MethodCard, p.Method)

	_, err = f.payments.HandleCallback(ctx, f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", "24"))
	require.NoError(t, err)

	f.w.Clock.Set(moduletest.Now.Add(time.Minute))
	retry := f.initiate(t, res.Booking).Payment
	assert.NotEqual(t, p.ID, retry.ID)
	assert.Equal(t, payment.MethodCard, retry.Method)
}

func TestCancel_PaidBookingIsRefunded(t *testing.T) {
	f := setup(t)
	b := f.book(t)
	p := f.initiate(t, b).Payment
	ctx := context.Background()
	_, err := f.payments.HandleCallback(ctx, f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", sandbox.CodeSuccess))
	require.NoError(t, err)

	_, err = f.bookings.Cancel(ctx, b.ID, "sick", f.w.Guest, jwt.RoleGuest)
	require.NoError(t, err)

	stored, err := f.payments.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, stored.Status)
	require.NotNil(t, stored.RefundID)
	assert.True(t, strings.HasPrefix(*stored.RefundID, "rf_"))
	assert.Equal(t, "0.00", f.ownerBalance(t))

	wal, err := f.wallets.GetByAccount(ctx, f.w.Owner)
	require.NoError(t, err)
	reversed, err := f.wallets.ListTransactions(ctx, wal.ID, wallet.TxnFilter{Status: wallet.TxnReversed})
	require.NoError(t, err)
	assert.Len(t, reversed, 2)
	refunds, err := f.wallets.ListTransactions(ctx, wal.ID, wallet.TxnFilter{Type: wallet.TypeRefund})
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, "-180.00", refunds[0].Amount.StringFixed(2))
}

func TestCancel_WithdrawnEarningsBlockTheRefund(t *testing.T) {
	f := setup(t)
	b := f.book(t)
	p := f.initiate(t, b).Payment
	ctx := context.Background()
	_, err := f.payments.HandleCallback(ctx, f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", sandbox.CodeSuccess))
	require.NoError(t, err)

	wal, err := f.wallets.GetByAccount(ctx, f.w.Owner)
	require.NoError(t, err)
	_, _, err = f.wallets.Debit(ctx, wal.ID, moduletest.Dec("100"), wallet.Entry{Type: wallet.TypeWithdrawal, At: moduletest.Now})
	require.NoError(t, err)

	_, err = f.bookings.Cancel(ctx, b.ID, "", f.w.Guest, jwt.RoleGuest)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	stored, err := f.payments.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, stored.Status)
	assert.Equal(t, "80.00", f.ownerBalance(t))
}

func TestCancel_OpenPaymentIsCancelled(t *testing.T) {
	f := setup(t)
	b := f.book(t)
	p := f.initiate(t, b).Payment
	ctx := context.Background()

	_, err := f.bookings.Cancel(ctx, b.ID, "", f.w.Guest, jwt.RoleGuest)
	require.NoError(t, err)

	stored, err := f.payments.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCancelled, stored.Status)

	// The guest finished paying after cancelling: the money goes back once.
	late := f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-9", sandbox.CodeSuccess)
	got, err := f.payments.HandleCallback(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCancelled, got.Status)
	require.NotNil(t, got.RefundID)
	first := *got.RefundID

	got, err = f.payments.HandleCallback(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, first, *got.RefundID)

	_, err = f.wallets.GetByAccount(ctx, f.w.Owner)
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestRefund_AdminRefundKeepsBooking(t *testing.T) {
	f := setup(t)
	b := f.book(t)
	p := f.initiate(t, b).Payment
	ctx := context.Background()

	_, err := f.payments.Refund(ctx, RefundRequest{PaymentID: p.ID, Reason: "dispute", Actor: f.w.Admin})
	assert.ErrorIs(t, err, ErrNotRefundable)

	_, err = f.payments.HandleCallback(ctx, f.gw.Callback(p.ID.String(), moduletest.Dec("200"), "TXN-1", sandbox.CodeSuccess))
	require.NoError(t, err)

	got, err := f.payments.Refund(ctx, RefundRequest{PaymentID: p.ID, Reason: "dispute", Actor: f.w.Admin})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, got.Status)
	assert.Equal(t, "0.00", f.ownerBalance(t))

	stored, err := f.bookings.Get(ctx, b.ID, f.w.Admin, jwt.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, stored.Booking.Status)
	assert.Contains(t, f.queue.Actions(), "payment.refund")
}
