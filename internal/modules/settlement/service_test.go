package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/wallet"
	"staybook/internal/jobs/jobstest"
	"staybook/internal/modules/moduletest"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/pipeline"
)

var (
	periodStart = moduletest.Now.AddDate(0, 0, -30)
	periodEnd   = moduletest.Now.AddDate(0, 0, 1)
)

type fixture struct {
	w       *moduletest.World
	svc     *Service
	wallets *wallet.Repository
	queue   *jobstest.Recorder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	w := moduletest.Open(t)
	q := &jobstest.Recorder{}
	return &fixture{
		w:       w,
		svc:     NewService(w.DB, q, w.Clock, pipeline.Stages{}),
		wallets: wallet.NewRepository(w.DB),
		queue:   q,
	}
}

// earn books a paid booking into the account's wallet at at: the gross
// payment and the commission taken from it.
func (f *fixture) earn(t *testing.T, account ids.AccountID, gross, commission string, at time.Time) (*wallet.Wallet, ids.BookingID) {
	t.Helper()
	ctx := context.Background()
	w, err := f.wallets.GetOrCreate(ctx, account, moduletest.Now)
	require.NoError(t, err)
	booking := ids.New[ids.BookingID]()
	_, _, err = f.wallets.Credit(ctx, w.ID, moduletest.Dec(gross), wallet.Entry{Type: wallet.TypePayment, BookingID: &booking, At: at})
	require.NoError(t, err)
	w, _, err = f.wallets.Debit(ctx, w.ID, moduletest.Dec(commission), wallet.Entry{Type: wallet.TypeCommission, BookingID: &booking, At: at})
	require.NoError(t, err)
	return w, booking
}

func (f *fixture) balance(t *testing.T, id ids.WalletID) string {
	t.Helper()
	w, err := f.wallets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return w.Balance.StringFixed(2)
}

func TestSettle_SumsThePeriod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w, _ := f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)
	f.earn(t, f.w.Owner, "500", "50", moduletest.Now.AddDate(0, 0, -60))
	_, refunded := f.earn(t, f.w.Owner, "300", "30", moduletest.Now)
	_, err := f.wallets.ReverseBookingEntries(ctx, w.ID, refunded, moduletest.Now, wallet.TypePayment, wallet.TypeCommission)
	require.NoError(t, err)

	st, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd, Actor: f.w.Admin})
	require.NoError(t, err)
	assert.Equal(t, wallet.SettlementPending, st.Status)
	assert.Equal(t, "1000.00", st.TotalAmount.StringFixed(2))
	assert.Equal(t, "100.00", st.CommissionAmount.StringFixed(2))
	assert.Equal(t, "900.00", st.NetAmount.StringFixed(2))
	assert.Equal(t, []string{"settlement.create"}, f.queue.Actions())

	_, err = f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: moduletest.Now.AddDate(0, 0, -1), PeriodEnd: periodEnd})
	assert.ErrorIs(t, err, wallet.ErrPeriodAlreadySettled)
}

func TestSettle_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w, _ := f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)

	_, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodEnd, PeriodEnd: periodStart})
	assert.ErrorIs(t, err, wallet.ErrInvalidPeriod)

	_, err = f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodEnd, PeriodEnd: periodEnd.AddDate(0, 1, 0)})
	assert.ErrorIs(t, err, wallet.ErrNothingToSettle)

	_, err = f.svc.Settle(ctx, SettleRequest{WalletID: ids.New[ids.WalletID](), PeriodStart: periodStart, PeriodEnd: periodEnd})
	assert.ErrorIs(t, err, wallet.ErrNotFound)
}

func TestSettle_ConcurrentCallsCreateOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w, _ := f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)

	const callers = 6
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, wallet.ErrPeriodAlreadySettled)
	}
	assert.Equal(t, 1, created)

	list, err := f.wallets.ListSettlements(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLifecycle_CompletePaysOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w, _ := f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)
	st, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, st.ID, f.w.Admin)
	assert.ErrorIs(t, err, wallet.ErrSettlementTransition)

	_, err = f.svc.Process(ctx, st.ID, f.w.Admin)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, st.ID, f.w.Admin)
	assert.ErrorIs(t, err, wallet.ErrCannotCancel)

	done, err := f.svc.Complete(ctx, st.ID, f.w.Admin)
	require.NoError(t, err)
	assert.Equal(t, wallet.SettlementCompleted, done.Status)
	require.NotNil(t, done.TransactionID)
	require.NotNil(t, done.PaidAt)
	assert.Equal(t, "0.00", f.balance(t, w.ID))

	payouts, err := f.wallets.ListTransactions(ctx, w.ID, wallet.TxnFilter{Type: wallet.TypeSettlement})
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, *done.TransactionID, payouts[0].ID)
	assert.Equal(t, "-900.00", payouts[0].Amount.StringFixed(2))

	notes := f.queue.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, f.w.Owner, notes[0].AccountID)
	assert.Equal(t, "settlement.completed", notes[0].Event)

	_, err = f.svc.Complete(ctx, st.ID, f.w.Admin)
	assert.ErrorIs(t, err, wallet.ErrAlreadyProcessed)
	assert.Equal(t, "0.00", f.balance(t, w.ID))
}

func TestLifecycle_ShortWalletFailsAndRetries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w, _ := f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)
	st, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)
	_, _, err = f.wallets.Debit(ctx, w.ID, moduletest.Dec("850"), wallet.Entry{Type: wallet.TypeWithdrawal, At: moduletest.Now})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, st.ID, f.w.Admin)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, st.ID, f.w.Admin)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	got, err := f.svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.SettlementProcessing, got.Status)
	assert.Equal(t, "50.00", f.balance(t, w.ID))

	failed, err := f.svc.Fail(ctx, st.ID, "payout account rejected", f.w.Admin)
	require.NoError(t, err)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "payout account rejected", *failed.FailureReason)

	retried, err := f.svc.Process(ctx, st.ID, f.w.Admin)
	require.NoError(t, err)
	assert.Equal(t, wallet.SettlementProcessing, retried.Status)
	assert.Nil(t, retried.FailureReason)
}

func TestCancel_FreesThePeriod(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	w, _ := f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)
	st, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, st.ID, f.w.Admin)
	require.NoError(t, err)

	again, err := f.svc.Settle(ctx, SettleRequest{WalletID: w.ID, PeriodStart: periodStart, PeriodEnd: periodEnd})
	require.NoError(t, err)
	assert.NotEqual(t, st.ID, again.ID)

	list, err := f.svc.ListForAccount(ctx, f.w.Owner)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	none, err := f.svc.ListForAccount(ctx, f.w.Guest)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSettleAll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.earn(t, f.w.Owner, "1000", "100", moduletest.Now)
	f.earn(t, ids.New[ids.AccountID](), "250", "25", moduletest.Now)
	_, err := f.wallets.GetOrCreate(ctx, f.w.Guest, moduletest.Now)
	require.NoError(t, err)

	sum, err := f.svc.SettleAll(ctx, periodStart, periodEnd, 4)
	require.NoError(t, err)
	assert.Len(t, sum.Created, 2)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Failed)

	nets := []string{}
	for _, st := range sum.Created {
		nets = append(nets, st.NetAmount.StringFixed(2))
	}
	assert.ElementsMatch(t, []string{"900.00", "225.00"}, nets)

	sum, err = f.svc.SettleAll(ctx, periodStart, periodEnd, 4)
	require.NoError(t, err)
	assert.Empty(t, sum.Created)
	assert.Equal(t, 3, sum.Skipped)
}
