package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/cache"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/voucher"
	"staybook/internal/jobs/jobstest"
	"staybook/internal/modules/moduletest"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/pipeline"
)

func newService(t *testing.T, quotes cache.Cache) (*Service, *moduletest.World, *jobstest.Recorder) {
	t.Helper()
	w := moduletest.Open(t)
	q := &jobstest.Recorder{}
	return NewService(w.DB, quotes, time.Minute, q, w.Clock, pipeline.Stages{}), w, q
}

func percentRequest(actor ids.AccountID, role, code string) CreateRequest {
	limit := 5
	ceiling := moduletest.Dec("15")
	return CreateRequest{
		Actor:                 actor,
		Role:                  role,
		Code:                  code,
		DiscountType:          voucher.DiscountPercent,
		DiscountValue:         moduletest.Dec("10"),
		MaximumDiscountAmount: &ceiling,
		UsageLimit:            &limit,
		StartDate:             moduletest.Now.AddDate(0, 0, -1),
		EndDate:               moduletest.Now.AddDate(0, 1, 0),
	}
}

func TestCreate(t *testing.T) {
	svc, w, q := newService(t, nil)
	ctx := context.Background()

	v, err := svc.Create(ctx, percentRequest(w.Admin, jwt.RoleAdmin, " autumn10 "))
	require.NoError(t, err)
	assert.Equal(t, "AUTUMN10", v.Code)
	assert.Equal(t, voucher.StatusActive, v.Status)
	assert.Equal(t, []string{"voucher.create"}, q.Actions())

	_, err = svc.Create(ctx, percentRequest(w.Admin, jwt.RoleAdmin, "AUTUMN10"))
	assert.ErrorIs(t, err, voucher.ErrCodeExists)
}

func TestCreate_ReportsEveryRule(t *testing.T) {
	svc, w, _ := newService(t, nil)

	req := percentRequest(w.Admin, jwt.RoleAdmin, "BROKEN")
	req.DiscountValue = moduletest.Dec("150")
	req.EndDate = req.StartDate
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)

	codes := []string{}
	for _, e := range apperr.List(err) {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{"Voucher.InvalidDiscountPercent", "Voucher.InvalidDateRange"}, codes)
}

func TestCreate_PartnerTargets(t *testing.T) {
	svc, w, _ := newService(t, nil)
	ctx := context.Background()
	own := w.Property.ID.UUID()

	t.Run("own property", func(t *testing.T) {
		req := percentRequest(w.Owner, jwt.RolePartner, "HARBOUR")
		req.Targets = []TargetBody{{Scope: voucher.ScopeProperty, TargetID: &own}}
		v, err := svc.Create(ctx, req)
		require.NoError(t, err)
		require.Len(t, v.Targets, 1)
	})

	t.Run("own room type", func(t *testing.T) {
		rt := w.RoomType(t, "Suite", 2, "300")
		id := rt.ID.UUID()
		req := percentRequest(w.Owner, jwt.RolePartner, "SUITE")
		req.Targets = []TargetBody{{Scope: voucher.ScopeRoomType, TargetID: &id}}
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	})

	t.Run("someone else's property", func(t *testing.T) {
		other := uuid.New()
		req := percentRequest(w.Owner, jwt.RolePartner, "OTHER")
		req.Targets = []TargetBody{{Scope: voucher.ScopeProperty, TargetID: &other}}
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, ErrTargetNotOwned)
	})

	t.Run("global", func(t *testing.T) {
		_, err := svc.Create(ctx, percentRequest(w.Owner, jwt.RolePartner, "EVERYWHERE"))
		assert.ErrorIs(t, err, ErrTargetNotOwned)
	})
}

func TestPreview(t *testing.T) {
	svc, w, _ := newService(t, nil)
	ctx := context.Background()
	minOrder := moduletest.Dec("100")
	ceiling := moduletest.Dec("15")
	w.Voucher(t, voucher.Params{
		Code:                  "SAVE10",
		DiscountType:          voucher.DiscountPercent,
		DiscountValue:         moduletest.Dec("10"),
		MinimumOrderAmount:    &minOrder,
		MaximumDiscountAmount: &ceiling,
	})
	propertyID := w.Property.ID.UUID()
	w.Voucher(t, voucher.Params{
		Code:          "HARBOUR",
		DiscountType:  voucher.DiscountAmount,
		DiscountValue: moduletest.Dec("25"),
		Targets:       []voucher.TargetSpec{{Scope: voucher.ScopeProperty, TargetID: &propertyID}},
	})

	t.Run("capped discount", func(t *testing.T) {
		q, err := svc.Preview(ctx, PreviewRequest{Code: "save10", Amount: moduletest.Dec("200")})
		require.NoError(t, err)
		assert.True(t, q.Valid)
		assert.Equal(t, "15.00", q.Discount.StringFixed(2))
		assert.Equal(t, "185.00", q.FinalAmount.StringFixed(2))
	})

	t.Run("below minimum", func(t *testing.T) {
		q, err := svc.Preview(ctx, PreviewRequest{Code: "SAVE10", Amount: moduletest.Dec("99.99")})
		require.NoError(t, err)
		assert.False(t, q.Valid)
		assert.Contains(t, q.Reason, "100.00")
		assert.Equal(t, "99.99", q.FinalAmount.StringFixed(2))
	})

	t.Run("target matches property", func(t *testing.T) {
		q, err := svc.Preview(ctx, PreviewRequest{Code: "HARBOUR", Amount: moduletest.Dec("20"), PropertyID: w.Property.ID})
		require.NoError(t, err)
		assert.True(t, q.Valid)
		assert.Equal(t, "20.00", q.Discount.StringFixed(2))
		assert.Equal(t, "0.00", q.FinalAmount.StringFixed(2))
	})

	t.Run("target without property", func(t *testing.T) {
		q, err := svc.Preview(ctx, PreviewRequest{Code: "HARBOUR", Amount: moduletest.Dec("200")})
		require.NoError(t, err)
		assert.False(t, q.Valid)
		assert.Equal(t, voucher.ErrNotApplicable.Message, q.Reason)
	})

	t.Run("unknown property", func(t *testing.T) {
		_, err := svc.Preview(ctx, PreviewRequest{Code: "HARBOUR", Amount: moduletest.Dec("200"), PropertyID: ids.New[ids.PropertyID]()})
		assert.ErrorIs(t, err, catalog.ErrPropertyNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.Preview(ctx, PreviewRequest{Code: "NOPE", Amount: moduletest.Dec("200")})
		assert.ErrorIs(t, err, voucher.ErrNotFound)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := svc.Preview(ctx, PreviewRequest{Code: "SAVE10", Amount: moduletest.Dec("-1")})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("expired is not persisted", func(t *testing.T) {
		w.Clock.Set(moduletest.Now.AddDate(0, 2, 0))
		defer w.Clock.Set(moduletest.Now)
		q, err := svc.Preview(ctx, PreviewRequest{Code: "SAVE10", Amount: moduletest.Dec("200")})
		require.NoError(t, err)
		assert.False(t, q.Valid)
		assert.Equal(t, voucher.ErrExpired.Message, q.Reason)

		v, err := svc.Get(ctx, "SAVE10")
		require.NoError(t, err)
		assert.Equal(t, voucher.StatusActive, v.Status)
	})
}

func TestPreview_ServedFromCache(t *testing.T) {
	svc, w, _ := newService(t, cache.NewMemory())
	ctx := context.Background()
	w.Voucher(t, voucher.Params{Code: "FLAT5", DiscountType: voucher.DiscountAmount, DiscountValue: moduletest.Dec("5")})

	first, err := svc.Preview(ctx, PreviewRequest{Code: "FLAT5", Amount: moduletest.Dec("50")})
	require.NoError(t, err)
	require.True(t, first.Valid)

	_, err = svc.Disable(ctx, DisableRequest{Code: "FLAT5", Actor: w.Admin, Role: jwt.RoleAdmin})
	require.NoError(t, err)

	cached, err := svc.Preview(ctx, PreviewRequest{Code: "flat5", Amount: moduletest.Dec("50.00")})
	require.NoError(t, err)
	assert.True(t, cached.Valid)
	assert.Equal(t, "5.00", cached.Discount.StringFixed(2))

	fresh, err := svc.Preview(ctx, PreviewRequest{Code: "FLAT5", Amount: moduletest.Dec("60")})
	require.NoError(t, err)
	assert.False(t, fresh.Valid)
	assert.Equal(t, voucher.ErrDisabled.Message, fresh.Reason)
}

func TestDisable(t *testing.T) {
	svc, w, q := newService(t, nil)
	ctx := context.Background()
	v := w.Voucher(t, voucher.Params{
		Code: "OWNED", DiscountType: voucher.DiscountAmount, DiscountValue: moduletest.Dec("5"), CreatedBy: w.Owner,
	})

	_, err := svc.Disable(ctx, DisableRequest{Code: "OWNED", Actor: w.Guest, Role: jwt.RolePartner})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Disable(ctx, DisableRequest{Code: "owned", Actor: w.Owner, Role: jwt.RolePartner})
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, voucher.StatusDisabled, got.Status)

	view, err := svc.Get(ctx, "OWNED")
	require.NoError(t, err)
	assert.Equal(t, voucher.StatusDisabled, view.Status)
	assert.Contains(t, q.Actions(), "voucher.disable")
}

func TestList(t *testing.T) {
	svc, w, _ := newService(t, nil)
	ctx := context.Background()
	w.Voucher(t, voucher.Params{Code: "MINE", DiscountType: voucher.DiscountAmount, DiscountValue: moduletest.Dec("5"), CreatedBy: w.Owner})
	w.Voucher(t, voucher.Params{Code: "PLATFORM", DiscountType: voucher.DiscountAmount, DiscountValue: moduletest.Dec("5")})

	mine, err := svc.List(ctx, w.Owner, jwt.RolePartner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "MINE", mine[0].Code)

	all, err := svc.List(ctx, w.Admin, jwt.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExpireVouchers(t *testing.T) {
	svc, w, _ := newService(t, nil)
	ctx := context.Background()
	w.Voucher(t, voucher.Params{Code: "SHORT", DiscountType: voucher.DiscountAmount, DiscountValue: moduletest.Dec("5"), EndDate: moduletest.Now.AddDate(0, 0, 2)})
	w.Voucher(t, voucher.Params{Code: "LONG", DiscountType: voucher.DiscountAmount, DiscountValue: moduletest.Dec("5"), EndDate: moduletest.Now.AddDate(0, 2, 0)})

	n, err := svc.ExpireVouchers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	w.Clock.Set(moduletest.Now.AddDate(0, 0, 5))
	n, err = svc.ExpireVouchers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	short, err := svc.Get(ctx, "SHORT")
	require.NoError(t, err)
	assert.Equal(t, voucher.StatusExpired, short.Status)
	long, err := svc.Get(ctx, "LONG")
	require.NoError(t, err)
	assert.Equal(t, voucher.StatusActive, long.Status)
}
