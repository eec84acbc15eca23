package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/wallet"
	"staybook/internal/jobs/jobstest"
	"staybook/internal/modules/moduletest"
	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/pipeline"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupTestRouter(t *testing.T) (*gin.Engine, *moduletest.World, *jobstest.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := moduletest.Open(t)
	q := &jobstest.Recorder{}
	h := NewHandler(NewService(w.DB, q, w.Clock, pipeline.Stages{}))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-Account-ID"); raw != "" {
			c.Set("account_id", ids.MustParse[ids.AccountID](raw))
		}
		c.Next()
	})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, w, q
}

func doJSONRequest(r http.Handler, method, path string, body any, account ids.AccountID) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if !account.IsZero() {
		req.Header.Set("X-Test-Account-ID", account.String())
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func fund(t *testing.T, w *moduletest.World, account ids.AccountID, amount string) {
	t.Helper()
	repo := wallet.NewRepository(w.DB)
	wal, err := repo.GetOrCreate(context.Background(), account, moduletest.Now)
	require.NoError(t, err)
	_, _, err = repo.Credit(context.Background(), wal.ID, moduletest.Dec(amount), wallet.Entry{Type: wallet.TypeDeposit, At: moduletest.Now})
	require.NoError(t, err)
}

func TestWalletEndpoints_Unauthorized(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{method: http.MethodGet, path: "/api/v1/wallets/me"},
		{method: http.MethodGet, path: "/api/v1/wallets/me/transactions"},
		{method: http.MethodPost, path: "/api/v1/wallets/me/withdraw", body: map[string]any{"amount": "10"}},
	}

	for _, tc := range cases {
		rr, env := doJSONRequest(r, tc.method, tc.path, tc.body, ids.AccountID{})
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
		assert.False(t, env.Success)
	}
}

func TestGetMyWallet_OpensEmptyWallet(t *testing.T) {
	r, w, _ := setupTestRouter(t)

	rr, env := doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me", nil, w.Owner)
	require.Equal(t, http.StatusOK, rr.Code)

	var data struct {
		Wallet struct {
			AccountID ids.AccountID   `json:"account_id"`
			Balance   decimal.Decimal `json:"balance"`
		} `json:"wallet"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, w.Owner, data.Wallet.AccountID)
	assert.True(t, data.Wallet.Balance.IsZero())
}

func TestWithdraw(t *testing.T) {
	r, w, q := setupTestRouter(t)
	fund(t, w, w.Owner, "100")

	rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/withdraw", map[string]any{"amount": "30.50"}, w.Owner)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res struct {
		Wallet      struct{ Balance decimal.Decimal } `json:"wallet"`
		Transaction struct {
			Amount       decimal.Decimal        `json:"amount"`
			BalanceAfter decimal.Decimal        `json:"balance_after"`
			Type         wallet.TransactionType `json:"type"`
		} `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "69.50", res.Wallet.Balance.StringFixed(2))
	assert.Equal(t, "-30.50", res.Transaction.Amount.StringFixed(2))
	assert.Equal(t, "69.50", res.Transaction.BalanceAfter.StringFixed(2))
	assert.Equal(t, wallet.TypeWithdrawal, res.Transaction.Type)
	assert.Equal(t, []string{"wallet.withdraw"}, q.Actions())
	require.Len(t, q.Notifications(), 1)
	assert.Equal(t, "wallet.withdrawn", q.Notifications()[0].Event)

	t.Run("more than the balance", func(t *testing.T) {
		rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/withdraw", map[string]any{"amount": "70"}, w.Owner)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "Wallet.InsufficientFunds", env.Error.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		rr, env := doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/withdraw", map[string]any{"amount": "-5"}, w.Owner)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Wallet.InvalidTransactionAmount", env.Error.Code)
	})
}

func TestListMyTransactions(t *testing.T) {
	r, w, _ := setupTestRouter(t)
	fund(t, w, w.Owner, "100")
	_, _ = doJSONRequest(r, http.MethodPost, "/api/v1/wallets/me/withdraw", map[string]any{"amount": "40"}, w.Owner)

	rr, env := doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me/transactions", nil, w.Owner)
	require.Equal(t, http.StatusOK, rr.Code)
	var all struct {
		Transactions []wallet.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all.Transactions, 2)

	rr, env = doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me/transactions?type=withdrawal", nil, w.Owner)
	require.Equal(t, http.StatusOK, rr.Code)
	var withdrawals struct {
		Transactions []wallet.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &withdrawals))
	require.Len(t, withdrawals.Transactions, 1)
	assert.Equal(t, "-40.00", withdrawals.Transactions[0].Amount.StringFixed(2))

	rr, env = doJSONRequest(r, http.MethodGet, "/api/v1/wallets/me/transactions?type=bonus", nil, w.Owner)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Transaction.InvalidType", env.Error.Code)
}
