package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/cache"
	"staybook/internal/database"
	"staybook/internal/gateway/sandbox"
	"staybook/internal/jobs/jobstest"
	"staybook/internal/modules/moduletest"
	"staybook/internal/pkg/ids"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/pipeline"
	"staybook/internal/store/storetest"
)

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   *ErrorDetail           `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type E2ETestSuite struct {
	router *gin.Engine
	queue  *jobstest.Recorder

	partner, guest, admin string
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.Open(t, database.Models()...)
	queue := &jobstest.Recorder{}
	tokens := jwtsvc.New("test_secret_key_for_e2e_testing", time.Hour)
	gateway := sandbox.New("test-secret", "/sandbox/pay")

	services := NewServices(db, gateway, queue, cache.NewMemory(), moduletest.NewClock(moduletest.Now), Config{
		CommissionRate: decimal.RequireFromString("0.10"),
		QuoteTTL:       time.Minute,
	}, pipeline.Stages{})
	r := NewRouter(services, RouterOptions{
		Logger:  zerolog.Nop(),
		Tokens:  tokens,
		Gateway: gateway,
	})

	token := func(role string) string {
		tok, err := tokens.GenerateToken(ids.New[ids.AccountID](), role)
		require.NoError(t, err)
		return tok
	}
	return &E2ETestSuite{
		router:  r,
		queue:   queue,
		partner: token(jwtsvc.RolePartner),
		guest:   token(jwtsvc.RoleGuest),
		admin:   token(jwtsvc.RoleAdmin),
	}
}

func (s *E2ETestSuite) makeRequest(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// expect checks the status code and decodes the envelope.
func expect(t *testing.T, w *httptest.ResponseRecorder, status int) *TestResponse {
	t.Helper()
	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if resp.Error != nil {
		t.Logf("error: [%s] %s", resp.Error.Code, resp.Error.Message)
	}
	require.Equal(t, status, w.Code, w.Body.String())
	return &resp
}

func object(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	m, ok := v.(map[string]interface{})
	require.True(t, ok, "expected an object, got %T", v)
	return m
}

func amount(t *testing.T, v interface{}) string {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected a decimal string, got %T", v)
	return decimal.RequireFromString(s).StringFixed(2)
}

func TestFlow_BookPayAndSettle(t *testing.T) {
	suite := setupTestSuite(t)
	checkIn := moduletest.CheckIn.Format(time.DateOnly)
	var propertyID, roomTypeID, bookingID, walletID, settlementID string

	t.Run("POST /properties", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/properties", map[string]interface{}{
			"name": "Harbour View", "address": "1 Quay St", "city": "Da Nang",
		}, suite.partner)
		resp := expect(t, w, http.StatusCreated)
		propertyID = object(t, resp.Data["property"])["id"].(string)
	})

	t.Run("POST /properties/:id/room-types", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/properties/"+propertyID+"/room-types", map[string]interface{}{
			"name": "Deluxe", "capacity": 2, "base_price": "100",
		}, suite.partner)
		resp := expect(t, w, http.StatusCreated)
		roomTypeID = object(t, resp.Data["room_type"])["id"].(string)
	})

	t.Run("PUT /room-types/:id/availability", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPut, "/api/v1/room-types/"+roomTypeID+"/availability", map[string]interface{}{
			"from":     checkIn,
			"to":       moduletest.CheckIn.AddDate(0, 0, 3).Format(time.DateOnly),
			"quantity": 2,
			"price":    "100",
		}, suite.partner)
		resp := expect(t, w, http.StatusOK)
		assert.Len(t, resp.Data["availability"], 3)

		w = suite.makeRequest(http.MethodPut, "/api/v1/room-types/"+roomTypeID+"/availability", map[string]interface{}{
			"from": checkIn, "to": checkIn, "quantity": 2, "price": "100",
		}, suite.guest)
		expect(t, w, http.StatusForbidden)
	})

	t.Run("GET /room-types/:id/availability", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/room-types/"+roomTypeID+"/availability?from="+checkIn+
			"&to="+moduletest.CheckIn.AddDate(0, 0, 3).Format(time.DateOnly), nil, "")
		resp := expect(t, w, http.StatusOK)
		nights := resp.Data["nights"].([]interface{})
		require.Len(t, nights, 3)
		first := object(t, nights[0])
		assert.Equal(t, float64(2), first["available"])
		assert.Equal(t, "100.00", amount(t, first["final_price"]))
	})

	t.Run("POST /vouchers", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/vouchers", map[string]interface{}{
			"code":           "E2E10",
			"discount_type":  "percent",
			"discount_value": "10",
			"start_date":     moduletest.Now.Format(time.DateOnly),
			"end_date":       moduletest.Now.AddDate(0, 3, 0).Format(time.DateOnly),
		}, suite.admin)
		expect(t, w, http.StatusCreated)
	})

	t.Run("POST /vouchers/:code/preview", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/vouchers/E2E10/preview", map[string]interface{}{
			"amount":        "200",
			"property_id":   propertyID,
			"room_type_ids": []string{roomTypeID},
		}, suite.guest)
		resp := expect(t, w, http.StatusOK)
		quote := object(t, resp.Data["quote"])
		assert.Equal(t, true, quote["valid"])
		assert.Equal(t, "20.00", amount(t, quote["discount"]))
		assert.Equal(t, "180.00", amount(t, quote["final_amount"]))
	})

	t.Run("POST /bookings", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/bookings", map[string]interface{}{
			"property_id":  propertyID,
			"check_in":     checkIn,
			"check_out":    moduletest.CheckIn.AddDate(0, 0, 2).Format(time.DateOnly),
			"guests":       2,
			"rooms":        []map[string]interface{}{{"room_type_id": roomTypeID, "quantity": 1}},
			"voucher_code": "E2E10",
		}, suite.guest)
		resp := expect(t, w, http.StatusCreated)
		b := object(t, resp.Data["booking"])
		bookingID = b["id"].(string)
		assert.Equal(t, "pending", b["status"])
		assert.Equal(t, "180.00", amount(t, b["total_price"]))
		assert.Equal(t, "20.00", amount(t, b["discount_amount"]))
	})

	t.Run("POST /payments then the sandbox pay page", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/payments", map[string]interface{}{"booking_id": bookingID}, suite.partner)
		expect(t, w, http.StatusForbidden)

		w = suite.makeRequest(http.MethodPost, "/api/v1/payments", map[string]interface{}{"booking_id": bookingID}, suite.guest)
		resp := expect(t, w, http.StatusOK)
		payURL := resp.Data["payment_url"].(string)
		require.NotEmpty(t, payURL)

		w = suite.makeRequest(http.MethodGet, payURL, nil, "")
		require.Equal(t, http.StatusFound, w.Code, w.Body.String())
		callback := w.Header().Get("Location")
		require.Contains(t, callback, CallbackPath)

		w = suite.makeRequest(http.MethodGet, callback, nil, "")
		resp = expect(t, w, http.StatusOK)
		assert.Equal(t, "success", resp.Data["status"])
	})

	t.Run("GET /bookings/:id", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/bookings/"+bookingID, nil, suite.guest)
		resp := expect(t, w, http.StatusOK)
		assert.Equal(t, "confirmed", object(t, resp.Data["booking"])["status"])
	})

	t.Run("GET /wallets/me", func(t *testing.T) {
		w := suite.makeRequest(http.MethodGet, "/api/v1/wallets/me", nil, suite.partner)
		resp := expect(t, w, http.StatusOK)
		wallet := object(t, resp.Data["wallet"])
		walletID = wallet["id"].(string)
		assert.Equal(t, "162.00", amount(t, wallet["balance"]))
	})

	t.Run("POST /settlements", func(t *testing.T) {
		w := suite.makeRequest(http.MethodPost, "/api/v1/settlements", map[string]interface{}{
			"wallet_id":    walletID,
			"period_start": moduletest.Now.Format(time.DateOnly),
			"period_end":   moduletest.Now.AddDate(0, 0, 1).Format(time.DateOnly),
		}, suite.partner)
		expect(t, w, http.StatusForbidden)

		w = suite.makeRequest(http.MethodPost, "/api/v1/settlements", map[string]interface{}{
			"wallet_id":    walletID,
			"period_start": moduletest.Now.Format(time.DateOnly),
			"period_end":   moduletest.Now.AddDate(0, 0, 1).Format(time.DateOnly),
		}, suite.admin)
		resp := expect(t, w, http.StatusCreated)
		st := object(t, resp.Data["settlement"])
		settlementID = st["id"].(string)
		assert.Equal(t, "180.00", amount(t, st["total_amount"]))
		assert.Equal(t, "18.00", amount(t, st["commission_amount"]))
		assert.Equal(t, "162.00", amount(t, st["net_amount"]))

		for _, step := range []string{"process", "complete"} {
			w = suite.makeRequest(http.MethodPost, "/api/v1/settlements/"+settlementID+"/"+step, nil, suite.admin)
			expect(t, w, http.StatusOK)
		}

		w = suite.makeRequest(http.MethodGet, "/api/v1/wallets/me", nil, suite.partner)
		resp = expect(t, w, http.StatusOK)
		assert.Equal(t, "0.00", amount(t, object(t, resp.Data["wallet"])["balance"]))
	})

	t.Run("audit trail", func(t *testing.T) {
		actions := suite.queue.Actions()
		assert.Contains(t, actions, "property.create")
		assert.Contains(t, actions, "availability.set")
		assert.Contains(t, actions, "settlement.create")
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	suite := setupTestSuite(t)

	for _, path := range []string{"/api/v1/bookings/my", "/api/v1/wallets/me", "/api/v1/properties/mine"} {
		w := suite.makeRequest(http.MethodGet, path, nil, "")
		expect(t, w, http.StatusUnauthorized)
	}

	w := suite.makeRequest(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
