package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
)

func newServer(t *testing.T) (*Hub, *jwt.Service, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(zerolog.Nop())
	tokens := jwt.New("secret", time.Hour)
	r := gin.New()
	r.GET("/ws", hub.Handler(tokens))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, tokens, srv
}

func TestPushReachesConnectedAccount(t *testing.T) {
	hub, tokens, srv := newServer(t)
	account := ids.New[ids.AccountID]()
	token, err := tokens.GenerateToken(account, jwt.RoleGuest)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Online(account) }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, hub.Push(account, "booking.confirmed", map[string]any{"booking_id": "b-1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "booking.confirmed", ev.Type)
	assert.Equal(t, "b-1", ev.Data["booking_id"])

	assert.False(t, hub.Push(ids.New[ids.AccountID](), "booking.confirmed", nil))
}

func TestHandlerRejectsBadToken(t *testing.T) {
	_, _, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/ws?token=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, tokens, srv := newServer(t)
	account := ids.New[ids.AccountID]()
	token, _ := tokens.GenerateToken(account, jwt.RolePartner)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Online(account) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !hub.Online(account) }, 2*time.Second, 10*time.Millisecond)
}
