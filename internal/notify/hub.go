// Package notify pushes account notifications over websockets.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"staybook/internal/pkg/ids"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the frame sent to clients.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	At   time.Time      `json:"at"`
}

type connection struct {
	account ids.AccountID
	conn    *websocket.Conn
	send    chan []byte
}

// Hub keeps one connection per account; a newer connection replaces the
// older one.
type Hub struct {
	mu          sync.RWMutex
	connections map[ids.AccountID]*connection
	log         zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{connections: make(map[ids.AccountID]*connection), log: log}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.connections[c.account]; ok {
		close(old.send)
	}
	h.connections[c.account] = c
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.connections[c.account]; ok && existing == c {
		delete(h.connections, c.account)
		close(c.send)
	}
}

// Online reports whether account has a live connection.
func (h *Hub) Online(account ids.AccountID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[account]
	return ok
}

// Push queues event for account without blocking. It returns false when the
// account is offline or its buffer is full.
func (h *Hub) Push(account ids.AccountID, event string, data map[string]any) bool {
	frame, err := json.Marshal(Event{Type: event, Data: data, At: time.Now().UTC()})
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.connections[account]
	if !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		h.log.Warn().Str("account_id", account.String()).Msg("notification dropped, client too slow")
		return false
	}
}

// Handler upgrades GET /ws?token=<jwt>. Browsers cannot set headers on a
// websocket handshake, so the token travels in the query.
func (h *Hub) Handler(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.ValidateToken(c.Query("token"))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		account, _ := claims.Account()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		h.serve(conn, account)
	}
}

func (h *Hub) serve(conn *websocket.Conn, account ids.AccountID) {
	c := &connection{account: account, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; clients never send events.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
