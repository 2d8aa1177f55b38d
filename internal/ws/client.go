package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbg-dapur/api/internal/auth"
	"github.com/mbg-dapur/api/internal/enum"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

// Origin is not checked: the token in the query string is what grants access.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one dashboard connection watching a dapur's purchase order workflows.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	dapurID int64
	send    chan []byte
}

// ReadPump keeps the connection's read side alive until the dashboard goes
// away, then leaves the hub. Dashboards are listen-only, so incoming frames
// are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read", zap.Int64("dapur_id", c.dapurID), zap.Error(err))
			}
			return
		}
	}
}

// WritePump forwards workflow events to the dashboard and pings it so dead
// connections are noticed. Events queued while writing are batched into one
// frame, newline separated.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub, or the hub shut down
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			for n := len(c.send); n > 0; n-- {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades GET /ws/dapurs/{dapurId}/workflows?token=JWT and joins
// the dapur's room. Owners may watch any dapur, everyone else only their own.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	dapurID, err := strconv.ParseInt(r.PathValue("dapurId"), 10, 64)
	if err != nil || dapurID <= 0 {
		http.Error(w, "invalid dapur id", http.StatusBadRequest)
		return
	}

	if claims.Role != enum.UserRoleOwner && claims.DapurID != dapurID {
		http.Error(w, "dapur access denied", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:     hub,
		conn:    conn,
		dapurID: dapurID,
		send:    make(chan []byte, sendBuffer),
	}
	if !hub.Register(client) {
		conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
