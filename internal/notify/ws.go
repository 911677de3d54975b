package notify

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emilythestrangee/forum/backend/internal/metrics"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 16
	maxMessageSize = 4096
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// frame is the envelope for every websocket message in both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type registerData struct {
	UserID string `json:"userId"`
}

// Client is a websocket connection with its own writer goroutine. Send never
// blocks: a full buffer drops the message.
type Client struct {
	conn *websocket.Conn
	// identity is the authenticated user id, empty when the handler does not
	// verify tokens.
	identity  string
	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, identity string) *Client {
	c := &Client{
		conn:     conn,
		identity: identity,
		sendCh:   make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send queues payload as a "notification" frame.
func (c *Client) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(frame{Event: "notification", Data: data})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.sendCh <- msg:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier func(token string) (userID string, err error)

// Handler upgrades HTTP requests to notification websockets. A client becomes
// addressable after sending {"event":"register","data":{"userId":"..."}}.
type Handler struct {
	router   *Router
	verify   TokenVerifier
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a websocket handler. checkOrigin may be nil to accept
// same-origin requests only. When verify is set, the upgrade request must
// carry a token (?token= or an Authorization bearer header) and the client
// may only register the user id that token belongs to.
func NewHandler(router *Router, checkOrigin func(*http.Request) bool, verify TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		router: router,
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var identity string
	if h.verify != nil {
		userID, err := h.verify(requestToken(r))
		if err != nil || userID == "" {
			h.logger.Debug("Rejected unauthenticated websocket", "remote", r.RemoteAddr)
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}
		identity = userID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	client := newClient(conn, identity)
	metrics.OpenConnections.Inc()
	h.logger.Debug("Notification client connected", "remote", r.RemoteAddr)

	h.readLoop(client)
}

func (h *Handler) readLoop(c *Client) {
	defer func() {
		removed := h.router.Disconnect(c)
		c.close()
		metrics.OpenConnections.Dec()
		h.logger.Debug("Notification client disconnected", "purged_users", removed)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Notification client read error", "error", err)
			}
			return
		}

		var msg frame
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Debug("Ignoring malformed client frame", "error", err)
			continue
		}

		switch msg.Event {
		case "register":
			var data registerData
			if err := json.Unmarshal(msg.Data, &data); err != nil || data.UserID == "" {
				h.logger.Debug("Ignoring register frame without userId")
				continue
			}
			if c.identity != "" && data.UserID != c.identity {
				h.logger.Warn("Rejected register for another user", "token_user_id", c.identity, "requested_user_id", data.UserID)
				continue
			}
			h.router.Register(data.UserID, c)
		default:
			h.logger.Debug("Ignoring unknown client event", "event", msg.Event)
		}
	}
}

// requestToken reads the token from the query string, falling back to the
// Authorization header for non-browser clients.
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
