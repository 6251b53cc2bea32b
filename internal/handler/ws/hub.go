package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinFuzz/internal/domain/models"
	domrepo "FinFuzz/internal/domain/repository"
	applogger "FinFuzz/pkg/logger"
)

// Option configures Hub.
type Option func(*Hub)

// WithPingInterval sets the keep-alive ping period; peers silent for two periods are dropped.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithBufferSize sets how many signals may queue per subscriber before it is dropped.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l *applogger.Logger) Option {
	return func(h *Hub) { h.l = l }
}

type client struct {
	conn   *websocket.Conn
	symbol string
	send   chan []byte
	once   sync.Once
}

func (c *client) wants(symbol string) bool {
	return c.symbol == "" || strings.EqualFold(c.symbol, symbol)
}

// Hub fans freshly computed signals out to websocket subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeWait    time.Duration
	bufferSize   int
	l            *applogger.Logger
}

var _ domrepo.SignalBroadcaster = (*Hub)(nil)

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:      make(map[*client]struct{}),
		pingInterval: 30 * time.Second,
		writeWait:    10 * time.Second,
		bufferSize:   64,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Serve)
}

// Serve upgrades the request and streams signals for ?symbol= (all symbols when empty).
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		return nil
	}
	cl := &client{
		conn:   conn,
		symbol: strings.TrimSpace(c.QueryParam("symbol")),
		send:   make(chan []byte, h.bufferSize),
	}
	h.add(cl)
	h.debug("ws subscriber connected", applogger.String("symbol", cl.symbol), applogger.String("remote", c.RealIP()))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// Broadcast queues s for every interested subscriber. Subscribers whose queue is full are dropped.
func (h *Hub) Broadcast(s models.Signal) {
	b, err := json.Marshal(s)
	if err != nil {
		h.warn("ws encode signal", applogger.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		if !cl.wants(s.Symbol) {
			continue
		}
		select {
		case cl.send <- b:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.warn("ws subscriber too slow, dropping", applogger.String("symbol", cl.symbol))
		h.remove(cl)
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		all = append(all, cl)
	}
	h.mu.RUnlock()
	for _, cl := range all {
		h.remove(cl)
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
}

// remove unregisters cl and closes its queue; the write loop then closes the connection.
func (h *Hub) remove(cl *client) {
	cl.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		close(cl.send)
	})
}

// readLoop discards client frames and keeps the read deadline fresh on pong.
func (h *Hub) readLoop(cl *client) {
	defer h.remove(cl)
	deadline := 2 * h.pingInterval
	_ = cl.conn.SetReadDeadline(time.Now().Add(deadline))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.debug("ws read", applogger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.remove(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		}
	}
}

func (h *Hub) debug(msg string, fields ...applogger.Field) {
	if h.l != nil {
		h.l.Debug(msg, fields...)
	}
}

func (h *Hub) warn(msg string, fields ...applogger.Field) {
	if h.l != nil {
		h.l.Warn(msg, fields...)
	}
}
