package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 << 20
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // terminals are served from the local network
	},
}

// Hub keeps a set of WebSocket connections and fans messages out to them.
// A relay hub forwards every valid envelope a client sends to all other
// clients; a feed hub only pushes what the server broadcasts.
type Hub struct {
	forward bool
	logger  *slog.Logger

	mu    sync.RWMutex
	conns map[*hubConn]struct{}
}

type hubConn struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewRelay creates a hub that relays envelopes between peers.
func NewRelay(logger *slog.Logger) *Hub {
	return newHub(true, logger)
}

// NewFeed creates a hub that pushes server messages to read-only clients.
func NewFeed(logger *slog.Logger) *Hub {
	return newHub(false, logger)
}

func newHub(forward bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		forward: forward,
		logger:  logger,
		conns:   make(map[*hubConn]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", "action", "ws_upgrade", "error", err)
		return
	}

	c := &hubConn{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", "action", "ws_connect", "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast queues data for every connection.
func (h *Hub) Broadcast(data []byte) {
	h.fanOut(nil, data)
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*hubConn]struct{})
	h.mu.Unlock()

	for c := range conns {
		c.stop()
	}
}

func (h *Hub) fanOut(from *hubConn, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if c == from {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket buffer full, dropping message", "action", "ws_drop")
		}
	}
}

func (h *Hub) remove(c *hubConn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if ok {
		c.stop()
	}
}

func (c *hubConn) stop() {
	c.once.Do(func() { close(c.send) })
}

func (c *hubConn) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "action", "ws_read", "error", err)
			}
			return
		}
		if !c.hub.forward {
			continue
		}
		env, err := Decode(message)
		if err != nil {
			c.hub.logger.Warn("dropping malformed envelope", "action", "relay", "error", err)
			continue
		}
		c.hub.logger.Debug("relaying delta", "action", "relay", "from", env.Peer, "seq", env.Seq)
		c.hub.fanOut(c, message)
	}
}

func (c *hubConn) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// WebSocket is a peer Transport connected to a relay Hub.
type WebSocket struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	handler atomic.Pointer[Handler]

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// DialWebSocket connects to the relay at url, e.g. ws://host:8080/relay.
func DialWebSocket(ctx context.Context, url string, logger *slog.Logger) (*WebSocket, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay %s: %w", url, err)
	}

	ws := &WebSocket{
		conn:   conn,
		logger: logger,
		done:   make(chan struct{}),
	}
	conn.SetReadLimit(maxMessageSize)
	go ws.readLoop()
	return ws, nil
}

// Publish writes env to the relay, which forwards it to the other peers.
func (ws *WebSocket) Publish(ctx context.Context, env Envelope) error {
	data, err := Encode(env)
	if err != nil {
		return err
	}

	select {
	case <-ws.done:
		return ErrClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.conn.SetWriteDeadline(deadline)
	if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to publish to relay: %w", err)
	}
	return nil
}

// Subscribe installs h. Envelopes that arrive before Subscribe are dropped.
// When ctx is done the connection is closed.
func (ws *WebSocket) Subscribe(ctx context.Context, h Handler) error {
	ws.handler.Store(&h)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-ws.done:
		}
	}()
	return nil
}

// Close sends a close frame and shuts the connection.
func (ws *WebSocket) Close() error {
	var err error
	ws.once.Do(func() {
		close(ws.done)
		ws.writeMu.Lock()
		ws.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		ws.writeMu.Unlock()
		err = ws.conn.Close()
	})
	return err
}

// readLoop runs for the life of the connection so pings from the relay are
// answered even before anyone subscribes.
func (ws *WebSocket) readLoop() {
	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			select {
			case <-ws.done:
			default:
				ws.logger.Warn("relay connection lost", "action", "ws_read", "error", err)
				ws.Close()
			}
			return
		}

		env, err := Decode(message)
		if err != nil {
			ws.logger.Warn("dropping malformed envelope", "action", "ws_read", "error", err)
			continue
		}
		if h := ws.handler.Load(); h != nil {
			(*h)(env)
		}
	}
}
