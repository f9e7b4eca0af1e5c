package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/store"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	clientBuffer   = 64
	maxMessageSize = 512
)

// Hub bridges the Redis price channel to websocket clients: one pub/sub
// subscription fans out to every connected socket. Slow clients are dropped
// rather than allowed to stall the broadcast loop.
type Hub struct {
	cache  *store.CacheStore
	logger *logger.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(cache *store.CacheStore, log *logger.Logger) *Hub {
	return &Hub{
		cache:  cache,
		logger: log.WithField("module", "ws_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The UI is served from another origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Run consumes the price channel until the context ends. Without Redis the
// hub still accepts sockets; they just never receive broadcasts.
func (h *Hub) Run(ctx context.Context) {
	if !h.cache.Enabled() {
		h.logger.Info("Redis disabled, websocket broadcasts inactive")
		<-ctx.Done()
		return
	}

	sub := h.cache.Subscribe(ctx)
	defer sub.Close()
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.stopCh:
			h.closeAll()
			return
		case msg, ok := <-ch:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

// Stop terminates the broadcast loop and all client connections.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// ServeHTTP upgrades one connection and attaches it to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.WithField("clients", n).Debug("Websocket client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// ClientCount reports connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Buffer full: the client cannot keep up.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
}

// writeLoop pushes broadcasts and pings to one socket.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// readLoop drains client frames so pongs and closes are processed.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(maxMessageSize)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("Websocket read error")
			}
			return
		}
	}
}
