package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsBroadcastBuffer = 64
	wsChannelBuffer   = 10
	wsWriteDeadline   = 10 * time.Second
	wsReadDeadline    = 60 * time.Second
	wsPingInterval    = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// No Origin header = non-browser client (curl, monitoring probes)
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  wsReadBufferSize,
	WriteBufferSize: wsWriteBufferSize,
}

// client wraps a connection with a write mutex. gorilla/websocket allows
// at most one concurrent writer per connection, and both the hub's
// broadcast loop and the per-connection ping keepalive write to it.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// write sends one message, serializing against other writers on the
// same connection.
func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	return c.conn.WriteMessage(messageType, data)
}

// Hub pushes refreshed dashboard views to connected WebSocket clients.
type Hub struct {
	log zerolog.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a dashboard WebSocket hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*client]bool),
		register:   make(chan *client, wsChannelBuffer),
		unregister: make(chan *client, wsChannelBuffer),
		broadcast:  make(chan []byte, wsBroadcastBuffer),
	}
}

// Run starts the hub's main loop. Blocks until ctx is cancelled, then
// closes all client connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for cl := range h.clients {
				cl.conn.Close()
			}
			h.mu.Unlock()
			return
		case cl := <-h.register:
			h.mu.Lock()
			h.clients[cl] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", count).Msg("dashboard client connected")
		case cl := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[cl]; ok {
				delete(h.clients, cl)
				cl.conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("clients", count).Msg("dashboard client disconnected")
		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*client
			for cl := range h.clients {
				if err := cl.write(websocket.TextMessage, message); err != nil {
					failed = append(failed, cl)
				}
			}
			h.mu.RUnlock()

			// Unregister failed connections without holding the lock.
			for _, cl := range failed {
				h.unregister <- cl
			}
		}
	}
}

// BroadcastView sends a dashboard view to all connected clients. A full
// broadcast buffer drops the update rather than blocking the caller.
func (h *Hub) BroadcastView(view *View) {
	message, err := json.Marshal(map[string]any{
		"type":      "dashboard_update",
		"timestamp": time.Now().Unix(),
		"dashboard": view,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode dashboard update")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.log.Warn().Msg("broadcast channel full, dropping dashboard update")
	}
}

// HasClients reports whether anyone is listening. Callers can skip
// recomputing views when nobody is.
func (h *Hub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// HandleWebSocket upgrades the connection and keeps it alive with pings
// until the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{conn: conn}
	h.register <- cl

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cl.write(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	defer func() {
		cancel()
		h.unregister <- cl
	}()

	conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Msg("websocket read error")
			}
			break
		}
	}
}
