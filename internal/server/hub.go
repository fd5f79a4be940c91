package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ScanMessage is broadcast to websocket clients after every scan.
type ScanMessage struct {
	Type    string           `json:"type"`
	Session string           `json:"session"`
	Source  string           `json:"source"`
	Time    time.Time        `json:"time"`
	Objects []codec.Document `json:"objects"`
}

// Hub fans scan results out to connected websocket clients. Each client has
// its own send queue; a client that falls behind is disconnected.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
	logger  *slog.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[*wsClient]struct{}), logger: logger}
}

// register adds conn and starts its writer. It returns nil once the hub is closed.
func (h *Hub) register(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	websocketConnections.Inc()
	h.logger.Info("websocket client connected", "remote_addr", conn.RemoteAddr().String(), "clients", n)
	go c.writePump()
	return c
}

// unregister removes c and stops its writer.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		websocketConnections.Dec()
		h.logger.Info("websocket client disconnected", "clients", n)
	}
}

// Broadcast queues message for every client and returns how many accepted it.
func (h *Hub) Broadcast(message []byte) int {
	var slow []*wsClient
	sent := 0

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- message:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	websocketMessagesTotal.WithLabelValues("sent").Add(float64(sent))
	for _, c := range slow {
		websocketMessagesTotal.WithLabelValues("dropped").Inc()
		h.unregister(c)
	}
	return sent
}

// BroadcastScan sends the descriptors of one source to every client.
func (h *Hub) BroadcastScan(session, source string, objs []metadata.Object) {
	if h.ClientCount() == 0 {
		return
	}
	docs, err := codec.EncodeAll(objs)
	if err != nil {
		h.logger.Warn("encode websocket message", "error", err)
		return
	}
	data, err := json.Marshal(ScanMessage{Type: "descriptors", Session: session, Source: source, Time: time.Now().UTC(), Objects: docs})
	if err != nil {
		h.logger.Warn("encode websocket message", "error", err)
		return
	}
	h.Broadcast(data)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// writePump is the only writer on the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// descriptorsWebSocketHandler streams scan results to the client. Incoming
// messages are ignored; reading only serves to detect disconnects.
func (s *Server) descriptorsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	c := s.hub.register(conn)
	if c == nil {
		_ = conn.Close()
		return
	}
	defer s.hub.unregister(c)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read", "error", err)
			}
			return
		}
	}
}
