package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tick-replay-lab/internal/observability"
	"tick-replay-lab/internal/session"
)

// Hub-only message types, alongside the session event types.
const (
	MessageSnapshot = "snapshot"
	MessageAck      = "ack"
	MessageError    = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Executor is the part of the session a websocket client drives.
type Executor interface {
	Execute(cmd session.Command) error
	Snapshot() session.Snapshot
}

// Hub fans session events out to websocket clients. It implements
// session.Listener: OnEvent only enqueues, so it is safe under the session lock.
// A client whose send buffer is full is dropped.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	log      *zap.Logger
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type ackMessage struct {
	Command string `json:"cmd"`
	Error   string `json:"error,omitempty"`
}

// NewHub creates a hub with no clients.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// the chart client is served from another local port
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// OnEvent implements session.Listener.
func (h *Hub) OnEvent(e session.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error("encode event", zap.String("type", string(e.Type)), zap.Error(err))
		return
	}
	h.broadcast(data)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and runs the client until it disconnects.
// The client first receives a full snapshot, then the live event stream.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, exec Executor) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.log.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	// registered before the snapshot is taken, so no event is lost between them
	h.sendJSON(c, MessageSnapshot, exec.Snapshot())

	go h.writePump(c)
	h.readPump(c, exec)
	h.log.Info("websocket client disconnected", zap.String("remote", r.RemoteAddr))
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	observability.UpdateWSClients(0)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	observability.UpdateWSClients(len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	observability.UpdateWSClients(len(h.clients))
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.enqueueLocked(c, data)
	}
}

func (h *Hub) sendJSON(c *client, msgType string, payload any) {
	data, err := json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{msgType, payload})
	if err != nil {
		h.log.Error("encode message", zap.String("type", msgType), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.enqueueLocked(c, data)
	}
}

// enqueueLocked must be called with h.mu held.
func (h *Hub) enqueueLocked(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		delete(h.clients, c)
		close(c.send)
		observability.RecordWSDropped()
		observability.UpdateWSClients(len(h.clients))
		h.log.Warn("websocket client dropped: send buffer full", zap.String("remote", c.conn.RemoteAddr().String()))
	}
}

func (h *Hub) readPump(c *client, exec Executor) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		cmd, err := DecodeCommand(msg)
		if err != nil {
			h.sendJSON(c, MessageError, ackMessage{Error: err.Error()})
			continue
		}
		ack := ackMessage{Command: cmd.Name}
		if err := exec.Execute(cmd); err != nil {
			ack.Error = err.Error()
		}
		h.sendJSON(c, MessageAck, ack)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
