package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"alerttrack/internal/bootstrap/logging"
	"alerttrack/internal/domain/alert"
	"alerttrack/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// updateFrame is the wire shape pushed to observers on every successful
// correlation.
type updateFrame struct {
	Type string      `json:"type"`
	Data alert.Event `json:"data"`
}

// Hub fans event snapshots out to connected websocket observers.
// Best-effort: a slow or gone client is dropped silently, no delivery
// guarantee, no ordering across subscribers.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]struct{}
	upgrader   websocket.Upgrader
}

var _ ports.UpdatePublisher = (*Hub)(nil)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			// The API carries no credentials; observers may connect from
			// any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set. It exits when ctx is done, closing every
// remaining connection.
func (h *Hub) Run(ctx context.Context) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "ws.hub"))
	logging.Info(logCtx, "websocket hub started")

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			logging.Info(logCtx, "websocket hub stopped")
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
		case frame := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					// Client cannot keep up; drop it from the fanout set.
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Publish hands one event snapshot to every connected observer.
// Fire-and-forget: if the hub's queue is full the frame is dropped.
func (h *Hub) Publish(event alert.Event) {
	frame, err := json.Marshal(updateFrame{Type: "incident_update", Data: event})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- frame:
	default:
	}
}

// HandleWS upgrades an HTTP request into an observer connection.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(r.Context(), "websocket upgrade failed", slog.String("err", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// readPump discards inbound frames; reading is only needed to notice a
// closed connection.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
