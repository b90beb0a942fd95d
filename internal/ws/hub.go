// README: WebSocket hub; one connection per driver, offer push and response read-back.
package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hailer/internal/types"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var ErrNotConnected = errors.New("driver not connected")

// driverMessage is what a driver app sends upstream.
type driverMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Response  string `json:"response,omitempty"`
}

// Hub tracks one live connection per driver. A reconnect replaces the
// previous connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[types.ID]*conn

	// onResponse receives offer answers read off driver sockets.
	onResponse func(driverID, requestID types.ID, accepted bool)
	// onDisconnect fires when a driver's socket goes away.
	onDisconnect func(driverID types.ID)
}

func NewHub() *Hub {
	return &Hub{conns: make(map[types.ID]*conn)}
}

func (h *Hub) OnResponse(fn func(driverID, requestID types.ID, accepted bool)) {
	h.onResponse = fn
}

func (h *Hub) OnDisconnect(fn func(driverID types.ID)) {
	h.onDisconnect = fn
}

type conn struct {
	driverID types.ID
	ws       *websocket.Conn
	send     chan []byte
	hub      *Hub
}

// Serve upgrades an HTTP request into the driver's socket and pumps it
// until the connection dies.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, driverID types.ID) error {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &conn{
		driverID: driverID,
		ws:       wsConn,
		send:     make(chan []byte, sendBuffer),
		hub:      h,
	}

	h.mu.Lock()
	if prev, ok := h.conns[driverID]; ok {
		close(prev.send)
	}
	h.conns[driverID] = c
	h.mu.Unlock()

	log.Printf("ws: driver %s connected", driverID)
	go c.writePump()
	go c.readPump()
	return nil
}

// Send queues a payload for one driver. ErrNotConnected when the driver
// has no live socket; a full send buffer counts as a dead connection.
// The read lock stays held across the send: Serve closes a replaced
// connection's channel under the write lock, so the two can never
// interleave into a send on a closed channel.
func (h *Hub) Send(driverID types.ID, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[driverID]
	if !ok {
		return ErrNotConnected
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrNotConnected
	}
}

func (h *Hub) SendJSON(driverID types.ID, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Send(driverID, payload)
}

func (h *Hub) IsConnected(driverID types.ID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[driverID]
	return ok
}

func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	current, ok := h.conns[c.driverID]
	if ok && current == c {
		delete(h.conns, c.driverID)
	}
	h.mu.Unlock()

	if ok && current == c && h.onDisconnect != nil {
		h.onDisconnect(c.driverID)
	}
}

func (c *conn) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: driver %s read: %v", c.driverID, err)
			}
			return
		}

		var msg driverMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("ws: driver %s sent unparseable message: %v", c.driverID, err)
			continue
		}

		switch msg.Type {
		case "offer_response":
			if c.hub.onResponse != nil {
				c.hub.onResponse(c.driverID, types.ID(msg.RequestID), msg.Response == "accepted")
			}
		case "ping":
			_ = c.hub.SendJSON(c.driverID, map[string]string{"type": "pong"})
		}
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
