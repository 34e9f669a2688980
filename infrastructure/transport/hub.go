// Package transport carries client traffic over WebSocket connections
// and implements the engine's outbound delivery contract.
package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hypewave/cheermeter/internal/application"
	"github.com/hypewave/cheermeter/internal/logging"
	"github.com/hypewave/cheermeter/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20 // raw video frames arrive base64-encoded

	clientSendBuffer = 64
)

// envelope is the wire framing for both directions: an event name plus
// its payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope mirrors envelope for outbound messages, where the payload
// is still a typed struct.
type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// client is one connected WebSocket peer with its outbound queue.
// send is never closed: a publisher may hold a reference to the client
// after it left the room tables, so teardown is signaled through done
// instead, and late frames land in a channel nobody drains.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Submitter accepts inbound messages for processing. Satisfied by
// *application.Dispatcher.
type Submitter interface {
	Submit(msg application.InboundMessage) bool
}

// Hub owns all WebSocket connections and the scope subscription table.
// It implements ports.Broadcaster. Unlike the registry, the hub is
// touched from many goroutines (one reader and one writer per
// connection plus the dispatcher publishing), so its maps are
// mutex-protected.
type Hub struct {
	logger     logging.LoggerAdapter
	dispatcher Submitter
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[ports.Scope]map[string]*client
}

var _ ports.Broadcaster = (*Hub)(nil)

// NewHub creates a hub wired to the given dispatcher.
func NewHub(logger logging.LoggerAdapter, dispatcher Submitter) *Hub {
	return &Hub{
		logger:     logger,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients connect from arbitrary venue networks.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		rooms:   make(map[ports.Scope]map[string]*client),
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection, assigns
// the client its identity, and starts the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", err, zap.String("remote", r.RemoteAddr))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("client connected",
		zap.String("client_id", c.id),
		zap.String("remote", r.RemoteAddr),
	)

	go h.writePump(c)
	go h.readPump(c)

	if err := h.Reply(c.id, application.EventConnected, application.ConnectedEvent{ClientID: c.id}); err != nil {
		h.logger.Error("sending greeting failed", err, zap.String("client_id", c.id))
	}
}

// readPump decodes inbound envelopes and hands them to the dispatcher.
// It owns the connection's read side and triggers teardown on exit.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("client read failed",
					zap.String("client_id", c.id),
					zap.Error(err),
				)
			}
			return
		}

		var env envelope
		if err := sonic.Unmarshal(data, &env); err != nil || env.Event == "" {
			h.logger.Warn("malformed client envelope", zap.String("client_id", c.id))
			continue
		}

		h.dispatcher.Submit(application.InboundMessage{
			ClientID: c.id,
			Event:    env.Event,
			Payload:  env.Data,
		})
	}
}

// writePump drains the client's send queue onto the connection and keeps
// the connection alive with pings. It owns the connection's write side.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop removes a client from the hub and every scope it joined. The
// send channel stays open: a publisher that snapshotted this client
// before the teardown may still enqueue, which must stay harmless.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.done)
	}
	for scope, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, scope)
		}
	}
	h.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
	}
	h.logger.Info("client disconnected", zap.String("client_id", c.id))
}

// Subscribe implements ports.Broadcaster.
func (h *Hub) Subscribe(clientID string, scope ports.Scope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	members, ok := h.rooms[scope]
	if !ok {
		members = make(map[string]*client)
		h.rooms[scope] = members
	}
	members[c.id] = c
}

// Publish implements ports.Broadcaster by fanning an event out to every
// subscriber of the scope.
func (h *Hub) Publish(scope ports.Scope, event string, payload any) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	members := h.rooms[scope]
	targets := make([]*client, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.enqueue(c, event, data)
	}
	return nil
}

// Reply implements ports.Broadcaster by delivering an event to a single
// client.
func (h *Hub) Reply(clientID string, event string, payload any) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("client %s is not connected", clientID)
	}

	h.enqueue(c, event, data)
	return nil
}

// enqueue queues an encoded frame for a client without blocking. A
// client that cannot keep up loses frames rather than stalling the
// engine's broadcast path, and a client already torn down absorbs the
// frame silently.
func (h *Hub) enqueue(c *client, event string, data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		h.logger.Warn("client send queue full, dropping frame",
			zap.String("client_id", c.id),
			zap.String("event", event),
		)
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := sonic.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", event, err)
	}
	return data, nil
}
