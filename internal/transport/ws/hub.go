// Package ws is the realtime transport: it owns the websocket sessions,
// feeds connect/disconnect into the presence registry and exposes the
// per-connection send path the realtime channel delivers through.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/servicedeskhq/notify/internal/pkg/logger"
	"github.com/servicedeskhq/notify/internal/pkg/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

type session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks open websocket sessions. It implements port.SocketSender.
type Hub struct {
	registry *presence.Registry
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// NewHub builds a hub over the presence registry.
func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced by the gateway in front.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// ServeHTTP upgrades the request and runs the session until the peer
// disconnects. The user identity is taken from the user_id query parameter,
// resolved by the authenticating gateway upstream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.From(r.Context()).Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	s := &session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.registry.Register(userID, s.id)

	logger.From(r.Context()).Info("websocket connected",
		slog.String("user_id", userID),
		slog.String("connection_id", s.id),
	)

	go h.writePump(s)
	h.readPump(s)
}

// SendToConnection queues a frame for one session. A full send buffer fails
// fast: a stalled client should not block a dispatch fan-out. The read lock
// is held across the send so drop cannot close the channel underneath it;
// the select never blocks, so the lock is released immediately.
func (h *Hub) SendToConnection(_ context.Context, connectionID string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[connectionID]
	if !ok {
		return fmt.Errorf("connection %s not open", connectionID)
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", connectionID)
	}
}

// readPump consumes client frames until the connection dies. Clients only
// send pongs and occasional pings; payloads are discarded.
func (h *Hub) readPump(s *session) {
	defer h.drop(s)
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; ok {
		delete(h.sessions, s.id)
		close(s.send)
	}
	h.mu.Unlock()
	h.registry.Deregister(s.id)
	_ = s.conn.Close()
}

// SessionCount returns the number of open sessions on this instance.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown sends a close frame to every open session and drops them. New
// upgrades are refused afterwards.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.drop(s)
	}
}
