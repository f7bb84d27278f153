// Package realtime pushes table updates to connected WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/metrics"
	"github.com/iliyamo/club-table-reservation/internal/queue"
)

// EventTableUpdated is the envelope name for table notifications.
const EventTableUpdated = "table_updated"

const (
	sendBuffer = 32
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Envelope is the frame written to clients.
type Envelope struct {
	Event string             `json:"event"`
	Data  queue.TableUpdated `json:"data"`
}

type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *session) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub tracks the sessions of one instance and relays bus messages to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	upgrader websocket.Upgrader
	logger   pslog.Logger
	metrics  *metrics.Metrics

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewHub returns an empty hub.  m may be nil.
func NewHub(logger pslog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Hub{
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:         logger,
		metrics:        m,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     10 * time.Second,
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeWS upgrades the request and keeps the session registered until the
// client disconnects.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}
	s := &session{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(s)
	go h.writeLoop(s)
	h.readLoop(s)
	return nil
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.metrics.SessionOpened()
	h.logger.Debug("ws.session.opened", "session", s.id)
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()
	if !ok {
		return
	}
	s.close()
	h.metrics.SessionClosed()
	h.logger.Debug("ws.session.closed", "session", s.id)
}

// readLoop drains client frames so control messages are processed.
func (h *Hub) readLoop(s *session) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
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

func (h *Hub) writeLoop(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// Broadcast sends msg to every session.  A session whose buffer is full is
// dropped instead of stalling the others.
func (h *Hub) Broadcast(msg queue.TableUpdated) {
	frame, err := json.Marshal(Envelope{Event: EventTableUpdated, Data: msg})
	if err != nil {
		h.logger.Error("ws.encode.failed", "error", err)
		return
	}
	var slow []*session
	h.mu.RLock()
	for _, s := range h.sessions {
		select {
		case s.send <- frame:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()
	for _, s := range slow {
		h.logger.Warn("ws.session.slow", "session", s.id)
		h.remove(s)
	}
}

// Run subscribes to bus and broadcasts every message until ctx is done.
// A failed or ended subscription is retried with exponential backoff.
func (h *Hub) Run(ctx context.Context, bus queue.Bus) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.initialBackoff
	eb.MaxInterval = h.maxBackoff
	for {
		started := time.Now()
		err := h.consume(ctx, bus)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > h.maxBackoff {
			eb.Reset()
		}
		wait := eb.NextBackOff()
		h.logger.Warn("ws.subscription.ended", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (h *Hub) consume(ctx context.Context, bus queue.Bus) error {
	sub, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()
	h.logger.Info("ws.subscription.started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Messages():
			if !ok {
				return queue.ErrClosed
			}
			h.metrics.BusReceived()
			h.Broadcast(msg)
		}
	}
}

// Shutdown closes every session.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	all := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.RUnlock()
	for _, s := range all {
		h.remove(s)
	}
}
