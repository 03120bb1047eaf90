// Package ws implements the realtime alert bus: a hub-and-spoke fanout of
// alert events to connected clinician sessions, keyed by hospital routing
// code. Delivery is fire-and-forget; a session that is offline at publish
// time never receives the missed event and must reconcile from the persisted
// alert feed on reconnect.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/auth"
)

// Event is a single realtime notification pushed to subscribers.
type Event struct {
	Type         string          `json:"type"`
	HospitalCode string          `json:"hospital_code"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Publisher is the side of the bus that producing operations depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Conn abstracts a websocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// session is one connected clinician socket, bound to exactly one hospital
// channel for its lifetime.
type session struct {
	id           string
	hospitalCode string
	send         chan []byte
}

// Hub tracks sessions per hospital channel. All operations are safe for
// concurrent use.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*session]struct{}
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*session]struct{})}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[s.hospitalCode] == nil {
		h.channels[s.hospitalCode] = make(map[*session]struct{})
	}
	h.channels[s.hospitalCode][s] = struct{}{}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.channels[s.hospitalCode]
	if !ok {
		return
	}
	if _, present := subscribers[s]; !present {
		return
	}
	delete(subscribers, s)
	if len(subscribers) == 0 {
		delete(h.channels, s.hospitalCode)
	}
	close(s.send)
}

// Publish delivers the event to every current subscriber of its hospital
// channel. A subscriber whose buffer is full is skipped rather than letting
// it block the publishing request.
func (h *Hub) Publish(_ context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.channels[event.HospitalCode] {
		select {
		case s.send <- data:
		default:
			// Slow consumer; drop instead of blocking the publisher.
		}
	}
}

// SubscriberCount returns the number of sessions on a hospital channel.
func (h *Hub) SubscriberCount(hospitalCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[hospitalCode])
}

// ---------------------------------------------------------------------------
// Handler upgrades authenticated sessions onto the hub.
// ---------------------------------------------------------------------------

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the CORS layer.
	},
}

// Handler upgrades authenticated clinician connections and joins them to
// their home hospital's channel.
type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/alerts", h.HandleConnect)
}

// HandleConnect upgrades the HTTP connection and subscribes the session to
// the caller's home hospital channel. The channel is taken from the verified
// identity, never from the request, so a session cannot listen on another
// hospital's feed.
func (h *Handler) HandleConnect(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok || !id.IsClinical() || id.HospitalCode == "" {
		return echo.NewHTTPError(http.StatusForbidden, "clinician session required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s := &session{
		id:           uuid.New().String(),
		hospitalCode: id.HospitalCode,
		send:         make(chan []byte, 256),
	}
	h.hub.register(s)
	h.logger.Debug().
		Str("session_id", s.id).
		Str("hospital_code", s.hospitalCode).
		Msg("alert session connected")

	go h.writePump(s, conn)
	go h.readPump(s, conn)

	return nil
}

// readPump drains inbound frames until the peer disconnects. Inbound payloads
// are ignored; the alert feed is push-only.
func (h *Handler) readPump(s *session, conn Conn) {
	defer func() {
		h.hub.unregister(s)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(s *session, conn Conn) {
	defer conn.Close()

	for message := range s.send {
		if err := conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
			return
		}
	}
}
