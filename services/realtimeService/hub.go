package realtimeService

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is the frame exchanged on the realtime channel. The server
// publishes cashout_update; clients send weather_update to request an
// out-of-cycle recomputation when their weather source refreshed.
type Event struct {
	Event      string    `json:"event"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	UpdatedIDs []string  `json:"updated_ids,omitempty"`
}

const (
	EventCashoutUpdate = "cashout_update"
	EventWeatherUpdate = "weather_update"
)

// Hub fans events out to every connected websocket client.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	closed  bool

	onWeatherUpdate func()
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// OnWeatherUpdate registers the callback invoked when any client
// reports fresh weather data.
func (h *Hub) OnWeatherUpdate(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onWeatherUpdate = fn
}

// ServeWS upgrades the request and pumps inbound frames until the
// client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = true
	h.mu.Unlock()

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			return
		}
		if event.Event == EventWeatherUpdate {
			h.mu.Lock()
			fn := h.onWeatherUpdate
			h.mu.Unlock()
			if fn != nil {
				fn()
			}
		}
	}
}

// BroadcastCashoutUpdate publishes the ids refreshed by a polling pass.
// A client that cannot be written to is dropped.
func (h *Hub) BroadcastCashoutUpdate(updatedIDs []string, ts time.Time) {
	event := Event{Event: EventCashoutUpdate, Timestamp: ts, UpdatedIDs: updatedIDs}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Close tears the hub down and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
