package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signvision/internal/session"
)

const eventWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Subscriber publishes session snapshots.
type Subscriber interface {
	Subscribe() (<-chan session.Snapshot, func())
}

// EventsHandler pushes session snapshots to WebSocket clients as they
// change. Each client sees the most recent snapshot; intermediate ones may
// be skipped for slow readers.
type EventsHandler struct {
	source Subscriber
	log    *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(source Subscriber, log *slog.Logger) *EventsHandler {
	return &EventsHandler{source: source, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	snapshots, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	// Reading detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}
