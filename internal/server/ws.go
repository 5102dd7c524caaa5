package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Furulango/handseg/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool
	},
}

// LandmarksHandler pushes per-frame hand summaries over WebSocket.
type LandmarksHandler struct {
	app     *app.App
	log     *logrus.Logger
	clients map[*websocket.Conn]struct{}
	mu      sync.Mutex
}

// NewLandmarksHandler creates a new LandmarksHandler for the preview of a.
func NewLandmarksHandler(a *app.App, log *logrus.Logger) *LandmarksHandler {
	return &LandmarksHandler{
		app:     a,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *LandmarksHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and forwards preview summaries to it.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	frames, cancel := h.app.Subscribe()
	defer cancel()

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// The read loop only detects the client going away.
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
		case f := <-frames:
			if f.Hands == nil {
				f.Hands = []app.HandSummary{}
			}
			if err := conn.WriteJSON(f); err != nil {
				h.log.WithError(err).Debug("WebSocket write failed")
				return
			}
		}
	}
}
