package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers are served from other local origins
	},
}

const (
	viewerQueue = 16
	writeWait   = 2 * time.Second
)

// poseViewer is one websocket viewer. Only its writer goroutine writes to
// conn.
type poseViewer struct {
	conn *websocket.Conn
	send chan []byte
}

// poseHub fans the latest aligned pose out to websocket viewers and serves
// it over plain HTTP.
type poseHub struct {
	mu      sync.Mutex
	clients map[*poseViewer]struct{}
	last    []byte
	logger  zerolog.Logger
}

func newPoseHub(logger zerolog.Logger) *poseHub {
	return &poseHub{
		clients: make(map[*poseViewer]struct{}),
		logger:  logger,
	}
}

// publish stores data as the latest pose and queues it for every viewer.
// It never blocks: a viewer whose queue is full misses the frame.
func (h *poseHub) publish(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for v := range h.clients {
		select {
		case v.send <- data:
		default:
			h.logger.Debug().Str("remote", v.conn.RemoteAddr().String()).Msg("pose viewer lagging, frame dropped")
		}
	}
}

func (h *poseHub) viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writeLoop sends queued poses until the queue is closed or a write fails.
// A failed or timed-out write closes the connection, which ends the read
// loop in handleWS.
func (h *poseHub) writeLoop(v *poseViewer) {
	for data := range v.send {
		err := v.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = v.conn.WriteMessage(websocket.TextMessage, data)
		}
		if err != nil {
			h.logger.Debug().Err(err).Str("remote", v.conn.RemoteAddr().String()).Msg("dropping pose viewer")
			v.conn.Close()
			return
		}
	}
}

// handleWS streams aligned poses to one viewer until it disconnects.
func (h *poseHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	v := &poseViewer{conn: conn, send: make(chan []byte, viewerQueue)}

	h.mu.Lock()
	if h.last != nil {
		v.send <- h.last
	}
	h.clients[v] = struct{}{}
	h.mu.Unlock()
	go h.writeLoop(v)
	h.logger.Info().Str("remote", r.RemoteAddr).Msg("pose viewer connected")

	// Viewers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, v)
	close(v.send)
	h.mu.Unlock()
	conn.Close()
	h.logger.Info().Str("remote", r.RemoteAddr).Msg("pose viewer disconnected")
}

// handleLatest returns the latest aligned pose as JSON.
func (h *poseHub) handleLatest(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	data := h.last
	h.mu.Unlock()

	if data == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		h.logger.Debug().Err(err).Msg("pose response write failed")
	}
}

func (h *poseHub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/pose", h.handleWS)
	mux.HandleFunc("/api/pose", h.handleLatest)
	return mux
}
