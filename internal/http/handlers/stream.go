package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamReadLimit  = 4096
)

// StreamHandler pushes a session snapshot over a websocket every time the
// session changes.
type StreamHandler struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// InboundMessage is a client frame; only "ping" is understood.
type InboundMessage struct {
	Type string `json:"type"`
}

type OutboundMessage struct {
	Type    string           `json:"type"`
	Session *SessionResponse `json:"session,omitempty"`
}

// NewStreamHandler accepts upgrades from allowedOrigins ("*" allows any).
func NewStreamHandler(allowedOrigins []string, logger *logging.Logger) *StreamHandler {
	if logger == nil {
		logger = logging.Default()
	}
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAny = true
			continue
		}
		if origin != "" {
			allow[origin] = struct{}{}
		}
	}
	return &StreamHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAny {
					return true
				}
				_, ok := allow[origin]
				return ok
			},
		},
	}
}

// HandleWebSocket streams session snapshots.
// GET /api/session/stream
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	m, ok := requireSession(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("session stream: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("session stream: connection opened", "session_id", m.ID())

	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(streamReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			var msg InboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
			if msg.Type == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		// Grab the change channel before the snapshot so no update is missed.
		changed := m.Changes()
		resp := newSessionResponse(m, m.Snapshot())
		if err := h.write(conn, OutboundMessage{Type: "session", Session: &resp}); err != nil {
			h.logger.Debug("session stream: write failed", "session_id", m.ID(), "error", err)
			return
		}

		if !h.waitForChange(conn, m.ID(), changed, m.Done(), pings, closed, ticker.C, r) {
			return
		}
	}
}

// waitForChange answers pings until the session changes. It reports false
// when the stream should end.
func (h *StreamHandler) waitForChange(conn *websocket.Conn, sessionID string, changed, done <-chan struct{}, pings, closed <-chan struct{}, tick <-chan time.Time, r *http.Request) bool {
	for {
		select {
		case <-changed:
			return true
		case <-pings:
			if err := h.write(conn, OutboundMessage{Type: "pong"}); err != nil {
				return false
			}
		case <-tick:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return false
			}
		case <-done:
			_ = h.write(conn, OutboundMessage{Type: "closed"})
			return false
		case <-closed:
			h.logger.Debug("session stream: connection closed", "session_id", sessionID)
			return false
		case <-r.Context().Done():
			return false
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, msg OutboundMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}
