// Package ws exposes the browser-facing WebSocket endpoint. Clients
// drive a session with JSON control frames and stream raw PCM16 audio
// as binary frames; the server pushes interim and final transcript
// events back on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mina/internal/models"
	"mina/internal/observability/logging"
	"mina/internal/service/audio"
	"mina/internal/service/throttle"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the web app origin once it is deployed
		// behind a stable hostname.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// SessionFactory builds the per-session pipeline. The transport owns
// the connection; everything downstream of the emitter is the
// factory's business.
type SessionFactory func(sessionID string, emitter audio.Emitter) (*audio.Handler, error)

// controlMessage is a JSON text frame from the client.
type controlMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

// serverMessage is a JSON text frame to the client for session
// lifecycle acks and errors. Transcript events are written as their
// own payloads and carry their own event_type.
type serverMessage struct {
	Type      string             `json:"type"`
	SessionID string             `json:"sessionId,omitempty"`
	Error     string             `json:"error,omitempty"`
	Metrics   *throttle.Snapshot `json:"metrics,omitempty"`
}

// Server upgrades HTTP requests and runs one recording session per
// connection at a time.
type Server struct {
	factory   SessionFactory
	throttler *throttle.Throttler
	logger    zerolog.Logger
}

// NewServer creates the WebSocket server.
func NewServer(factory SessionFactory, throttler *throttle.Throttler) *Server {
	return &Server{
		factory:   factory,
		throttler: throttler,
		logger:    logging.WithComponent("ws"),
	}
}

// connWriter serializes all writes to one connection. gorilla/websocket
// allows at most one concurrent writer.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// connEmitter delivers transcript events to the browser.
type connEmitter struct {
	w *connWriter
}

func (e *connEmitter) EmitInterim(ev models.TranscriptInterim) error {
	return e.w.writeJSON(ev)
}

func (e *connEmitter) EmitFinal(ev models.TranscriptFinal) error {
	return e.w.writeJSON(ev)
}

// ServeHTTP upgrades the connection and runs the session loop until the
// client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	writer := &connWriter{conn: conn}
	var handler *audio.Handler

	// A vanished client gets no explicit final; only a clean stop does.
	defer func() {
		if handler != nil {
			handler.Close()
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var done bool
			handler, done = s.handleControl(r.Context(), writer, handler, data)
			if done {
				return
			}

		case websocket.BinaryMessage:
			if handler == nil {
				continue // audio before start is dropped
			}
			if err := handler.SendAudio(r.Context(), data); err != nil {
				s.logger.Error().Err(err).Str("sessionId", handler.SessionID()).Msg("Failed to process audio frame")
			}
		}
	}
}

// handleControl processes one control frame and returns the (possibly
// replaced) handler plus whether the connection should close.
func (s *Server) handleControl(ctx context.Context, writer *connWriter, handler *audio.Handler, data []byte) (*audio.Handler, bool) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse control message")
		writer.writeJSON(serverMessage{Type: "error", Error: "malformed control message"})
		return handler, false
	}

	switch msg.Type {
	case "start":
		if handler != nil {
			writer.writeJSON(serverMessage{Type: "error", SessionID: handler.SessionID(), Error: "session already active"})
			return handler, false
		}

		sessionID := msg.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		h, err := s.startSession(ctx, sessionID, writer)
		if err != nil {
			s.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to start session")
			writer.writeJSON(serverMessage{Type: "error", SessionID: sessionID, Error: "failed to start session"})
			return nil, false
		}
		writer.writeJSON(serverMessage{Type: "session.started", SessionID: sessionID})
		return h, false

	case "stop":
		if handler == nil {
			writer.writeJSON(serverMessage{Type: "error", Error: "no active session"})
			return nil, false
		}

		sessionID := handler.SessionID()

		// Snapshot before Stop; teardown removes the session state.
		var metricsOut *throttle.Snapshot
		if snap, ok := s.throttler.Snapshot(sessionID); ok {
			metricsOut = &snap
		}

		handler.Stop()
		writer.writeJSON(serverMessage{Type: "session.stopped", SessionID: sessionID, Metrics: metricsOut})
		return nil, false

	default:
		s.logger.Warn().Str("type", msg.Type).Msg("Unknown control message type")
		writer.writeJSON(serverMessage{Type: "error", Error: "unknown control message type"})
		return handler, false
	}
}

func (s *Server) startSession(ctx context.Context, sessionID string, writer *connWriter) (*audio.Handler, error) {
	if s.factory == nil {
		return nil, errors.New("no session factory configured")
	}

	h, err := s.factory(sessionID, &connEmitter{w: writer})
	if err != nil {
		return nil, err
	}
	if err := h.Start(ctx); err != nil {
		h.Close()
		return nil, err
	}

	s.logger.Info().Str("sessionId", sessionID).Msg("WebSocket session started")
	return h, nil
}
