// Package outbound implements the WebSocket connection that accepts
// outbound JSON events for a presentation server, which otherwise stays
// out of scope here. The core only needs an EventSink to publish
// SafetyViolation warnings; this package gives that interface a concrete
// nhooyr.io/websocket-backed implementation, the real ecosystem WebSocket
// client already pulled in transitively by go.viam.com/rdk's dependency
// tree.
package outbound

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"nhooyr.io/websocket"
)

// Event is one outbound JSON event. Kind distinguishes the event types the
// core emits; Fields carries event-specific data.
type Event struct {
	Kind      string                 `json:"kind"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventSink accepts outbound JSON events. Implementations must not block
// the caller for long — the watchdog Monitor calls this from a
// latency-sensitive path.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// WebSocketSink publishes events as JSON text frames over a persistent
// WebSocket connection, reconnecting lazily on the next Publish call after
// a failure.
type WebSocketSink struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSink returns a sink that will dial url on first use.
func NewWebSocketSink(url string) *WebSocketSink {
	return &WebSocketSink{url: url}
}

// Publish serializes event as JSON and writes it as a single text message.
// A stale or missing connection is (re)dialed transparently.
func (s *WebSocketSink) Publish(ctx context.Context, event Event) error {
	conn, err := s.ensureConn(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to connect outbound event sink")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal outbound event")
	}

	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		return errors.Wrap(err, "failed to write outbound event")
	}
	return nil
}

func (s *WebSocketSink) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

// Close shuts down the underlying connection, if any.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(websocket.StatusNormalClosure, "shutting down")
	s.conn = nil
	return err
}

// NopSink discards every event; used where no presentation server is
// configured but the core still wants an EventSink to call.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }
