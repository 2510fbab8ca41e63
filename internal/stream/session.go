package stream

import (
	"sync"

	"github.com/gorilla/websocket"
)

// conn is the part of *websocket.Conn a session needs. Narrowed so tests can
// substitute a failing connection.
type conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Session is one connected streaming subscriber. Writes are serialized by a
// mutex because the feed loop and control handlers may push concurrently.
type Session struct {
	mu   sync.Mutex
	conn conn
}

// NewSession wraps an upgraded websocket connection.
func NewSession(c *websocket.Conn) *Session {
	return &Session{conn: c}
}

// Send marshals v as JSON and writes it to the connection.
func (s *Session) Send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// ReadLoop consumes inbound frames until the connection errors. Clients do
// not speak to the server; reading only detects disconnection. onClose fires
// exactly once, after the loop exits.
func (s *Session) ReadLoop(onClose func()) {
	defer onClose()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
