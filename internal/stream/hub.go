package stream

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks the currently connected streaming sessions and fans messages
// out to all of them. One failing session never aborts a broadcast; it is
// evicted and the fan-out continues.
type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	logger   *zap.Logger
}

// NewHub creates an empty session registry.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		logger:   logger.Named("stream"),
	}
}

// Register adds a session to the active set. Registering the same session
// twice is harmless.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("Session connected", zap.Int("sessions", count))
}

// Unregister removes a session if present; removing an absent session is a
// silent no-op.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, present := h.sessions[s]
	delete(h.sessions, s)
	count := len(h.sessions)
	h.mu.Unlock()

	if present {
		h.logger.Info("Session disconnected", zap.Int("sessions", count))
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast delivers v to every connected session. Iteration runs over a
// snapshot of the set so evictions during the fan-out are safe.
func (h *Hub) Broadcast(v interface{}) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		if err := s.Send(v); err != nil {
			h.logger.Warn("Dropping session after failed send", zap.Error(err))
			h.Unregister(s)
			_ = s.Close()
		}
	}
}
