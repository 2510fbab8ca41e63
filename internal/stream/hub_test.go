package stream

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeConn is an in-memory connection for hub tests.
type fakeConn struct {
	mu       sync.Mutex
	sent     []interface{}
	failNext bool
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newFakeSession() (*Session, *fakeConn) {
	c := &fakeConn{}
	return &Session{conn: c}, c
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	session, _ := newFakeSession()

	hub.Register(session)
	hub.Register(session)

	assert.Equal(t, 1, hub.Count())
}

func TestHub_UnregisterAbsentIsNoOp(t *testing.T) {
	hub := NewHub(zap.NewNop())
	session, _ := newFakeSession()
	other, _ := newFakeSession()
	hub.Register(session)

	// Removing a session that was never registered, twice, changes nothing.
	hub.Unregister(other)
	hub.Unregister(other)

	assert.Equal(t, 1, hub.Count())
}

func TestHub_BroadcastDeliversToAll(t *testing.T) {
	hub := NewHub(zap.NewNop())
	s1, c1 := newFakeSession()
	s2, c2 := newFakeSession()
	hub.Register(s1)
	hub.Register(s2)

	hub.Broadcast(map[string]string{"type": "status"})

	assert.Equal(t, 1, c1.sentCount())
	assert.Equal(t, 1, c2.sentCount())
}

func TestHub_BroadcastEvictsFailingSession(t *testing.T) {
	hub := NewHub(zap.NewNop())
	good1, goodConn1 := newFakeSession()
	bad, badConn := newFakeSession()
	good2, goodConn2 := newFakeSession()
	badConn.failNext = true

	hub.Register(good1)
	hub.Register(bad)
	hub.Register(good2)

	hub.Broadcast("tick")

	// The failing session is gone and closed; the others still got the message.
	assert.Equal(t, 2, hub.Count())
	assert.True(t, badConn.closed)
	assert.Equal(t, 1, goodConn1.sentCount())
	assert.Equal(t, 1, goodConn2.sentCount())

	// The survivors keep receiving on the next broadcast.
	hub.Broadcast("tick")
	assert.Equal(t, 2, goodConn1.sentCount())
	assert.Equal(t, 2, goodConn2.sentCount())
}

func TestSession_ReadLoopFiresOnCloseOnce(t *testing.T) {
	session, _ := newFakeSession()

	calls := 0
	session.ReadLoop(func() { calls++ })

	assert.Equal(t, 1, calls)
}
