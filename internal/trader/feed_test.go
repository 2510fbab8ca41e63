package trader

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"paper-trade-bot-go/internal/models"
)

// captureHub records broadcast messages for assertions.
type captureHub struct {
	mu       sync.Mutex
	messages []interface{}
}

func (h *captureHub) Broadcast(v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, v)
}

func (h *captureHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func (h *captureHub) last() interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return nil
	}
	return h.messages[len(h.messages)-1]
}

func setupFeed(t *testing.T, interval time.Duration) (*Feed, *captureHub) {
	service, _ := setupService(t)
	hub := &captureHub{}
	return NewFeed(service, hub, interval, zap.NewNop()), hub
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Fail(t, "condition not met within timeout")
}

func TestFeed_StartStopStates(t *testing.T) {
	feed, _ := setupFeed(t, 10*time.Millisecond)
	defer feed.Kill()

	assert.Equal(t, StateStopped, feed.State())
	assert.Equal(t, StateRunning, feed.Start())
	assert.Equal(t, StateRunning, feed.Start()) // idempotent
	assert.Equal(t, StateStopped, feed.Kill())
	assert.Equal(t, StateStopped, feed.Kill()) // kill from any state
}

func TestFeed_BroadcastsPriceTicks(t *testing.T) {
	feed, hub := setupFeed(t, 10*time.Millisecond)
	defer feed.Kill()

	feed.Start()
	waitFor(t, time.Second, func() bool { return hub.count() >= 2 })

	msg, ok := hub.last().(models.PricesMessage)
	assert.True(t, ok)
	assert.Equal(t, "prices", msg.Type)
	assert.NotEmpty(t, msg.Timestamp)
	assert.Contains(t, msg.Data, "BTC/USD")
	assert.Contains(t, msg.Data, "ETH/USD")
	assert.Contains(t, msg.Data, "SOL/USD")
	for _, price := range msg.Data {
		assert.Greater(t, price, 0.0)
	}
}

func TestFeed_PauseSuppressesTicks(t *testing.T) {
	feed, hub := setupFeed(t, 10*time.Millisecond)
	defer feed.Kill()

	feed.Start()
	waitFor(t, time.Second, func() bool { return hub.count() >= 1 })

	assert.Equal(t, StatePaused, feed.Pause())
	// Let any tick already past the pause check land before sampling.
	time.Sleep(30 * time.Millisecond)
	paused := hub.count()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, paused, hub.count())

	// Ticks resume on un-pause without a restart.
	assert.Equal(t, StateRunning, feed.Resume())
	waitFor(t, time.Second, func() bool { return hub.count() > paused })
}

func TestFeed_PauseOnlyValidFromRunning(t *testing.T) {
	feed, _ := setupFeed(t, 10*time.Millisecond)

	assert.Equal(t, StateStopped, feed.Pause())
	assert.Equal(t, StateStopped, feed.Resume())
}

func TestFeed_StartResumesWhenPaused(t *testing.T) {
	feed, hub := setupFeed(t, 10*time.Millisecond)
	defer feed.Kill()

	feed.Start()
	feed.Pause()
	time.Sleep(30 * time.Millisecond)
	paused := hub.count()

	assert.Equal(t, StateRunning, feed.Start())
	waitFor(t, time.Second, func() bool { return hub.count() > paused })
}

func TestFeed_KillBroadcastsStoppedStatus(t *testing.T) {
	feed, hub := setupFeed(t, 10*time.Millisecond)

	feed.Start()
	done := feed.done
	feed.Kill()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed loop did not exit after kill")
	}

	msg, ok := hub.last().(models.StatusMessage)
	assert.True(t, ok)
	assert.Equal(t, "status", msg.Type)
	assert.Equal(t, "stopped", msg.Status)

	// No further ticks after the terminal notice.
	final := hub.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, final, hub.count())
}

func TestFeed_KillInterruptsSleepImmediately(t *testing.T) {
	// A long interval: the loop is asleep between ticks and kill must not
	// wait for the next wake-up.
	feed, _ := setupFeed(t, time.Hour)

	feed.Start()
	done := feed.done

	start := time.Now()
	feed.Kill()

	select {
	case <-done:
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("kill did not interrupt the sleeping loop")
	}
}
