package trader

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"paper-trade-bot-go/internal/models"
)

// FeedState is the run state of the price feed.
type FeedState string

const (
	StateStopped FeedState = "stopped"
	StateRunning FeedState = "running"
	StatePaused  FeedState = "paused"
)

// Placeholder tick prices are drawn uniformly from this range; real quotes
// only flow through the prices endpoint and trade execution.
const (
	tickPriceMin = 100.0
	tickPriceMax = 40000.0
)

// Broadcaster is the fan-out target for feed messages.
type Broadcaster interface {
	Broadcast(v interface{})
}

// Feed periodically pushes a price tick for every watched symbol to all
// connected sessions. start/pause/resume/kill are the only state-mutating
// entry points and are serialized by the feed's own mutex.
type Feed struct {
	mu       sync.Mutex
	state    FeedState
	isPaused bool
	cancel   context.CancelFunc
	done     chan struct{}

	service  *Service
	hub      Broadcaster
	interval time.Duration
	logger   *zap.Logger
	rng      *rand.Rand
}

// NewFeed creates a stopped feed.
func NewFeed(service *Service, hub Broadcaster, interval time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		state:    StateStopped,
		service:  service,
		hub:      hub,
		interval: interval,
		logger:   logger.Named("feed"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State returns the current run state.
func (f *Feed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start launches the tick loop. Starting a running feed is a no-op and
// starting a paused feed resumes it without relaunching the loop.
func (f *Feed) Start() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateRunning:
		return f.state
	case StatePaused:
		f.isPaused = false
		f.state = StateRunning
		f.logger.Info("Feed resumed")
		return f.state
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	f.isPaused = false
	f.state = StateRunning

	go f.run(ctx, f.done)

	f.logger.Info("Feed started", zap.Duration("interval", f.interval))
	return f.state
}

// Pause suspends tick generation without terminating the loop. Valid only
// while running.
func (f *Feed) Pause() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateRunning {
		f.isPaused = true
		f.state = StatePaused
		f.logger.Info("Feed paused")
	}
	return f.state
}

// Resume re-enables tick generation after a pause.
func (f *Feed) Resume() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StatePaused {
		f.isPaused = false
		f.state = StateRunning
		f.logger.Info("Feed resumed")
	}
	return f.state
}

// Kill terminates the loop from any state, interrupting the wait between
// ticks. The loop observes the cancellation, pushes a terminal stopped
// notice to the sessions and exits; Kill does not wait for that to finish.
func (f *Feed) Kill() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
		f.logger.Info("Feed killed")
	}
	f.isPaused = false
	f.state = StateStopped
	return f.state
}

// run is the tick loop. It exits only via context cancellation.
func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Cancellation is the normal shutdown path, not an error.
			f.hub.Broadcast(models.StatusMessage{Type: "status", Status: "stopped"})
			f.logger.Info("Feed loop stopped")
			return
		case <-ticker.C:
			f.mu.Lock()
			paused := f.isPaused
			f.mu.Unlock()
			if paused {
				continue
			}
			f.hub.Broadcast(f.tick())
		}
	}
}

// tick builds one prices message for the current watchlist.
func (f *Feed) tick() models.PricesMessage {
	symbols := f.service.Watchlist()

	data := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		data[symbol] = f.randomPrice()
	}

	return models.PricesMessage{
		Type:      "prices",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

func (f *Feed) randomPrice() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tickPriceMin + f.rng.Float64()*(tickPriceMax-tickPriceMin)
}
