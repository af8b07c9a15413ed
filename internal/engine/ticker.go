// Package engine drives the progression rules in real time. The Engine
// serializes player actions and frame updates; the Ticker is the heartbeat
// that feeds it elapsed time.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// DefaultFrameInterval is the host frame period (60 fps).
const DefaultFrameInterval = time.Second / 60

// Ticker manages the game loop heartbeat. It measures the wall time between
// frames and hands it to the engine; it knows nothing about cookies.
type Ticker struct {
	engine   *Engine
	clock    TimeProvider
	logger   *logger.Logger
	interval time.Duration

	mu       sync.Mutex
	last     time.Time
	frames   int64
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a ticker firing every interval. clock may be nil.
func NewTicker(engine *Engine, clock TimeProvider, log *logger.Logger, interval time.Duration) *Ticker {
	if clock == nil {
		clock = SystemTime{}
	}
	if log == nil {
		log = logger.Discard()
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Ticker{
		engine:   engine,
		clock:    clock,
		logger:   log,
		interval: interval,
		last:     clock.Now(),
		stopChan: make(chan struct{}),
	}
}

// Start runs the frame loop until ctx is done or Stop is called.
// Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Infof("Engine ticker started (frame %s)", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.mu.Lock()
	t.last = t.clock.Now()
	t.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine ticker stopped manually.")
			return
		case <-ticker.C:
			t.Step()
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Step advances the engine by the time elapsed since the previous step.
// A clock that moved backwards yields a zero-length frame.
func (t *Ticker) Step() (time.Duration, progression.TickResult) {
	t.mu.Lock()
	now := t.clock.Now()
	dt := now.Sub(t.last)
	t.last = now
	t.frames++
	t.mu.Unlock()

	if dt < 0 {
		dt = 0
	}
	return dt, t.engine.Advance(dt)
}

// Frames returns how many steps have run.
func (t *Ticker) Frames() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}
