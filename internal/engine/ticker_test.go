package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
)

func TestTickerStepUsesClockDelta(t *testing.T) {
	cfg := progression.DefaultConfig()
	cfg.Tiers = []progression.Tier{{UnlockCost: 1, ProductionRate: 2}}
	e, err := NewEngine(cfg, nil, nil, nil)
	require.NoError(t, err)
	e.Click()
	e.PurchaseOrAdvanceAutoProduction()

	clock := NewMockTimeProvider(time.Unix(0, 0))
	tk := NewTicker(e, clock, nil, time.Millisecond)

	clock.Advance(400 * time.Millisecond)
	dt, res := tk.Step()
	assert.Equal(t, 400*time.Millisecond, dt)
	assert.Zero(t, res.Paid)
	assert.Zero(t, e.Snapshot().ResourceCount)

	clock.Advance(600 * time.Millisecond)
	_, res = tk.Step()
	assert.Equal(t, int64(2), res.Paid)
	assert.Equal(t, int64(2), e.Snapshot().ResourceCount)
	assert.Equal(t, int64(2), tk.Frames())
}

func TestTickerClockBackwardsIsZeroFrame(t *testing.T) {
	e, err := NewEngine(progression.DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)

	start := time.Unix(100, 0)
	clock := NewMockTimeProvider(start)
	tk := NewTicker(e, clock, nil, time.Millisecond)

	clock.Set(start.Add(-time.Hour))
	dt, _ := tk.Step()
	assert.Zero(t, dt)

	clock.Advance(time.Second)
	dt, _ = tk.Step()
	assert.Equal(t, time.Second, dt)
}

func TestTickerStartStop(t *testing.T) {
	e, err := NewEngine(progression.DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)
	tk := NewTicker(e, nil, nil, time.Millisecond)

	done := make(chan struct{})
	go func() {
		tk.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return tk.Frames() > 0 }, time.Second, time.Millisecond)
	tk.Stop()
	tk.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}

func TestTickerStopsOnContext(t *testing.T) {
	e, err := NewEngine(progression.DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)
	tk := NewTicker(e, nil, nil, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}
