package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/engine"
)

type countingSounds struct {
	clicks, purchases, rejects, payouts int
}

func (c *countingSounds) Click()    { c.clicks++ }
func (c *countingSounds) Purchase() { c.purchases++ }
func (c *countingSounds) Reject()   { c.rejects++ }
func (c *countingSounds) Payout()   { c.payouts++ }

func newApp(t *testing.T, cfg progression.Config) (*App, tcell.SimulationScreen, *engine.Engine, *countingSounds) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(100, 24)
	t.Cleanup(screen.Fini)

	game, err := engine.NewEngine(cfg, nil, nil, nil)
	require.NoError(t, err)
	sounds := &countingSounds{}
	return New(screen, game, nil, sounds, time.Millisecond), screen, game, sounds
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func screenText(s tcell.SimulationScreen) string {
	cells, w, h := s.GetContents()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) > 0 {
				b.WriteRune(c.Runes[0])
			} else {
				b.WriteRune(' ')
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func TestKeysDriveGame(t *testing.T) {
	app, _, game, sounds := newApp(t, progression.DefaultConfig())

	assert.True(t, app.HandleEvent(key(' ')))
	assert.True(t, app.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)))
	assert.Equal(t, int64(2), game.Snapshot().ResourceCount)
	assert.Equal(t, 2, sounds.clicks)

	assert.True(t, app.HandleEvent(key('u')))
	assert.Equal(t, "Not enough cookies: the upgrade costs 100.", app.Status())
	assert.True(t, app.HandleEvent(key('a')))
	assert.Equal(t, "Not enough cookies: the next level costs 100.", app.Status())
	assert.Equal(t, 2, sounds.rejects)

	for i := 0; i < 98; i++ {
		app.HandleEvent(key(' '))
	}
	app.HandleEvent(key('u'))
	assert.Equal(t, "Click power is now 2.", app.Status())
	assert.Equal(t, 1, sounds.purchases)
}

func TestAutoMessages(t *testing.T) {
	cfg := progression.DefaultConfig()
	cfg.Tiers = []progression.Tier{{UnlockCost: 1, ProductionRate: 1}}
	app, _, _, _ := newApp(t, cfg)

	app.HandleEvent(key(' '))
	app.HandleEvent(key('a'))
	assert.Equal(t, "Auto production Lv1 unlocked.", app.Status())
	app.HandleEvent(key('a'))
	assert.Equal(t, "Auto production is already at max level.", app.Status())
}

func TestQuitKeys(t *testing.T) {
	app, _, _, _ := newApp(t, progression.DefaultConfig())
	assert.False(t, app.HandleEvent(key('q')))
	assert.False(t, app.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, app.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone)))
}

func TestDrawShowsView(t *testing.T) {
	app, screen, _, _ := newApp(t, progression.DefaultConfig())
	for i := 0; i < 1200; i++ {
		app.HandleEvent(key(' '))
	}
	app.draw()

	text := screenText(screen)
	assert.Contains(t, text, "COOKIE CLICKER")
	assert.Contains(t, text, "Cookies: 1,200")
	assert.Contains(t, text, "[u] Next upgrade: 100 cookies, click power x2!")
	assert.Contains(t, text, "[a] Unlock auto production (100 cookies, +1/s)")
}

func TestRunQuitsOnKey(t *testing.T) {
	app, screen, _, _ := newApp(t, progression.DefaultConfig())

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not quit")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	app, _, _, _ := newApp(t, progression.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, app.Run(ctx), context.Canceled)
}
