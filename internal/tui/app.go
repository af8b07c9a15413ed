// Package tui is the terminal front end: it draws the rendered view with
// tcell and turns key presses into engine actions.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/presentation"
)

// Game is the engine surface the terminal drives.
type Game interface {
	Click() progression.Snapshot
	PurchaseUpgrade() (bool, progression.Snapshot)
	PurchaseOrAdvanceAutoProduction() (progression.AutoResult, progression.Snapshot)
	Snapshot() progression.Snapshot
}

// Stepper advances game time once per frame. *engine.Ticker satisfies it.
type Stepper interface {
	Step() (time.Duration, progression.TickResult)
}

// Sounds gives audible feedback. *audio.SoundManager satisfies it.
type Sounds interface {
	Click()
	Purchase()
	Reject()
	Payout()
}

type silent struct{}

func (silent) Click()    {}
func (silent) Purchase() {}
func (silent) Reject()   {}
func (silent) Payout()   {}

var (
	styleTitle    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleText     = tcell.StyleDefault
	styleEnabled  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleDisabled = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleHelp     = tcell.StyleDefault.Foreground(tcell.ColorGray).Italic(true)
)

// App owns the screen for one play session.
type App struct {
	screen  tcell.Screen
	game    Game
	stepper Stepper
	sounds  Sounds
	frame   time.Duration

	status string
}

// New creates an app on an initialized screen. sounds may be nil.
func New(screen tcell.Screen, game Game, stepper Stepper, sounds Sounds, frame time.Duration) *App {
	if sounds == nil {
		sounds = silent{}
	}
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	return &App{
		screen:  screen,
		game:    game,
		stepper: stepper,
		sounds:  sounds,
		frame:   frame,
		status:  "Press space to bake a cookie.",
	}
}

// Run draws and handles input until the player quits or ctx is done.
// The caller still owns the screen and must Fini it.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.frame)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-quit:
				return
			}
		}
	}()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventChan:
			if !a.HandleEvent(ev) {
				return nil
			}
			a.draw()
		case <-ticker.C:
			if a.stepper != nil {
				if _, res := a.stepper.Step(); res.Paid > 0 {
					a.sounds.Payout()
				}
			}
			a.draw()
		}
	}
}

// HandleEvent applies one terminal event. It returns false when the
// player asked to quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyEnter:
			a.click()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case ' ':
				a.click()
			case 'u', 'U':
				a.upgrade()
			case 'a', 'A':
				a.advance()
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) click() {
	a.game.Click()
	a.sounds.Click()
}

func (a *App) upgrade() {
	ok, snap := a.game.PurchaseUpgrade()
	if !ok {
		a.sounds.Reject()
		a.status = fmt.Sprintf("Not enough cookies: the upgrade costs %d.", snap.NextUpgradeCost)
		return
	}
	a.sounds.Purchase()
	a.status = fmt.Sprintf("Click power is now %d.", snap.ClickPower)
}

func (a *App) advance() {
	res, snap := a.game.PurchaseOrAdvanceAutoProduction()
	switch res.Outcome {
	case progression.AutoAdvanced:
		a.sounds.Purchase()
		a.status = fmt.Sprintf("Auto production Lv%d unlocked.", res.TierIndex+1)
	case progression.AutoAlreadyMaxed:
		a.sounds.Reject()
		a.status = "Auto production is already at max level."
	default:
		a.sounds.Reject()
		a.status = fmt.Sprintf("Not enough cookies: the next level costs %d.", snap.NextTier.UnlockCost)
	}
}

// Status returns the last feedback line.
func (a *App) Status() string { return a.status }

func (a *App) draw() {
	v := presentation.Render(a.game.Snapshot())

	a.screen.Clear()
	y := 1
	line := func(text string, style tcell.Style) {
		drawText(a.screen, 2, y, text, style)
		y++
	}

	line("COOKIE CLICKER", styleTitle)
	y++
	line(v.Cookies, styleText)
	line(v.ClicksPerSec, styleText)
	line(v.CookiesPerSec, styleText)
	y++
	line(fmt.Sprintf("[space] Bake (+%d)", v.ClickPower), styleEnabled)
	line("[u] "+v.Upgrade.Label, buttonStyle(v.Upgrade))
	line("[a] "+v.Auto.Label, buttonStyle(v.Auto))
	y++
	line(a.status, styleStatus)
	y++
	line("space/enter bake   u upgrade   a auto production   q quit", styleHelp)

	a.screen.Show()
}

func buttonStyle(b presentation.Button) tcell.Style {
	if b.Enabled {
		return styleEnabled
	}
	return styleDisabled
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	w, h := s.Size()
	if y >= h {
		return
	}
	for _, r := range text {
		if r == '\n' {
			r = ' '
		}
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
