// Package audio plays short feedback sounds for player actions.
package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
)

// SoundManager manages all game audio. Every Play method is a no-op until
// Initialize succeeds, so hosts without a sound device run silently.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	volume      float64
}

// NewSoundManager creates a new sound manager. volume is clamped to [0, 1].
func NewSoundManager(volume float64) *SoundManager {
	return &SoundManager{
		mixer:  &beep.Mixer{},
		volume: math.Max(0, math.Min(1, volume)),
	}
}

// Initialize sets up the audio system
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	// Initialize speaker with sample rate and buffer size
	if err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100)); err != nil {
		return err
	}

	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup stops all sounds and closes the speaker.
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	sm.initialized = false
}

// Click plays a short high blip.
func (sm *SoundManager) Click() {
	sm.play(ClickSound(sampleRate, sm.volume))
}

// Purchase plays a rising two-note chime.
func (sm *SoundManager) Purchase() {
	sm.play(PurchaseSound(sampleRate, sm.volume))
}

// Reject plays a low buzz.
func (sm *SoundManager) Reject() {
	sm.play(RejectSound(sampleRate, sm.volume))
}

// Payout plays a soft tick.
func (sm *SoundManager) Payout() {
	sm.play(PayoutSound(sampleRate, sm.volume))
}

func (sm *SoundManager) play(s beep.Streamer) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized || s == nil || sm.volume == 0 {
		return
	}
	speaker.Lock()
	sm.mixer.Add(s)
	speaker.Unlock()
}

// tone is a sine note of length d, faded out linearly and scaled to gain.
func tone(sr beep.SampleRate, freq float64, d time.Duration, gain float64) beep.Streamer {
	sine, err := generators.SineTone(sr, freq)
	if err != nil {
		return nil
	}
	return &envelope{
		Streamer: beep.Take(sr.N(d), sine),
		total:    sr.N(d),
		gain:     gain,
	}
}

// ClickSound is the click blip.
func ClickSound(sr beep.SampleRate, volume float64) beep.Streamer {
	return tone(sr, 880, 40*time.Millisecond, 0.25*volume)
}

// PurchaseSound is the purchase chime.
func PurchaseSound(sr beep.SampleRate, volume float64) beep.Streamer {
	low := tone(sr, 660, 90*time.Millisecond, 0.3*volume)
	high := tone(sr, 990, 140*time.Millisecond, 0.3*volume)
	if low == nil || high == nil {
		return nil
	}
	return beep.Seq(low, high)
}

// RejectSound is the buzz for unaffordable purchases.
func RejectSound(sr beep.SampleRate, volume float64) beep.Streamer {
	return beep.Take(sr.N(150*time.Millisecond), NewBuzzGenerator(sr, 120, 0.2*volume))
}

// PayoutSound is the auto production tick.
func PayoutSound(sr beep.SampleRate, volume float64) beep.Streamer {
	return tone(sr, 1320, 20*time.Millisecond, 0.1*volume)
}

// envelope fades its streamer out over total samples.
type envelope struct {
	beep.Streamer
	pos   int
	total int
	gain  float64
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		fade := 1.0
		if e.total > 0 {
			fade = 1 - float64(e.pos)/float64(e.total)
		}
		samples[i][0] *= e.gain * fade
		samples[i][1] *= e.gain * fade
		e.pos++
	}
	return n, ok
}

// BuzzGenerator generates a low-pitch buzz sound
type BuzzGenerator struct {
	sr   beep.SampleRate
	freq float64
	gain float64
	pos  int
}

// NewBuzzGenerator creates a buzz sound generator
func NewBuzzGenerator(sr beep.SampleRate, freq, gain float64) *BuzzGenerator {
	return &BuzzGenerator{sr: sr, freq: freq, gain: gain}
}

func (g *BuzzGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		// Odd harmonics for a harsh buzz
		sample := 0.0
		sample += 0.6 * math.Sin(2*math.Pi*g.freq*t)
		sample += 0.3 * math.Sin(2*math.Pi*g.freq*3*t)
		sample += 0.1 * math.Sin(2*math.Pi*g.freq*5*t)

		// Fade in over 20ms to avoid a click
		attack := math.Min(t/0.02, 1.0)
		sample *= attack * g.gain

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *BuzzGenerator) Err() error {
	return nil
}
