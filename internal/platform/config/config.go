// Package config loads the application configuration from a TOML file.
// A missing file is not an error: every field has a default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
)

// Duration is a time.Duration written as a string ("1s", "250ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// AppConfig is the full application configuration.
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Game    GameConfig    `toml:"game"`
	Storage StorageConfig `toml:"storage"`
	Ticker  TickerConfig  `toml:"ticker"`
	Tuning  TuningConfig  `toml:"tuning"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	Metrics        bool     `toml:"metrics"`
	BroadcastEvery Duration `toml:"broadcast_every"` // Minimum spacing between state pushes
}

// GameConfig mirrors progression.Config in file form.
type GameConfig struct {
	InitialUpgradeCost     int64              `toml:"initial_upgrade_cost"`
	CostMultiplier         int64              `toml:"cost_multiplier"`
	PowerMultiplier        int64              `toml:"power_multiplier"`
	CPSSampleInterval      Duration           `toml:"cps_sample_interval"`
	AutoProductionInterval Duration           `toml:"auto_production_interval"`
	Tiers                  []progression.Tier `toml:"tiers"`
}

// StorageConfig configures the SQLite journal.
type StorageConfig struct {
	Enabled    bool     `toml:"enabled"`
	Path       string   `toml:"path"`
	FlushEvery Duration `toml:"flush_every"` // Journal flush cadence; session summaries follow each flush
}

// TickerConfig configures the host frame loop.
type TickerConfig struct {
	FrameRate int `toml:"frame_rate"` // Frames per second
}

// TuningConfig selects an optimization profile.
type TuningConfig struct {
	Profile string `toml:"profile"`
}

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	game := progression.DefaultConfig()
	return AppConfig{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			Metrics:        true,
			BroadcastEvery: Duration{50 * time.Millisecond},
		},
		Game: GameConfig{
			InitialUpgradeCost:     game.InitialUpgradeCost,
			CostMultiplier:         game.CostMultiplier,
			PowerMultiplier:        game.PowerMultiplier,
			CPSSampleInterval:      Duration{game.CPSSampleInterval},
			AutoProductionInterval: Duration{game.AutoProductionInterval},
			Tiers:                  game.Tiers,
		},
		Storage: StorageConfig{
			Enabled:    true,
			Path:       "cookie.db",
			FlushEvery: Duration{time.Second},
		},
		Ticker: TickerConfig{FrameRate: 60},
		Tuning: TuningConfig{Profile: "default"},
	}
}

// Load reads path on top of the defaults. Keys absent from the file keep
// their default values; a missing file yields Default().
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return AppConfig{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return AppConfig{}, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the non-game sections; the game section is validated by
// ToProgression.
func (c AppConfig) Validate() error {
	if c.Ticker.FrameRate <= 0 {
		return fmt.Errorf("ticker.frame_rate must be positive, got %d", c.Ticker.FrameRate)
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return errors.New("storage.path is required when storage is enabled")
	}
	if _, err := c.ToProgression(); err != nil {
		return err
	}
	return nil
}

// ToProgression converts the game section and validates it.
func (c AppConfig) ToProgression() (progression.Config, error) {
	pc := progression.Config{
		InitialUpgradeCost:     c.Game.InitialUpgradeCost,
		CostMultiplier:         c.Game.CostMultiplier,
		PowerMultiplier:        c.Game.PowerMultiplier,
		CPSSampleInterval:      c.Game.CPSSampleInterval.Duration,
		AutoProductionInterval: c.Game.AutoProductionInterval.Duration,
		Tiers:                  append([]progression.Tier(nil), c.Game.Tiers...),
	}
	if err := pc.Validate(); err != nil {
		return progression.Config{}, err
	}
	return pc, nil
}

// FrameInterval returns the host frame period.
func (c AppConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Ticker.FrameRate)
}
