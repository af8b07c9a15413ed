// Package optimization provides tuning profiles for the server's buffers,
// pools and rate limits, plus a small analyzer over the metrics snapshot.
package optimization

import (
	"fmt"
	"runtime"
)

// Config holds tuned parameters for one deployment profile.
type Config struct {
	// Channel buffer sizes
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// In-memory event log retention before the oldest events are dropped
	EventLogRetention int

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Rate limiting
	MaxActionsPerSecond int // Per WebSocket client
	MaxClients          int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		EventLogRetention: 50000,

		// SQLite serializes writers; extra conns only help readers
		DBMaxOpenConns: numCPU,
		DBMaxIdleConns: 2,

		// Humans rarely exceed ~20 clicks per second
		MaxActionsPerSecond: 30,
		MaxClients:          64,
	}
}

// StressTestConfig returns aggressive settings for the agitator.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		BroadcastChannelBuffer: 1024,
		ClientSendBuffer:       256,

		EventLogRetention: 200000,

		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		MaxActionsPerSecond: 500,
		MaxClients:          500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		EventLogRetention: 5000,

		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,

		MaxActionsPerSecond: 20,
		MaxClients:          8,
	}
}

// ByName resolves a profile name from configuration.
func ByName(profile string) (*Config, error) {
	switch profile {
	case "", "default":
		return DefaultConfig(), nil
	case "stress":
		return StressTestConfig(), nil
	case "low":
		return LowResourceConfig(), nil
	default:
		return nil, fmt.Errorf("unknown tuning profile %q (want default, stress or low)", profile)
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	RaiseRateLimit          bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 16 {
			rec.Notes = append(rec.Notes, "Tick latency exceeds one 60Hz frame - check lock contention on the engine")
		}
	}

	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Journal write errors detected - check DB connection pool")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	if player, ok := metrics["player"].(map[string]interface{}); ok {
		if dropped, ok := player["rate_limited"].(int64); ok && dropped > 0 {
			rec.RaiseRateLimit = true
			rec.Notes = append(rec.Notes, "Client actions were rate limited - raise MaxActionsPerSecond if clients are trusted")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns)*1.5) + 1
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns)*1.5) + 1
	}
	if rec.RaiseRateLimit {
		config.MaxActionsPerSecond *= 2
	}
	return config
}
