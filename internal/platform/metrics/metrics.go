// Package metrics provides observability for the game server.
// Counters are kept both as Prometheus series and as atomics so the JSON
// snapshot and the tuning analyzer can read them without scraping.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cookie"

// Collector gathers game and transport metrics.
type Collector struct {
	registry *prometheus.Registry

	ticks         prometheus.Counter
	tickLatency   prometheus.Histogram
	clicks        prometheus.Counter
	upgrades      *prometheus.CounterVec
	autoPurchases *prometheus.CounterVec
	autoPayouts   prometheus.Counter
	payoutCookies prometheus.Counter
	wsConnections prometheus.Gauge
	wsMessages    *prometheus.CounterVec
	wsErrors      prometheus.Counter
	rateLimited   prometheus.Counter
	eventWrites   prometheus.Counter
	eventErrors   prometheus.Counter
	resourceCount prometheus.Gauge
	clickPower    prometheus.Gauge
	autoTier      prometheus.Gauge
	measuredCPS   prometheus.Gauge
	effectiveRate prometheus.Gauge

	// Atomic mirrors for Snapshot
	TickCount        int64
	TickLatencySum   int64 // nanoseconds
	TickLatencyMax   int64
	ClickCount       int64
	UpgradesAccepted int64
	UpgradesRejected int64
	AutoAdvanced     int64
	AutoRejected     int64
	PayoutCount      int64
	EventsWritten    int64
	EventWriteErrors int64
	WSConnections    int64
	WSMessagesIn     int64
	WSMessagesOut    int64
	WSErrors         int64
	RateLimited      int64

	StartTime    time.Time
	mu           sync.RWMutex
	LastTickTime time.Time
}

// NewCollector creates a collector registered on its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "ticks_total",
			Help: "Total host frames applied to the engine.",
		}),
		tickLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "engine", Name: "tick_latency_seconds",
			Help:    "Wall time spent applying one frame.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		clicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "player", Name: "clicks_total",
			Help: "Total manual clicks.",
		}),
		upgrades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "player", Name: "upgrade_purchases_total",
			Help: "Click power upgrade attempts by outcome.",
		}, []string{"outcome"}),
		autoPurchases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "player", Name: "auto_purchases_total",
			Help: "Auto production purchase attempts by outcome.",
		}, []string{"outcome"}),
		autoPayouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "auto_payouts_total",
			Help: "Auto production payouts made.",
		}),
		payoutCookies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "auto_payout_cookies_total",
			Help: "Cookies produced by auto production.",
		}),
		wsConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "websocket", Name: "connections",
			Help: "Active WebSocket connections.",
		}),
		wsMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "websocket", Name: "messages_total",
			Help: "WebSocket messages by direction.",
		}, []string{"direction"}),
		wsErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "websocket", Name: "errors_total",
			Help: "WebSocket errors and dropped clients.",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "websocket", Name: "rate_limited_total",
			Help: "Client actions dropped by the per-client rate limit.",
		}),
		eventWrites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "journal", Name: "writes_total",
			Help: "Events written to the journal.",
		}),
		eventErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "journal", Name: "write_errors_total",
			Help: "Failed journal writes.",
		}),
		resourceCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "state", Name: "cookies",
			Help: "Cookies currently held.",
		}),
		clickPower: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "state", Name: "click_power",
			Help: "Cookies granted per click.",
		}),
		autoTier: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "state", Name: "auto_tier",
			Help: "Active auto production tier (-1 when locked).",
		}),
		measuredCPS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "state", Name: "clicks_per_second",
			Help: "Clicks per second over the last completed window.",
		}),
		effectiveRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "state", Name: "cookies_per_second",
			Help: "Estimated cookies per second (manual + auto).",
		}),
		StartTime: time.Now(),
	}
}

// RecordTick records a frame applied to the engine.
func (c *Collector) RecordTick(latency time.Duration) {
	c.ticks.Inc()
	c.tickLatency.Observe(latency.Seconds())
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic compare but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordClick records one manual click.
func (c *Collector) RecordClick() {
	c.clicks.Inc()
	atomic.AddInt64(&c.ClickCount, 1)
}

// RecordUpgrade records a click power upgrade attempt.
func (c *Collector) RecordUpgrade(accepted bool) {
	if accepted {
		c.upgrades.WithLabelValues("accepted").Inc()
		atomic.AddInt64(&c.UpgradesAccepted, 1)
		return
	}
	c.upgrades.WithLabelValues("rejected").Inc()
	atomic.AddInt64(&c.UpgradesRejected, 1)
}

// RecordAutoPurchase records an auto production attempt by outcome name.
func (c *Collector) RecordAutoPurchase(outcome string) {
	c.autoPurchases.WithLabelValues(outcome).Inc()
	switch outcome {
	case "advanced":
		atomic.AddInt64(&c.AutoAdvanced, 1)
	case "rejected":
		atomic.AddInt64(&c.AutoRejected, 1)
	}
}

// RecordPayout records an auto production payout.
func (c *Collector) RecordPayout(cookies int64) {
	c.autoPayouts.Inc()
	c.payoutCookies.Add(float64(cookies))
	atomic.AddInt64(&c.PayoutCount, 1)
}

// RecordState mirrors the engine's current state into gauges.
func (c *Collector) RecordState(cookies, clickPower int64, tier int, cps, perSecond float64) {
	c.resourceCount.Set(float64(cookies))
	c.clickPower.Set(float64(clickPower))
	c.autoTier.Set(float64(tier))
	c.measuredCPS.Set(cps)
	c.effectiveRate.Set(perSecond)
}

// RecordEventWrite records an event written to the journal.
func (c *Collector) RecordEventWrite(err error) {
	if err != nil {
		c.eventErrors.Inc()
		atomic.AddInt64(&c.EventWriteErrors, 1)
		return
	}
	c.eventWrites.Inc()
	atomic.AddInt64(&c.EventsWritten, 1)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	c.wsConnections.Add(float64(delta))
	atomic.AddInt64(&c.WSConnections, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		c.wsMessages.WithLabelValues("in").Inc()
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		c.wsMessages.WithLabelValues("out").Inc()
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	c.wsErrors.Inc()
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordRateLimited records a client action dropped by the rate limit.
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
	atomic.AddInt64(&c.RateLimited, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	var tickAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"player": map[string]interface{}{
			"clicks":            atomic.LoadInt64(&c.ClickCount),
			"upgrades_accepted": atomic.LoadInt64(&c.UpgradesAccepted),
			"upgrades_rejected": atomic.LoadInt64(&c.UpgradesRejected),
			"auto_advanced":     atomic.LoadInt64(&c.AutoAdvanced),
			"auto_rejected":     atomic.LoadInt64(&c.AutoRejected),
			"auto_payouts":      atomic.LoadInt64(&c.PayoutCount),
			"rate_limited":      atomic.LoadInt64(&c.RateLimited),
		},

		"events": map[string]interface{}{
			"written": atomic.LoadInt64(&c.EventsWritten),
			"errors":  atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnections),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests, extra collectors).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// JSONHandler returns an HTTP handler serving Snapshot as JSON.
func (c *Collector) JSONHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}
