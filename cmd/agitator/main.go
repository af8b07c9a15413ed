// Package main - agitator
// Load generator for stress testing the cookie server.
// Opens many concurrent WebSocket clients that spam CLICK, UPGRADE and AUTO
// actions and measures the action round trip.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CookieClicker/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	ClickWeight    int // Out of 100; the rest is split between UPGRADE and AUTO
	ResultsFile    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	StatesReceived   int64
	Accepted         int64
	Rejected         int64
	RateLimited      int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func (s *Stats) addLatency(d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.mu.Unlock()
}

func main() {
	// Parse flags
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	clickWeight := flag.Int("clicks", 90, "Percentage of actions that are clicks")
	resultsFile := flag.String("out", "stress_test_results.json", "Where to write the JSON results")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		ClickWeight:    *clickWeight,
		ResultsFile:    *resultsFile,
	}

	fmt.Println("=========================================")
	fmt.Println("🍪 AGITATOR - Cookie Server Stress Test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Printf("Click share: %d%%\n", config.ClickWeight)
	fmt.Println("=========================================")

	// Setup graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	started := time.Now()
	stats := runStressTest(ctx, config)

	printResults(stats, config, time.Since(started))
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\n🚀 Starting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("✅ All %d clients started\n\n", config.NumClients)

	// Progress updates
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.MessagesSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("📊 Progress: Sent=%d Recv=%d Errors=%d\n", sent, recv, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Send times keyed by request ID, matched against action results.
	var pending sync.Map

	// Start receiver goroutine
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)

			var msg network.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				continue
			}
			switch msg.Kind {
			case network.KindState:
				atomic.AddInt64(&stats.StatesReceived, 1)
			case network.KindActionResult:
				recordResult(msg.Result, &pending, stats)
			}
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))

	// Send actions at configured interval
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := network.Action{
				Type:      pickAction(rng, config.ClickWeight),
				RequestID: strconv.Itoa(clientID) + "-" + strconv.Itoa(seq),
			}
			pending.Store(action.RequestID, time.Now())

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

func recordResult(res *network.ActionResult, pending *sync.Map, stats *Stats) {
	if res == nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	if sent, ok := pending.LoadAndDelete(res.RequestID); ok {
		stats.addLatency(time.Since(sent.(time.Time)))
	}
	switch {
	case res.Outcome == network.OutcomeRateLimited:
		atomic.AddInt64(&stats.RateLimited, 1)
	case res.Error != "":
		atomic.AddInt64(&stats.Errors, 1)
	case res.Accepted:
		atomic.AddInt64(&stats.Accepted, 1)
	default:
		atomic.AddInt64(&stats.Rejected, 1)
	}
}

// pickAction draws CLICK with probability clickWeight/100 and splits the
// rest evenly between UPGRADE and AUTO.
func pickAction(rng *rand.Rand, clickWeight int) string {
	n := rng.Intn(100)
	switch {
	case n < clickWeight:
		return network.ActionClick
	case n%2 == 0:
		return network.ActionUpgrade
	default:
		return network.ActionAuto
	}
}

func printResults(stats *Stats, config Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	states := atomic.LoadInt64(&stats.StatesReceived)
	accepted := atomic.LoadInt64(&stats.Accepted)
	rejected := atomic.LoadInt64(&stats.Rejected)
	limited := atomic.LoadInt64(&stats.RateLimited)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Actions Sent:      %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s (%s state pushes)\n", humanize.Comma(recv), humanize.Comma(states))
	fmt.Printf("Accepted:          %s\n", humanize.Comma(accepted))
	fmt.Printf("Rejected:          %s\n", humanize.Comma(rejected))
	fmt.Printf("Rate Limited:      %s\n", humanize.Comma(limited))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	// Calculate throughput
	throughput := float64(sent) / elapsed.Seconds()
	fmt.Printf("Throughput:        %.2f actions/sec\n", throughput)

	// Latency stats
	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.Latencies...)
	stats.mu.Unlock()

	var p50, p99 time.Duration
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var total time.Duration
		for _, l := range latencies {
			total += l
		}
		avg := total / time.Duration(len(latencies))
		p50 = latencies[len(latencies)/2]
		p99 = latencies[len(latencies)*99/100]

		fmt.Printf("\nRound trip:\n")
		fmt.Printf("  Min: %v\n", latencies[0])
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  P50: %v\n", p50)
		fmt.Printf("  P99: %v\n", p99)
		fmt.Printf("  Max: %v\n", latencies[len(latencies)-1])
	}

	// Verdict
	expected := float64(config.NumClients) * elapsed.Seconds() / config.ActionInterval.Seconds()
	fmt.Println("\n-----------------------------------------")
	if errs == 0 && float64(sent) > expected*0.9 {
		fmt.Println("✅ TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("⚠️ TEST WARNING: Some errors detected")
	} else {
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	// Export results as JSON
	results := map[string]interface{}{
		"actions_sent":       sent,
		"messages_received":  recv,
		"states_received":    states,
		"accepted":           accepted,
		"rejected":           rejected,
		"rate_limited":       limited,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_p50_ms":     float64(p50) / float64(time.Millisecond),
		"latency_p99_ms":     float64(p99) / float64(time.Millisecond),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
			"clicks":   config.ClickWeight,
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsFile, jsonData, 0644); err != nil {
		log.Printf("Failed to save results: %v", err)
		return
	}
	fmt.Printf("\n📁 Results saved to %s\n", config.ResultsFile)
}
