package network

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/optimization"
)

// Recorder receives transport measurements. *metrics.Collector satisfies it.
type Recorder interface {
	RecordWSConnection(delta int64)
	RecordWSMessage(incoming bool)
	RecordWSError()
	RecordRateLimited()
}

type nopRecorder struct{}

func (nopRecorder) RecordWSConnection(int64) {}
func (nopRecorder) RecordWSMessage(bool)     {}
func (nopRecorder) RecordWSError()           {}
func (nopRecorder) RecordRateLimited()       {}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Only Run touches a client's send channel.
type Hub struct {
	game    ActionHandler
	logger  *logger.Logger
	metrics Recorder
	tuning  *optimization.Config

	upgrader websocket.Upgrader

	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	active     int64 // Admitted connections, including ones not yet registered

	done     chan struct{}
	doneOnce sync.Once
}

// NewHub initializes a new WebSocket Hub. rec and tuning may be nil.
func NewHub(game ActionHandler, log *logger.Logger, rec Recorder, tuning *optimization.Config) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	return &Hub{
		game:    game,
		logger:  log,
		metrics: rec,
		tuning:  tuning,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local game server; browsers on any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		broadcast:  make(chan []byte, tuning.BroadcastChannelBuffer),
		direct:     make(chan directMessage, tuning.BroadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.metrics.RecordWSConnection(1)
			h.logger.Infof("WebSocket client %s connected", client.id)
			data, err := encodeState(h.game.Snapshot())
			h.mu.Lock()
			h.clients[client] = true
			if err == nil {
				h.deliver(client, data)
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeLocked(client)
				h.logger.Infof("WebSocket client %s disconnected", client.id)
			}
			h.mu.Unlock()
		case msg := <-h.direct:
			h.mu.Lock()
			if h.clients[msg.client] {
				h.deliver(msg.client, msg.data)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues data for client, dropping the client if it cannot keep up.
// Called with h.mu held.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.logger.Warn("WebSocket client " + client.id + " too slow, dropping")
		h.metrics.RecordWSError()
		h.removeLocked(client)
	}
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)
	atomic.AddInt64(&h.active, -1)
	h.metrics.RecordWSConnection(-1)
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	for client := range h.clients {
		h.removeLocked(client)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if n := atomic.AddInt64(&h.active, 1); h.tuning.MaxClients > 0 && n > int64(h.tuning.MaxClients) {
		atomic.AddInt64(&h.active, -1)
		h.metrics.RecordWSError()
		h.logger.Warn("WebSocket connection refused: client limit reached")
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		atomic.AddInt64(&h.active, -1)
		h.metrics.RecordWSError()
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		atomic.AddInt64(&h.active, -1)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// BroadcastState renders the current snapshot and sends it to every client.
func (h *Hub) BroadcastState() {
	data, err := encodeState(h.game.Snapshot())
	if err != nil {
		h.logger.Errorf("Failed to serialize state for WebSocket broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// sendTo queues data for a single client through the Run loop.
func (h *Hub) sendTo(client *Client, data []byte) {
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.done:
	}
}

// StartStatePusher broadcasts the state after every engine change, at most
// once per minInterval. It must be the only reader of the engine's Changes
// channel.
func (h *Hub) StartStatePusher(ctx context.Context, minInterval time.Duration) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.game.Changes():
				h.BroadcastState()
			}
			if minInterval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(minInterval):
				}
			}
		}
	}()
}
