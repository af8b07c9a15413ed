package network

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is one WebSocket connection.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	limit := rate.Inf
	burst := 0
	if n := hub.tuning.MaxActionsPerSecond; n > 0 {
		limit = rate.Limit(n)
		burst = n
	}
	buf := hub.tuning.ClientSendBuffer
	if buf <= 0 {
		buf = 1
	}
	return &Client{
		id:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, buf),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ID identifies the client in logs.
func (c *Client) ID() string { return c.id }

// ReadPump pumps actions from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Errorf("WebSocket read error from %s: %v", c.id, err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action Action
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse action from WebSocket client " + c.id + ": " + err.Error())
			c.reply(ActionResult{Error: "malformed action"})
			continue
		}

		c.handleAction(action)
	}
}

func (c *Client) handleAction(action Action) {
	if !c.limiter.Allow() {
		c.hub.metrics.RecordRateLimited()
		c.reply(ActionResult{
			RequestID: action.RequestID,
			Action:    action.Type,
			Outcome:   OutcomeRateLimited,
			Error:     "rate limit exceeded",
		})
		return
	}

	res, snap, err := Apply(c.hub.game, action.Type)
	if err != nil {
		if errors.Is(err, ErrUnknownAction) {
			c.hub.logger.Warn("Unknown action type from " + c.id + ": " + action.Type)
		}
		c.reply(ActionResult{RequestID: action.RequestID, Action: action.Type, Error: err.Error()})
		return
	}
	res.RequestID = action.RequestID
	c.reply(res)

	// Everyone else learns about changes from the state pusher; a sync
	// only concerns the requester.
	if action.Type == ActionSync {
		if data, err := encodeState(snap); err == nil {
			c.hub.sendTo(c, data)
		}
	}
}

func (c *Client) reply(res ActionResult) {
	data, err := encodeResult(res)
	if err != nil {
		c.hub.logger.Errorf("Failed to serialize action result: %v", err)
		return
	}
	c.hub.sendTo(c, data)
}

// WritePump pumps messages from the hub to the websocket connection.
// Each message is written as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
			c.hub.metrics.RecordWSMessage(false)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
