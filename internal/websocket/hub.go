// Package websocket streams job progress to browser clients.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/datasynth/api/internal/model"
)

const (
	pingInterval = 30 * time.Second
	sendBuffer   = 64
	terminalWait = 5 * time.Second
)

// Client is one websocket subscriber of a job
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

type event struct {
	jobID    string
	data     []byte
	terminal bool
}

// Hub fans job events out to the clients watching that job. It remembers the
// last non-terminal event per job so a client that subscribes mid-run starts
// from the current progress instead of waiting for the next chunk.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	last    map[string][]byte

	register   chan *Client
	unregister chan *Client
	events     chan event

	// terminalWait bounds how long a complete or error event waits for room
	// in a full queue.
	terminalWait time.Duration

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[string]map[*Client]struct{}),
		last:         make(map[string][]byte),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		events:       make(chan event, 256),
		terminalWait: terminalWait,
		logger:       logger.Named("ws"),
	}
}

// Run owns client membership and event delivery. It never returns.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			subs := h.clients[c.JobID]
			if subs == nil {
				subs = make(map[*Client]struct{})
				h.clients[c.JobID] = subs
			}
			subs[c] = struct{}{}
			if data, ok := h.last[c.JobID]; ok {
				h.deliver(c, data)
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", zap.String("job_id", c.JobID))

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", zap.String("job_id", c.JobID))

		case ev := <-h.events:
			h.mu.Lock()
			if ev.terminal {
				delete(h.last, ev.jobID)
			} else {
				h.last[ev.jobID] = ev.data
			}
			for c := range h.clients[ev.jobID] {
				h.deliver(c, ev.data)
			}
			h.mu.Unlock()
		}
	}
}

// deliver must be called with mu held. A client whose buffer is full is dropped.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.logger.Warn("dropping slow websocket client", zap.String("job_id", c.JobID))
		h.drop(c)
	}
}

// drop must be called with mu held
func (h *Hub) drop(c *Client) {
	subs, ok := h.clients[c.JobID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	close(c.Send)
	if len(subs) == 0 {
		delete(h.clients, c.JobID)
	}
}

// Subscribers returns the number of clients watching jobID
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

func (h *Hub) Register(c *Client) {
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// BroadcastProgress publishes a progress snapshot for jobID
func (h *Hub) BroadcastProgress(jobID string, p model.Progress) {
	h.publish(model.JobEvent{Type: model.EventProgress, JobID: jobID, Progress: &p})
}

// BroadcastComplete publishes the final result for jobID
func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.publish(model.JobEvent{Type: model.EventComplete, JobID: jobID, Result: result})
}

// BroadcastError publishes a job failure for jobID
func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.publish(model.JobEvent{
		Type:  model.EventError,
		JobID: jobID,
		Error: &model.EventErrorDetail{Code: code, Message: message},
	})
}

// publish drops progress events when the queue is full. Complete and error
// events wait up to terminalWait for room.
func (h *Hub) publish(ev model.JobEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode job event", zap.String("job_id", ev.JobID), zap.Error(err))
		return
	}
	e := event{jobID: ev.JobID, data: data, terminal: ev.Terminal()}

	select {
	case h.events <- e:
		return
	default:
	}
	if !e.terminal {
		h.logger.Warn("event queue full, dropping", zap.String("job_id", ev.JobID), zap.String("type", ev.Type))
		return
	}

	timer := time.NewTimer(h.terminalWait)
	defer timer.Stop()
	select {
	case h.events <- e:
	case <-timer.C:
		h.logger.Error("event queue stalled, dropping terminal event", zap.String("job_id", ev.JobID), zap.String("type", ev.Type))
	}
}

// HandleConnection serves one websocket until the peer goes away
func (h *Hub) HandleConnection(conn *websocket.Conn, jobID string) {
	c := &Client{
		JobID: jobID,
		Conn:  conn,
		Send:  make(chan []byte, sendBuffer),
	}

	h.Register(c)
	defer h.Unregister(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop answers application-level pings and returns when the peer closes.
func (h *Hub) readLoop(c *Client) {
	pong, _ := json.Marshal(model.JobEvent{Type: model.EventPong, JobID: c.JobID})
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("job_id", c.JobID), zap.Error(err))
			}
			return
		}

		var msg model.JobEvent
		if json.Unmarshal(data, &msg) != nil || msg.Type != model.EventPing {
			continue
		}
		// Send may already be closed by a slow-client drop
		h.mu.RLock()
		_, subscribed := h.clients[c.JobID][c]
		if subscribed {
			select {
			case c.Send <- pong:
			default:
			}
		}
		h.mu.RUnlock()
	}
}
