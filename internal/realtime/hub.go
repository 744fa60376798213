package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursegraph-backend/internal/platform/logger"
	"github.com/yungbote/coursegraph-backend/internal/realtime/bus"
)

const heartbeatEvery = 15 * time.Second

// Channel is the SSE channel an event type is streamed on.
func Channel(eventType string) string { return bus.Topic(eventType) }

type Client struct {
	ID       uuid.UUID
	channels map[string]bool
	outbound chan bus.Event
	done     chan struct{}
	once     sync.Once
}

// Hub fans bus events out to connected SSE clients.
type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:     log.With("component", "SSEHub"),
		clients: make(map[*Client]bool),
	}
}

// Register adds a client listening on channels; no channels means every event.
func (h *Hub) Register(channels ...string) *Client {
	c := &Client{
		ID:       uuid.New(),
		channels: make(map[string]bool, len(channels)),
		outbound: make(chan bus.Event, 16),
		done:     make(chan struct{}),
	}
	for _, ch := range channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			c.channels[ch] = true
		}
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.Debug("SSE client registered", "clientID", c.ID, "channels", channels)
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// CloseAll ends every open stream.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()
	for c := range clients {
		c.once.Do(func() { close(c.done) })
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast never blocks; a client whose buffer is full misses the event.
func (h *Hub) Broadcast(ev bus.Event) {
	ch := Channel(ev.Type)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if len(c.channels) > 0 && !c.channels[ch] {
			continue
		}
		select {
		case c.outbound <- ev:
		default:
			h.log.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID, "event", ev.Type)
		}
	}
}

// ServeHTTP streams the client's events until the request ends or the client is unregistered.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, c *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("SSE client context done", "clientID", c.ID, "err", ctx.Err())
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-c.outbound:
			raw, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, raw)
			flusher.Flush()
		}
	}
}
