// Package hub fans service events out to Server-Sent Events clients.
//
// Every frame carries a sequence id and an event name. A client that
// connects after an event was sent receives the most recent frame first, so
// a dashboard opened between runs still learns the current run id.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type frame struct {
	seq  uint64
	data []byte
}

type client struct {
	id     string
	frames chan []byte
}

type message struct {
	name    string
	payload any
}

// Hub manages SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	last    *frame

	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}

	logger    zerolog.Logger
	keepAlive time.Duration
	seq       uint64
}

// New creates a new Hub
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		logger:     logger,
		keepAlive:  30 * time.Second,
	}
}

// Run owns the client set. It returns when ctx is cancelled, closing every
// client stream.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			if h.last != nil {
				c.frames <- h.last.data
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Str("client", c.id).Int("total", total).Msg("SSE client connected")

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			f, err := h.encode(msg)
			if err != nil {
				h.logger.Error().Err(err).Str("event", msg.name).Msg("failed to encode event")
				continue
			}
			h.fanOut(f)

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.frames)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) encode(msg message) (*frame, error) {
	data, err := json.Marshal(msg.payload)
	if err != nil {
		return nil, err
	}
	h.seq++
	return &frame{
		seq:  h.seq,
		data: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, msg.name, data)),
	}, nil
}

func (h *Hub) fanOut(f *frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = f
	for c := range h.clients {
		select {
		case c.frames <- f.data:
		default:
			h.logger.Warn().Str("client", c.id).Uint64("seq", f.seq).Msg("SSE client is slow, skipping event")
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.frames)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Str("client", c.id).Int("total", total).Msg("SSE client disconnected")
}

// Broadcast queues payload as a JSON event named name. It never blocks.
func (h *Hub) Broadcast(name string, payload any) {
	select {
	case h.broadcast <- message{name: name, payload: payload}:
	default:
		h.logger.Warn().Str("event", name).Msg("broadcast queue full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LastID returns the sequence id of the most recent event, 0 before any
func (h *Hub) LastID() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return 0
	}
	return h.last.seq
}

// ServeHTTP streams events to one client until it disconnects or the hub
// stops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := &client{
		id:     strconv.FormatInt(time.Now().UnixNano(), 36),
		frames: make(chan []byte, 64),
	}

	select {
	case h.register <- c:
	case <-h.done:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	fmt.Fprint(w, "retry: 5000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.frames:
			if !ok {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
