// Package hub pushes server events to browsers over Server-Sent Events.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeepAlive is the interval between keep-alive comments
var KeepAlive = 30 * time.Second

const (
	pendingEvents  = 256
	perClientQueue = 64
)

type stream struct {
	id  string
	out chan []byte
}

// Hub fans broadcast events out to every open event stream. Streams are
// added and removed only by the Run loop.
type Hub struct {
	mu      sync.RWMutex
	streams map[*stream]struct{}

	join    chan *stream
	leave   chan *stream
	pending chan any
	done    chan struct{}

	log *zap.Logger
}

// New creates a hub; Run must be started before streams are served
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		streams: make(map[*stream]struct{}),
		join:    make(chan *stream),
		leave:   make(chan *stream),
		pending: make(chan any, pendingEvents),
		done:    make(chan struct{}),
		log:     logger.Named("hub"),
	}
}

// Run owns the stream set until ctx is done; open streams are then ended
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case s := <-h.join:
			h.mu.Lock()
			h.streams[s] = struct{}{}
			n := len(h.streams)
			h.mu.Unlock()
			h.log.Debug("stream opened", zap.String("stream", s.id), zap.Int("open", n))

		case s := <-h.leave:
			h.drop(s)

		case ev := <-h.pending:
			h.fanOut(ev)

		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.streams {
				delete(h.streams, s)
				close(s.out)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(s *stream) {
	h.mu.Lock()
	_, ok := h.streams[s]
	if ok {
		delete(h.streams, s)
		close(s.out)
	}
	n := len(h.streams)
	h.mu.Unlock()
	if ok {
		h.log.Debug("stream closed", zap.String("stream", s.id), zap.Int("open", n))
	}
}

func (h *Hub) fanOut(ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("unencodable event", zap.Error(err))
		return
	}
	frame := []byte("data: " + string(data) + "\n\n")

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.streams {
		select {
		case s.out <- frame:
		default:
			h.log.Warn("stream lagging, event skipped", zap.String("stream", s.id))
		}
	}
}

// Broadcast queues ev for every open stream. It never blocks; events are
// dropped while the queue is full.
func (h *Hub) Broadcast(ev any) {
	select {
	case h.pending <- ev:
	default:
		h.log.Warn("event queue full, event dropped")
	}
}

// ClientCount returns the number of open streams
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// ServeHTTP streams events to one client until it disconnects or the hub
// stops
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s := &stream{id: uuid.NewString(), out: make(chan []byte, perClientQueue)}
	select {
	case h.join <- s:
	case <-h.done:
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.leave <- s:
		case <-h.done:
		}
	}()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	tick := time.NewTicker(KeepAlive)
	defer tick.Stop()
	for {
		var frame []byte
		select {
		case f, open := <-s.out:
			if !open {
				return
			}
			frame = f
		case <-tick.C:
			frame = []byte(": keepalive\n\n")
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		flusher.Flush()
	}
}
