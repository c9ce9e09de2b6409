package bridge

import (
	"errors"
	"sync"

	"assetserve/internal/domain"
)

var (
	// ErrChannelClosed is returned by Send after the receiving side gave up
	ErrChannelClosed = errors.New("completion receiver closed")
	// ErrAlreadySent is returned by every Send after the first
	ErrAlreadySent = errors.New("completion already sent")
)

// Completion hands exactly one response from a task body to the request
// waiting for it
type Completion struct {
	mu     sync.Mutex
	ch     chan domain.Response
	sent   bool
	closed bool
}

// NewCompletion creates an empty completion
func NewCompletion() *Completion {
	return &Completion{ch: make(chan domain.Response, 1)}
}

// Send delivers resp. It never blocks.
func (c *Completion) Send(resp domain.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrChannelClosed
	case c.sent:
		return ErrAlreadySent
	}
	c.sent = true
	c.ch <- resp
	return nil
}

// Sent reports whether a response was delivered
func (c *Completion) Sent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Close marks the receiver as gone; later sends fail with ErrChannelClosed
func (c *Completion) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// TryReceive returns the delivered response without blocking
func (c *Completion) TryReceive() (domain.Response, bool) {
	select {
	case resp := <-c.ch:
		return resp, true
	default:
		return domain.Response{}, false
	}
}
