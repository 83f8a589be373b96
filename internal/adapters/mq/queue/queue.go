// Package queue provides the change queue feeding an instance's
// derivation loop.
//
// The queue coalesces: a burst of UI events while a derivation is in
// flight collapses into one pending notification, so the next cycle picks
// up the latest state and staleness is self-correcting. No cancellation
// tokens are needed.
package queue

import (
	"context"
	"sync"
)

// Coalescing is a latest-wins notification queue of depth one.
type Coalescing struct {
	mu      sync.Mutex
	pending string
	has     bool
	signal  chan struct{}
	closed  bool
}

// Option applies a configuration option to the Coalescing queue.
type Option func(*Coalescing)

// NewCoalescing creates a change queue.
func NewCoalescing(opts ...Option) *Coalescing {
	q := &Coalescing{
		signal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Notify records that the view state changed. kind names the transition
// for logging ("state", "playback", "reset", ...). Later kinds replace
// earlier pending ones. Returns false once the queue is closed.
func (q *Coalescing) Notify(_ context.Context, kind string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = kind
	q.has = true
	select {
	case q.signal <- struct{}{}:
	default:
		// A wakeup is already pending; the new kind rides along.
	}
	return true
}

// Wait returns the wakeup channel. After a receive, call Take to pop the
// pending kind.
func (q *Coalescing) Wait() <-chan struct{} {
	return q.signal
}

// Take pops the pending transition kind, if any.
func (q *Coalescing) Take() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.has {
		return "", false
	}
	kind := q.pending
	q.pending = ""
	q.has = false
	return kind, true
}

// Close shuts the queue down. Pending notifications are dropped.
func (q *Coalescing) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.has = false
	close(q.signal)
}

// IsClosed reports whether the queue has been closed.
func (q *Coalescing) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
