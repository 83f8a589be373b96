// Package worker runs the serialized derivation loop of a map instance.
package worker

import (
	"context"
	"time"

	"github.com/okian/relmap/internal/adapters/mq/queue"
	"github.com/okian/relmap/pkg/logger"
	"github.com/okian/relmap/pkg/metrics"
)

// Default loop configuration constants.
const (
	shutdownTimeout = 5 * time.Second
)

// Deriver re-runs the classify/filter/cluster/trace pipeline for the
// instance's current state. Each call is a full re-derivation; there are
// no partial updates.
type Deriver interface {
	Derive(ctx context.Context, kind string)
}

// Loop consumes change notifications and triggers derivations one at a
// time, keeping each instance single-threaded.
type Loop struct {
	queue   *queue.Coalescing
	deriver Deriver
	name    string
	done    chan struct{}
	logger  logger.Logger
}

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName names the loop for logging.
func WithName(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New creates a derivation loop.
func New(q *queue.Coalescing, d Deriver, opts ...Option) *Loop {
	l := &Loop{
		queue:   q,
		deriver: d,
		name:    "derive",
		done:    make(chan struct{}),
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run consumes notifications until the context is canceled or the queue
// is closed.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-l.queue.Wait():
			if !open {
				return
			}
			kind, ok := l.queue.Take()
			if !ok {
				continue
			}
			start := time.Now()
			l.deriver.Derive(ctx, kind)
			elapsed := float64(time.Since(start).Microseconds()) / 1000
			metrics.RecordDeriveCycle()
			metrics.RecordDeriveLatency(elapsed)
			l.logger.Debug(ctx, "derivation complete",
				logger.String("loop", l.name),
				logger.String("kind", kind),
				logger.Float64("ms", elapsed),
			)
		}
	}
}

// Shutdown closes the queue and waits for the loop to drain.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.queue.Close()

	timeout := time.NewTimer(shutdownTimeout)
	defer timeout.Stop()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return ErrShutdownTimeout
	}
}
