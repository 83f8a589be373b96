// Package render converts trace output into the wire format of the
// external geographic plotting library. The library's contract is
// consumed here, not owned.
package render

import (
	"context"
	"time"

	"github.com/okian/relmap/internal/domain/trace"
)

// Default availability polling configuration.
const (
	defaultPollInterval = 50 * time.Millisecond
)

// Adapter is the render boundary. Ready reports whether the underlying
// library can accept a render; Render encodes one derivation pass.
type Adapter interface {
	Ready() bool
	Render(out trace.Output) ([]byte, error)
}

// Await polls the adapter until it is ready or the timeout elapses. The
// wait is bounded so a missing library surfaces as a diagnostic instead of
// hanging the instance.
func Await(ctx context.Context, a Adapter, timeout time.Duration) error {
	if a == nil {
		return ErrUnavailable
	}
	if a.Ready() {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(defaultPollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrUnavailable
		case <-tick.C:
			if a.Ready() {
				return nil
			}
		}
	}
}
