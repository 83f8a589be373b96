package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/relmap/internal/adapters/mq/queue"
	"github.com/okian/relmap/internal/adapters/mq/worker"
	"github.com/okian/relmap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingDeriver struct {
	mu    sync.Mutex
	kinds []string
}

func (d *recordingDeriver) Derive(_ context.Context, kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
}

func (d *recordingDeriver) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.kinds))
	copy(out, d.kinds)
	return out
}

func TestLoop(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	Convey("Given a derivation loop on a coalescing queue", t, func() {
		q := queue.NewCoalescing()
		d := &recordingDeriver{}
		l := worker.New(q, d, worker.WithName("map-test"))

		ctx, cancel := context.WithCancel(context.Background())
		go l.Run(ctx)

		Convey("When a change is notified", func() {
			So(q.Notify(ctx, "state"), ShouldBeTrue)

			Convey("Then a derivation runs with that kind", func() {
				So(func() []string { return d.snapshot() }, shouldEventuallyHaveLength, 1)
				So(d.snapshot()[0], ShouldEqual, "state")
			})
		})

		Convey("When shutting down", func() {
			err := l.Shutdown(context.Background())

			Convey("Then the loop drains cleanly", func() {
				So(err, ShouldBeNil)
			})
		})

		Reset(func() {
			cancel()
		})
	})
}

// shouldEventuallyHaveLength polls the supplied func until the returned
// slice reaches the wanted length or a deadline passes.
func shouldEventuallyHaveLength(actual any, expected ...any) string {
	get, ok := actual.(func() []string)
	if !ok {
		return "actual must be func() []string"
	}
	want, ok := expected[0].(int)
	if !ok {
		return "expected must be int"
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(get()) >= want {
			return ""
		}
		time.Sleep(5 * time.Millisecond)
	}
	return "timed out waiting for derivations"
}
