package queue_test

import (
	"context"
	"testing"

	"github.com/okian/relmap/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCoalescing(t *testing.T) {
	Convey("Given a fresh coalescing queue", t, func() {
		q := queue.NewCoalescing()
		ctx := context.Background()

		Convey("When notifying once", func() {
			ok := q.Notify(ctx, "state")

			Convey("Then one wakeup and the kind are available", func() {
				So(ok, ShouldBeTrue)
				<-q.Wait()
				kind, has := q.Take()
				So(has, ShouldBeTrue)
				So(kind, ShouldEqual, "state")
			})
		})

		Convey("When notifying in a burst", func() {
			So(q.Notify(ctx, "state"), ShouldBeTrue)
			So(q.Notify(ctx, "playback"), ShouldBeTrue)
			So(q.Notify(ctx, "reset"), ShouldBeTrue)

			Convey("Then the burst coalesces and the latest kind wins", func() {
				<-q.Wait()
				kind, has := q.Take()
				So(has, ShouldBeTrue)
				So(kind, ShouldEqual, "reset")

				// No second pending notification.
				_, has = q.Take()
				So(has, ShouldBeFalse)
				select {
				case <-q.Wait():
					// A second buffered wakeup may exist; it must find
					// nothing pending.
					_, has = q.Take()
					So(has, ShouldBeFalse)
				default:
				}
			})
		})

		Convey("When taking without a pending notification", func() {
			_, has := q.Take()

			Convey("Then nothing comes out", func() {
				So(has, ShouldBeFalse)
			})
		})

		Convey("When closing the queue", func() {
			q.Close()

			Convey("Then notifications are rejected and Wait is closed", func() {
				So(q.Notify(ctx, "state"), ShouldBeFalse)
				So(q.IsClosed(), ShouldBeTrue)
				_, open := <-q.Wait()
				So(open, ShouldBeFalse)
			})

			Convey("Then closing twice is safe", func() {
				So(q.Close, ShouldNotPanic)
			})
		})
	})
}
