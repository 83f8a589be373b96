package render_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/relmap/internal/adapters/render"
	"github.com/okian/relmap/internal/domain/cluster"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/projection"
	"github.com/okian/relmap/internal/domain/trace"
	. "github.com/smartystreets/goconvey/convey"
)

type slowAdapter struct {
	readyAfter time.Time
	calls      atomic.Int64
}

func (s *slowAdapter) Ready() bool {
	s.calls.Add(1)
	return time.Now().After(s.readyAfter)
}

func (s *slowAdapter) Render(trace.Output) ([]byte, error) { return []byte("{}"), nil }

func sampleOutput() trace.Output {
	b := trace.NewBuilder()
	home := model.Home{Coordinates: model.Coordinates{Lat: 39.7, Lon: -104.8}, Label: "Lab"}
	loc := model.Coordinates{Lat: 40, Lon: -105}
	items := []cluster.Item{{
		Record:   model.Record{Name: "A", Location: &loc},
		Status:   model.StatusCurrent,
		Type:     model.TypeCollaborator,
		Location: loc,
		Count:    1,
		Names:    []string{"A"},
	}}
	return b.Build(home, items, trace.State{ShowCurrent: true, View: projection.ViewRegion, Scope: "usa"})
}

func TestPlotlyRender(t *testing.T) {
	Convey("Given the scattergeo adapter", t, func() {
		p := render.NewPlotly()

		Convey("Then it is immediately ready", func() {
			So(p.Ready(), ShouldBeTrue)
		})

		Convey("When rendering a derivation pass", func() {
			data, err := p.Render(sampleOutput())

			Convey("Then the figure decodes and carries the layout scope", func() {
				So(err, ShouldBeNil)
				var fig map[string]any
				So(json.Unmarshal(data, &fig), ShouldBeNil)
				layout := fig["layout"].(map[string]any)
				geo := layout["geo"].(map[string]any)
				So(geo["scope"], ShouldEqual, "usa")
				So(len(fig["data"].([]any)), ShouldEqual, 6)
			})

			Convey("Then rendering twice yields byte-identical output", func() {
				So(err, ShouldBeNil)
				again, err2 := p.Render(sampleOutput())
				So(err2, ShouldBeNil)
				So(string(again), ShouldEqual, string(data))
			})
		})
	})
}

func TestAwait(t *testing.T) {
	Convey("Given adapters with different readiness", t, func() {
		Convey("When the adapter is ready immediately", func() {
			err := render.Await(context.Background(), render.NewPlotly(), 100*time.Millisecond)

			Convey("Then Await returns at once", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the adapter becomes ready inside the window", func() {
			a := &slowAdapter{readyAfter: time.Now().Add(80 * time.Millisecond)}
			err := render.Await(context.Background(), a, time.Second)

			Convey("Then Await succeeds after polling", func() {
				So(err, ShouldBeNil)
				So(a.calls.Load(), ShouldBeGreaterThan, 1)
			})
		})

		Convey("When the adapter never becomes ready", func() {
			a := &slowAdapter{readyAfter: time.Now().Add(time.Hour)}
			err := render.Await(context.Background(), a, 120*time.Millisecond)

			Convey("Then the bounded wait reports unavailability", func() {
				So(err, ShouldEqual, render.ErrUnavailable)
			})
		})

		Convey("When the adapter is nil", func() {
			So(render.Await(context.Background(), nil, time.Second), ShouldEqual, render.ErrUnavailable)
		})
	})
}
