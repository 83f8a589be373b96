package trace_test

import (
	"testing"

	"github.com/okian/relmap/internal/domain/cluster"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/projection"
	"github.com/okian/relmap/internal/domain/trace"
	. "github.com/smartystreets/goconvey/convey"
)

func item(name string, lat, lon float64, status model.Status) cluster.Item {
	return cluster.Item{
		Record:   model.Record{Name: name, Tags: []string{"collaborator"}},
		Status:   status,
		Type:     model.TypeCollaborator,
		Location: model.Coordinates{Lat: lat, Lon: lon},
		Count:    1,
		Names:    []string{name},
	}
}

func groupByName(out trace.Output, name string) trace.Group {
	for _, g := range out.Groups {
		if g.Name == name {
			return g
		}
	}
	return trace.Group{}
}

func TestBuildDefaultScenario(t *testing.T) {
	Convey("Given two same-coordinate records in different status groups", t, func() {
		b := trace.NewBuilder()
		home := model.Home{Coordinates: model.Coordinates{Lat: 0, Lon: 0}, Label: "Home"}
		items := []cluster.Item{
			item("A", 10, 10, model.StatusCurrent),
			item("B", 10, 10, model.StatusPast),
		}

		Convey("When building with current and past shown", func() {
			out := b.Build(home, items, trace.State{
				ShowCurrent: true,
				ShowPast:    true,
				View:        projection.ViewWorld,
			})

			Convey("Then two markers and two connection segments come out", func() {
				markers := 0
				segments := 0
				for _, g := range out.Groups {
					if g.Kind == trace.KindMarker && g.Visible {
						markers += len(g.Markers)
					}
					if g.Kind == trace.KindLine && g.Visible {
						segments += len(g.Segments)
					}
				}
				So(markers, ShouldEqual, 2)
				So(segments, ShouldEqual, 2)
			})

			Convey("Then past connections are dashed and current solid", func() {
				So(groupByName(out, "past-connections").Dashed, ShouldBeTrue)
				So(groupByName(out, "current-connections").Dashed, ShouldBeFalse)
			})

			Convey("Then the home marker is present and always visible", func() {
				homeGroup := groupByName(out, "home")
				So(homeGroup.Visible, ShouldBeTrue)
				So(len(homeGroup.Markers), ShouldEqual, 1)
				So(homeGroup.Markers[0].Lat, ShouldEqual, 0)
			})
		})

		Convey("When the past toggle is disabled", func() {
			out := b.Build(home, items, trace.State{
				ShowCurrent: true,
				ShowPast:    false,
				View:        projection.ViewWorld,
			})

			Convey("Then only one visible marker and one visible line remain", func() {
				markers := 0
				segments := 0
				for _, g := range out.Groups {
					if g.Kind == trace.KindMarker && g.Visible {
						markers += len(g.Markers)
					}
					if g.Kind == trace.KindLine && g.Visible {
						segments += len(g.Segments)
					}
				}
				So(markers, ShouldEqual, 1)
				So(segments, ShouldEqual, 1)
			})
		})
	})
}

func TestHoverTextAndLinks(t *testing.T) {
	Convey("Given a builder with a site root", t, func() {
		b := trace.NewBuilder(trace.WithSiteRoot("https://example.org/site/"))

		Convey("When resolving links", func() {
			Convey("Then relative links get the prefix", func() {
				So(b.ResolveLink("/people/a"), ShouldEqual, "https://example.org/site/people/a")
				So(b.ResolveLink("people/a"), ShouldEqual, "https://example.org/site/people/a")
			})

			Convey("Then absolute links pass through", func() {
				So(b.ResolveLink("https://other.org/x"), ShouldEqual, "https://other.org/x")
			})

			Convey("Then empty links stay empty", func() {
				So(b.ResolveLink(""), ShouldEqual, "")
			})
		})

		Convey("When building hover text for an aggregate", func() {
			home := model.Home{Coordinates: model.Coordinates{Lat: 0, Lon: 0}}
			agg := cluster.Item{
				Record:    model.Record{Name: "U (+2)", PubCount: 7},
				Status:    model.StatusCurrent,
				Type:      model.TypeCollaborator,
				Location:  model.Coordinates{Lat: 40, Lon: -105},
				Count:     3,
				Names:     []string{"U", "V", "W"},
				PlaceLine: "State University, Boulder",
				Aggregate: true,
			}
			out := b.Build(home, []cluster.Item{agg}, trace.State{ShowCurrent: true})
			g := groupByName(out, "current")

			Convey("Then the text carries constituents, place, status and counts", func() {
				So(len(g.Markers), ShouldEqual, 1)
				So(g.Markers[0].Text, ShouldContainSubstring, "3 at this location: U, V, W")
				So(g.Markers[0].Text, ShouldContainSubstring, "State University, Boulder")
				So(g.Markers[0].Text, ShouldContainSubstring, "status: current")
				So(g.Markers[0].Text, ShouldContainSubstring, "publications: 7")
				So(g.Markers[0].Custom.Count, ShouldEqual, 3)
			})
		})
	})
}

func TestLabelGroup(t *testing.T) {
	Convey("Given items at the same institution", t, func() {
		b := trace.NewBuilder()
		home := model.Home{Coordinates: model.Coordinates{Lat: 0, Lon: 0}}
		mk := func(name string) cluster.Item {
			it := item(name, 40, -105, model.StatusCurrent)
			it.Record.Place.Institution = "State University"
			return it
		}
		items := []cluster.Item{mk("A"), mk("B")}

		Convey("When labels are shown", func() {
			out := b.Build(home, items, trace.State{ShowCurrent: true, ShowLabels: true})
			labels := groupByName(out, "labels")

			Convey("Then the institution is labeled exactly once", func() {
				So(labels.Visible, ShouldBeTrue)
				So(len(labels.Markers), ShouldEqual, 1)
				So(labels.Markers[0].Text, ShouldEqual, "State University")
			})
		})

		Convey("When computing the label default for viewport widths", func() {
			Convey("Then narrow viewports suppress labels", func() {
				So(b.DefaultShowLabels(480), ShouldBeFalse)
				So(b.DefaultShowLabels(1280), ShouldBeTrue)
				So(b.DefaultShowLabels(0), ShouldBeTrue)
			})
		})
	})
}
