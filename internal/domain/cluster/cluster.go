// Package cluster deduplicates records sharing a rounded coordinate,
// either merging them into one aggregate marker or jittering them onto a
// small ring so each stays individually visible.
package cluster

import (
	"fmt"
	"math"

	"github.com/okian/relmap/internal/domain/model"
)

// Default clustering configuration constants. The precision is deliberately
// coarse: 4 decimal places is roughly 11 m, enough to catch same-building
// duplicates without pretending to survey-grade distinctness.
const (
	defaultPrecision    = 4
	defaultJitterRadius = 0.12 // degrees
	maxJitterLatitude   = 85.0 // keep ring layout away from pole wrap
)

// Mode selects how coincident records are resolved.
type Mode string

// Clustering modes.
const (
	// ModeCluster collapses a coincident group into one aggregate marker.
	ModeCluster Mode = "cluster"
	// ModeJitter spreads a coincident group on a ring around the shared
	// point so every record stays clickable.
	ModeJitter Mode = "jitter"
)

// Input is one classified, filtered, mappable record entering the
// clusterer.
type Input struct {
	Record model.Record
	Status model.Status
	Type   model.EntityType
}

// Item is one renderable output: either a single record or an aggregate.
type Item struct {
	Record    model.Record
	Status    model.Status
	Type      model.EntityType
	Location  model.Coordinates
	Count     int
	Names     []string
	PlaceLine string
	Link      string
	Aggregate bool
}

// Clusterer groups records by rounded coordinates within the same status
// and type group, so e.g. a current and a past collaborator at the same
// address stay separately visible.
type Clusterer struct {
	precision    int
	jitterRadius float64
}

// Option applies a configuration option to the Clusterer.
type Option func(*Clusterer)

// WithPrecision sets the number of coordinate decimals used as the
// grouping key.
func WithPrecision(decimals int) Option {
	return func(c *Clusterer) {
		if decimals >= 0 {
			c.precision = decimals
		}
	}
}

// WithJitterRadius sets the angular ring radius in degrees.
func WithJitterRadius(radius float64) Option {
	return func(c *Clusterer) {
		if radius > 0 {
			c.jitterRadius = radius
		}
	}
}

// New creates a Clusterer with configuration options.
func New(opts ...Option) *Clusterer {
	c := &Clusterer{
		precision:    defaultPrecision,
		jitterRadius: defaultJitterRadius,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the rounded grouping key for a coordinate.
func (c *Clusterer) Key(loc model.Coordinates) string {
	return fmt.Sprintf("%.*f,%.*f", c.precision, c.round(loc.Lat), c.precision, c.round(loc.Lon))
}

// Apply resolves coincident records per the mode. It is a pure function of
// its input: the same inputs always yield the same items in the same
// order, and switching modes never requires re-running the filter pipeline.
func (c *Clusterer) Apply(inputs []Input, mode Mode) []Item {
	type group struct {
		members []Input
		loc     model.Coordinates
	}

	order := make([]string, 0, len(inputs))
	groups := make(map[string]*group)

	for _, in := range inputs {
		if !in.Record.Mappable() {
			continue
		}
		key := c.Key(*in.Record.Location) + "|" + string(in.Status) + "|" + string(in.Type)
		g, ok := groups[key]
		if !ok {
			g = &group{loc: model.Coordinates{
				Lat: c.round(in.Record.Location.Lat),
				Lon: c.round(in.Record.Location.Lon),
			}}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, in)
	}

	items := make([]Item, 0, len(inputs))
	for _, key := range order {
		g := groups[key]
		if len(g.members) == 1 {
			items = append(items, singleton(g.members[0], g.loc))
			continue
		}
		switch mode {
		case ModeJitter:
			items = append(items, c.jitterRing(g.members, g.loc)...)
		default:
			items = append(items, aggregate(g.members, g.loc))
		}
	}
	return items
}

// GroupCount returns how many coincident groups of size > 1 exist in the
// input. Used for diagnostics and metrics only.
func (c *Clusterer) GroupCount(inputs []Input) int {
	sizes := make(map[string]int)
	for _, in := range inputs {
		if !in.Record.Mappable() {
			continue
		}
		key := c.Key(*in.Record.Location) + "|" + string(in.Status) + "|" + string(in.Type)
		sizes[key]++
	}
	n := 0
	for _, size := range sizes {
		if size > 1 {
			n++
		}
	}
	return n
}

func (c *Clusterer) round(v float64) float64 {
	scale := math.Pow10(c.precision)
	return math.Round(v*scale) / scale
}

func singleton(in Input, loc model.Coordinates) Item {
	return Item{
		Record:    in.Record,
		Status:    in.Status,
		Type:      in.Type,
		Location:  loc,
		Count:     1,
		Names:     []string{in.Record.Name},
		PlaceLine: in.Record.Place.Line(),
		Link:      in.Record.Link,
	}
}

// aggregate collapses a group into one synthetic record. Summable numeric
// fields are summed; links are dropped because the click target would be
// ambiguous.
func aggregate(members []Input, loc model.Coordinates) Item {
	names := make([]string, 0, len(members))
	pubs := 0
	for _, m := range members {
		names = append(names, m.Record.Name)
		pubs += m.Record.PubCount
	}
	rep := members[0].Record
	rec := model.Record{
		Name:     fmt.Sprintf("%s (+%d)", rep.Name, len(members)-1),
		Place:    rep.Place,
		PubCount: pubs,
	}
	return Item{
		Record:    rec,
		Status:    members[0].Status,
		Type:      members[0].Type,
		Location:  loc,
		Count:     len(members),
		Names:     names,
		PlaceLine: rep.Place.Line(),
		Aggregate: true,
	}
}

// jitterRing lays the group out on a circle around the shared point. The
// longitude offset is divided by cos(latitude) so the visual spread stays
// roughly circular at high latitudes; the base latitude is clamped away
// from the poles first and the longitude wraps across the antimeridian.
func (c *Clusterer) jitterRing(members []Input, loc model.Coordinates) []Item {
	baseLat := clamp(loc.Lat, -maxJitterLatitude, maxJitterLatitude)
	lonScale := math.Cos(baseLat * math.Pi / 180)
	if lonScale < 0.05 {
		lonScale = 0.05
	}

	items := make([]Item, 0, len(members))
	for i, m := range members {
		theta := 2 * math.Pi * float64(i) / float64(len(members))
		jittered := model.Coordinates{
			Lat: clamp(baseLat+c.jitterRadius*math.Sin(theta), -90, 90),
			Lon: wrapLongitude(loc.Lon + c.jitterRadius*math.Cos(theta)/lonScale),
		}
		item := singleton(m, jittered)
		items = append(items, item)
	}
	return items
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// wrapLongitude maps a longitude into [-180, 180).
func wrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
