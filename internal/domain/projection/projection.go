// Package projection picks the default map projection from the shape of
// the coordinate set.
package projection

import (
	"github.com/okian/relmap/internal/domain/model"
)

// Default chooser configuration. The threshold is a heuristic: when at
// least this share of mappable records falls inside the configured country
// bounding box, the map opens country-scoped instead of world-scoped. The
// user can override the choice at any time.
const (
	defaultThreshold = 0.65
	defaultScope     = "usa"
)

// defaultBounds covers the United States including Alaska and Hawaii.
var defaultBounds = Bounds{MinLat: 18, MaxLat: 72, MinLon: -180, MaxLon: -66}

// View is the projection the map renders with.
type View string

// Projection views.
const (
	ViewWorld  View = "world"
	ViewRegion View = "region"
)

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether the coordinate falls inside the box.
func (b Bounds) Contains(c model.Coordinates) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// Chooser computes the default view for a record set.
type Chooser struct {
	threshold float64
	scope     string
	bounds    Bounds
}

// Option applies a configuration option to the Chooser.
type Option func(*Chooser)

// WithThreshold sets the in-country share required for a region default.
func WithThreshold(t float64) Option {
	return func(c *Chooser) {
		if t > 0 && t <= 1 {
			c.threshold = t
		}
	}
}

// WithRegion sets the region scope name and its bounding box. The scope
// name is passed through to the render layout (e.g. "usa", "europe").
func WithRegion(scope string, bounds Bounds) Option {
	return func(c *Chooser) {
		if scope != "" {
			c.scope = scope
			c.bounds = bounds
		}
	}
}

// New creates a Chooser with configuration options.
func New(opts ...Option) *Chooser {
	c := &Chooser{
		threshold: defaultThreshold,
		scope:     defaultScope,
		bounds:    defaultBounds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scope returns the region scope name for render layouts.
func (c *Chooser) Scope() string { return c.scope }

// Default inspects the mappable records and returns the view to open with:
// region-scoped when the in-bounds share reaches the threshold, world
// otherwise. An empty or unmappable set defaults to world.
func (c *Chooser) Default(records []model.Record) View {
	mappable, inBounds := 0, 0
	for _, rec := range records {
		if !rec.Mappable() {
			continue
		}
		mappable++
		if c.bounds.Contains(*rec.Location) {
			inBounds++
		}
	}
	if mappable == 0 {
		return ViewWorld
	}
	if float64(inBounds)/float64(mappable) >= c.threshold {
		return ViewRegion
	}
	return ViewWorld
}
