// Package trace turns declustered records into named renderable groups:
// markers, connection lines, labels and the home anchor.
package trace

import (
	"fmt"
	"strings"

	"github.com/okian/relmap/internal/domain/cluster"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/projection"
)

// Default builder configuration constants.
const (
	// defaultLabelBreakpoint is the viewport width in px below which
	// institution labels default to hidden for legibility.
	defaultLabelBreakpoint = 768
)

// Kind discriminates the group payload shape.
type Kind string

// Group kinds.
const (
	KindHome   Kind = "home"
	KindMarker Kind = "marker"
	KindLine   Kind = "line"
	KindLabel  Kind = "label"
)

// Custom is the back-reference payload attached to each marker so a click
// can navigate to the underlying record.
type Custom struct {
	Name  string `json:"name"`
	Link  string `json:"link,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Marker is one renderable point with hover text.
type Marker struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Text   string  `json:"text"`
	Custom Custom  `json:"custom"`
}

// Segment is one home-to-record connection line.
type Segment struct {
	FromLat float64 `json:"from_lat"`
	FromLon float64 `json:"from_lon"`
	ToLat   float64 `json:"to_lat"`
	ToLon   float64 `json:"to_lon"`
}

// Group is a named renderable layer with a visibility flag driven by the
// current toggle state.
type Group struct {
	Name     string       `json:"name"`
	Kind     Kind         `json:"kind"`
	Status   model.Status `json:"status,omitempty"`
	Visible  bool         `json:"visible"`
	Dashed   bool         `json:"dashed,omitempty"`
	Markers  []Marker     `json:"markers,omitempty"`
	Segments []Segment    `json:"segments,omitempty"`
}

// Output is a complete render pass: groups plus the layout hints the
// render adapter needs.
type Output struct {
	Groups []Group         `json:"groups"`
	View   projection.View `json:"view"`
	Scope  string          `json:"scope"`
	Home   model.Home      `json:"home"`
}

// State is the slice of view state the builder consumes.
type State struct {
	ShowCurrent   bool
	ShowPast      bool
	ShowLabels    bool
	View          projection.View
	Scope         string
	ViewportWidth int
}

// Builder assembles trace output from declustered items.
type Builder struct {
	siteRoot        string
	labelBreakpoint int
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithSiteRoot sets the prefix relative record links resolve against.
func WithSiteRoot(root string) Option {
	return func(b *Builder) {
		b.siteRoot = strings.TrimRight(root, "/")
	}
}

// WithLabelBreakpoint sets the viewport width below which labels default
// to hidden.
func WithLabelBreakpoint(px int) Option {
	return func(b *Builder) {
		if px > 0 {
			b.labelBreakpoint = px
		}
	}
}

// NewBuilder creates a Builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		labelBreakpoint: defaultLabelBreakpoint,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultShowLabels is the context-sensitive label default: hidden on
// narrow viewports. A zero width means the client never reported one and
// gets labels.
func (b *Builder) DefaultShowLabels(viewportWidth int) bool {
	return viewportWidth == 0 || viewportWidth >= b.labelBreakpoint
}

// ResolveLink resolves a record link against the site root unless it is
// already absolute.
func (b *Builder) ResolveLink(link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return b.siteRoot + "/" + strings.TrimLeft(link, "/")
}

// Build assembles the render groups for one derivation pass. Group order
// is fixed (home, markers, lines, labels) so identical input yields
// byte-identical encoded output.
func (b *Builder) Build(home model.Home, items []cluster.Item, st State) Output {
	groups := []Group{b.homeGroup(home)}

	for _, status := range []model.Status{model.StatusCurrent, model.StatusPast} {
		groups = append(groups, b.markerGroup(items, status, st))
	}
	for _, status := range []model.Status{model.StatusCurrent, model.StatusPast} {
		groups = append(groups, b.lineGroup(home, items, status, st))
	}
	groups = append(groups, b.labelGroup(items, st))

	return Output{
		Groups: groups,
		View:   st.View,
		Scope:  st.Scope,
		Home:   home,
	}
}

// homeGroup is always rendered and never filtered.
func (b *Builder) homeGroup(home model.Home) Group {
	label := home.Label
	if label == "" {
		label = "Home"
	}
	return Group{
		Name:    "home",
		Kind:    KindHome,
		Visible: true,
		Markers: []Marker{{
			Lat:    home.Lat,
			Lon:    home.Lon,
			Text:   fmt.Sprintf("<b>%s</b>", label),
			Custom: Custom{Name: label},
		}},
	}
}

func (b *Builder) markerGroup(items []cluster.Item, status model.Status, st State) Group {
	g := Group{
		Name:    string(status),
		Kind:    KindMarker,
		Status:  status,
		Visible: statusVisible(status, st),
	}
	for _, it := range items {
		if it.Status != status {
			continue
		}
		g.Markers = append(g.Markers, Marker{
			Lat:  it.Location.Lat,
			Lon:  it.Location.Lon,
			Text: b.hoverText(it),
			Custom: Custom{
				Name:  it.Record.Name,
				Link:  b.ResolveLink(it.Link),
				Count: aggregateCount(it),
			},
		})
	}
	return g
}

// lineGroup draws a connection from home to every marker of the status.
// Past connections render dashed.
func (b *Builder) lineGroup(home model.Home, items []cluster.Item, status model.Status, st State) Group {
	g := Group{
		Name:    string(status) + "-connections",
		Kind:    KindLine,
		Status:  status,
		Dashed:  status == model.StatusPast,
		Visible: statusVisible(status, st),
	}
	for _, it := range items {
		if it.Status != status {
			continue
		}
		g.Segments = append(g.Segments, Segment{
			FromLat: home.Lat,
			FromLon: home.Lon,
			ToLat:   it.Location.Lat,
			ToLon:   it.Location.Lon,
		})
	}
	return g
}

// labelGroup emits one text label per unique institution coordinate,
// deduplicated by coordinate and name so the same institution is never
// labeled twice.
func (b *Builder) labelGroup(items []cluster.Item, st State) Group {
	g := Group{
		Name:    "labels",
		Kind:    KindLabel,
		Visible: st.ShowLabels,
	}
	seen := make(map[string]struct{})
	for _, it := range items {
		name := it.Record.Place.Institution
		if it.Type == model.TypeInstitution {
			name = it.Record.Name
		}
		if name == "" {
			continue
		}
		key := fmt.Sprintf("%.4f,%.4f|%s", it.Location.Lat, it.Location.Lon, strings.ToLower(name))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g.Markers = append(g.Markers, Marker{
			Lat:    it.Location.Lat,
			Lon:    it.Location.Lon,
			Text:   name,
			Custom: Custom{Name: name},
		})
	}
	return g
}

// hoverText templates the marker hover: name, place line, status, tag
// pills, and constituent names for aggregates.
func (b *Builder) hoverText(it cluster.Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>", it.Record.Name)
	if it.Aggregate {
		fmt.Fprintf(&sb, "<br>%d at this location: %s", it.Count, strings.Join(it.Names, ", "))
	}
	if it.PlaceLine != "" {
		fmt.Fprintf(&sb, "<br>%s", it.PlaceLine)
	}
	if it.Status != "" {
		fmt.Fprintf(&sb, "<br>status: %s", it.Status)
	}
	if len(it.Record.Tags) > 0 {
		pills := make([]string, 0, len(it.Record.Tags))
		for _, t := range it.Record.Tags {
			pills = append(pills, "["+t+"]")
		}
		fmt.Fprintf(&sb, "<br>%s", strings.Join(pills, " "))
	}
	if it.Record.PubCount > 0 {
		fmt.Fprintf(&sb, "<br>publications: %d", it.Record.PubCount)
	}
	return sb.String()
}

func statusVisible(status model.Status, st State) bool {
	if status == model.StatusPast {
		return st.ShowPast
	}
	return st.ShowCurrent
}

func aggregateCount(it cluster.Item) int {
	if it.Aggregate {
		return it.Count
	}
	return 0
}
