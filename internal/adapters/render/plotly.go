package render

import (
	json "github.com/goccy/go-json"

	"github.com/okian/relmap/internal/domain/projection"
	"github.com/okian/relmap/internal/domain/trace"
)

// scatterGeo mirrors one scattergeo trace of the plotting library.
type scatterGeo struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Mode       string         `json:"mode"`
	Lat        []*float64     `json:"lat"`
	Lon        []*float64     `json:"lon"`
	Text       []string       `json:"text,omitempty"`
	HoverInfo  string         `json:"hoverinfo,omitempty"`
	Visible    any            `json:"visible"`
	Line       *lineStyle     `json:"line,omitempty"`
	Marker     *markerStyle   `json:"marker,omitempty"`
	CustomData []trace.Custom `json:"customdata,omitempty"`
}

type lineStyle struct {
	Width float64 `json:"width"`
	Dash  string  `json:"dash,omitempty"`
}

type markerStyle struct {
	Size   int    `json:"size"`
	Symbol string `json:"symbol,omitempty"`
}

type geoLayout struct {
	Scope      string `json:"scope,omitempty"`
	Projection struct {
		Type string `json:"type"`
	} `json:"projection"`
	ShowLand bool `json:"showland"`
}

type figure struct {
	Data   []scatterGeo `json:"data"`
	Layout struct {
		Geo geoLayout `json:"geo"`
	} `json:"layout"`
}

// Plotly encodes trace output as a scattergeo figure.
type Plotly struct {
	markerSize int
	homeSize   int
}

// PlotlyOption applies a configuration option to the Plotly adapter.
type PlotlyOption func(*Plotly)

// WithMarkerSize sets the point size for record markers.
func WithMarkerSize(size int) PlotlyOption {
	return func(p *Plotly) {
		if size > 0 {
			p.markerSize = size
		}
	}
}

// NewPlotly creates the scattergeo adapter.
func NewPlotly(opts ...PlotlyOption) *Plotly {
	p := &Plotly{
		markerSize: 9,
		homeSize:   14,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ready always holds for the in-process encoder; the bounded Await poll
// exists for adapters backed by late-loading libraries.
func (p *Plotly) Ready() bool { return true }

// Render encodes one derivation pass as a figure document.
func (p *Plotly) Render(out trace.Output) ([]byte, error) {
	fig := figure{Data: make([]scatterGeo, 0, len(out.Groups))}

	for _, g := range out.Groups {
		switch g.Kind {
		case trace.KindLine:
			fig.Data = append(fig.Data, p.lineTrace(g))
		case trace.KindLabel:
			fig.Data = append(fig.Data, p.textTrace(g))
		case trace.KindHome:
			fig.Data = append(fig.Data, p.markerTrace(g, p.homeSize, "star"))
		default:
			fig.Data = append(fig.Data, p.markerTrace(g, p.markerSize, ""))
		}
	}

	fig.Layout.Geo.ShowLand = true
	if out.View == projection.ViewRegion {
		fig.Layout.Geo.Scope = out.Scope
		fig.Layout.Geo.Projection.Type = "albers usa"
		if out.Scope != "usa" {
			fig.Layout.Geo.Projection.Type = "mercator"
		}
	} else {
		fig.Layout.Geo.Projection.Type = "natural earth"
	}

	return json.Marshal(fig)
}

func (p *Plotly) markerTrace(g trace.Group, size int, symbol string) scatterGeo {
	sg := scatterGeo{
		Type:      "scattergeo",
		Name:      g.Name,
		Mode:      "markers",
		Visible:   visibility(g.Visible),
		HoverInfo: "text",
		Marker:    &markerStyle{Size: size, Symbol: symbol},
	}
	for _, m := range g.Markers {
		lat, lon := m.Lat, m.Lon
		sg.Lat = append(sg.Lat, &lat)
		sg.Lon = append(sg.Lon, &lon)
		sg.Text = append(sg.Text, m.Text)
		sg.CustomData = append(sg.CustomData, m.Custom)
	}
	return sg
}

func (p *Plotly) textTrace(g trace.Group) scatterGeo {
	sg := scatterGeo{
		Type:      "scattergeo",
		Name:      g.Name,
		Mode:      "text",
		Visible:   visibility(g.Visible),
		HoverInfo: "skip",
	}
	for _, m := range g.Markers {
		lat, lon := m.Lat, m.Lon
		sg.Lat = append(sg.Lat, &lat)
		sg.Lon = append(sg.Lon, &lon)
		sg.Text = append(sg.Text, m.Text)
	}
	return sg
}

// lineTrace encodes segments as one scattergeo lines trace with nil gaps
// between segments.
func (p *Plotly) lineTrace(g trace.Group) scatterGeo {
	sg := scatterGeo{
		Type:      "scattergeo",
		Name:      g.Name,
		Mode:      "lines",
		Visible:   visibility(g.Visible),
		HoverInfo: "skip",
		Line:      &lineStyle{Width: 1},
	}
	if g.Dashed {
		sg.Line.Dash = "dash"
	}
	for _, s := range g.Segments {
		fromLat, fromLon, toLat, toLon := s.FromLat, s.FromLon, s.ToLat, s.ToLon
		sg.Lat = append(sg.Lat, &fromLat, &toLat, nil)
		sg.Lon = append(sg.Lon, &fromLon, &toLon, nil)
	}
	return sg
}

// visibility maps the group flag onto the library's convention: hidden
// traces stay listed in the legend so the user can re-enable them.
func visibility(visible bool) any {
	if visible {
		return true
	}
	return "legendonly"
}
