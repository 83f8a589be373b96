package seedgen

import (
	"time"

	json "github.com/goccy/go-json"
)

// Config holds configuration for the map seeding run
type Config struct {
	BaseURL    string        // Base URL of the service
	NumMaps    int           // Number of map instances to create
	NumRecords int           // Number of records per payload
	Variant    string        // Map variant to create
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated payloads
	LogFile    string        // Log file for run output
	KeepMaps   bool          // Leave created maps running after the run
	Verbose    bool          // Enable verbose logging
}

// Payload mirrors the wire shape POSTed inside a create request.
type Payload struct {
	Home   Home     `json:"home"`
	People []Person `json:"people"`
}

// Home is the payload's anchor coordinate.
type Home struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}

// Person is one generated record.
type Person struct {
	Name      string   `json:"name"`
	Status    string   `json:"status,omitempty"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	City      string   `json:"city,omitempty"`
	Region    string   `json:"region,omitempty"`
	Country   string   `json:"country,omitempty"`
	FirstYear int      `json:"first_year,omitempty"`
	LastYear  any      `json:"last_year,omitempty"`
	Tags      string   `json:"tags,omitempty"`
	Link      string   `json:"link,omitempty"`
	Pubs      int      `json:"pubs,omitempty"`
}

// createRequest mirrors POST /api/maps.
type createRequest struct {
	Variant       string  `json:"variant"`
	Payload       Payload `json:"payload"`
	ViewportWidth int     `json:"viewport_width"`
}

// statePatch mirrors POST /api/maps/{id}/state.
type statePatch struct {
	ShowPast    *bool   `json:"show_past,omitempty"`
	AllTime     *bool   `json:"all_time,omitempty"`
	Year        *int    `json:"year,omitempty"`
	YearMode    *string `json:"year_mode,omitempty"`
	ClusterMode *bool   `json:"cluster_mode,omitempty"`
}

// instanceInfo is the slice of the API response the runner inspects.
type instanceInfo struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
	State   struct {
		View        string `json:"view"`
		AllTime     bool   `json:"all_time"`
		Year        int    `json:"year"`
		ClusterMode bool   `json:"cluster_mode"`
		Playback    string `json:"playback"`
	} `json:"state"`
	MinYear     int    `json:"min_year"`
	MaxYear     int    `json:"max_year"`
	Summary     string `json:"summary"`
	Diagnostics struct {
		TotalRecords       int `json:"total_records"`
		MissingCoordinates int `json:"missing_coordinates"`
		MissingYears       int `json:"missing_years"`
	} `json:"diagnostics"`
}

// figure is the slice of a rendered Plotly figure the runner inspects.
type figure struct {
	Data []struct {
		Name string     `json:"name"`
		Mode string     `json:"mode"`
		Lat  []*float64 `json:"lat"`
		Lon  []*float64 `json:"lon"`
	} `json:"data"`
	Layout json.RawMessage `json:"layout"`
}

// Stats holds run statistics
type Stats struct {
	PayloadsGenerated int
	RecordsGenerated  int
	MapsCreated       int
	MapsFailed        int
	PatchesApplied    int
	TracesFetched     int
	TracesVerified    int
	MapsDeleted       int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
