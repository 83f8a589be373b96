// Package types contains API-facing shapes shared across the application.
package types

import "github.com/okian/relmap/internal/domain/model"

// Playback states.
const (
	PlaybackStopped = "stopped"
	PlaybackPlaying = "playing"
)

// ViewState mirrors the UI-facing state of one map instance.
type ViewState struct {
	View            string          `json:"view"` // world | region
	ShowCurrent     bool            `json:"show_current"`
	ShowPast        bool            `json:"show_past"`
	ShowLabels      bool            `json:"show_labels"`
	TypeToggles     map[string]bool `json:"type_toggles"`
	ActiveTagFacets []string        `json:"active_tag_facets"`
	AllTime         bool            `json:"all_time"`
	Year            int             `json:"year"`
	YearMode        string          `json:"year_mode"` // active | cumulative
	ClusterMode     bool            `json:"cluster_mode"`
	Playback        string          `json:"playback"`
	ViewportWidth   int             `json:"viewport_width,omitempty"`
	ReducedMotion   bool            `json:"reduced_motion,omitempty"`

	// TypeAutoCorrected flags that the engine re-enabled a default type
	// because every toggle was off; a UI may surface the correction.
	TypeAutoCorrected bool `json:"type_auto_corrected,omitempty"`
}

// StatePatch is a partial state update; nil fields stay unchanged.
// TypeToggles merges the given keys into the current toggle set.
type StatePatch struct {
	View            *string         `json:"view,omitempty"`
	ShowCurrent     *bool           `json:"show_current,omitempty"`
	ShowPast        *bool           `json:"show_past,omitempty"`
	ShowLabels      *bool           `json:"show_labels,omitempty"`
	TypeToggles     map[string]bool `json:"type_toggles,omitempty"`
	ActiveTagFacets *[]string       `json:"active_tag_facets,omitempty"`
	AllTime         *bool           `json:"all_time,omitempty"`
	Year            *int            `json:"year,omitempty"`
	YearMode        *string         `json:"year_mode,omitempty"`
	ClusterMode     *bool           `json:"cluster_mode,omitempty"`
	ViewportWidth   *int            `json:"viewport_width,omitempty"`
}

// InstanceInfo is the full UI contract for one map instance: its state,
// the facet bar inputs, the year slider range and the data-gap summary.
type InstanceInfo struct {
	ID            string            `json:"id"`
	Variant       string            `json:"variant"`
	State         ViewState         `json:"state"`
	AvailableTags []string          `json:"available_tags,omitempty"`
	MinYear       int               `json:"min_year,omitempty"`
	MaxYear       int               `json:"max_year,omitempty"`
	Diagnostics   model.Diagnostics `json:"diagnostics"`
	Summary       string            `json:"summary"`
}
