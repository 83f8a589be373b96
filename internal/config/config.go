// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SiteRoot prefixes relative record links, e.g. "https://lab.example.edu".
	SiteRoot string `koanf:"site_root"`

	// ClusterPrecision is the coordinate rounding precision in decimals
	// used when grouping same-place records.
	ClusterPrecision int `koanf:"cluster_precision"`

	// JitterRadius is the declustering ring radius in degrees.
	JitterRadius float64 `koanf:"jitter_radius"`

	// RegionScope names the regional projection, e.g. "usa".
	RegionScope string `koanf:"region_scope"`

	// Region bounding box used by the default-view heuristic.
	RegionMinLat float64 `koanf:"region_min_lat"`
	RegionMaxLat float64 `koanf:"region_max_lat"`
	RegionMinLon float64 `koanf:"region_min_lon"`
	RegionMaxLon float64 `koanf:"region_max_lon"`

	// RegionThreshold is the mappable share inside the region bounds that
	// flips the default view to the regional projection.
	RegionThreshold float64 `koanf:"region_threshold"`

	// PlaybackTickMS is the timeline playback interval.
	PlaybackTickMS int `koanf:"playback_tick_ms"`

	// RendererWaitMS bounds the wait for the render adapter at map creation.
	RendererWaitMS int `koanf:"renderer_wait_ms"`

	// MaxInstances caps concurrent live map instances.
	MaxInstances int `koanf:"max_instances"`

	// LabelBreakpointPX is the viewport width below which labels default
	// to hidden.
	LabelBreakpointPX int `koanf:"label_breakpoint_px"`

	// MaxPayloadBytes caps the request body of payload uploads.
	MaxPayloadBytes int64 `koanf:"max_payload_bytes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		ClusterPrecision:  4,
		JitterRadius:      0.12,
		RegionScope:       "usa",
		RegionMinLat:      18,
		RegionMaxLat:      72,
		RegionMinLon:      -180,
		RegionMaxLon:      -66,
		RegionThreshold:   0.65,
		PlaybackTickMS:    1200,
		RendererWaitMS:    6000,
		MaxInstances:      64,
		LabelBreakpointPX: 768,
		MaxPayloadBytes:   2 << 20,
	}
}
