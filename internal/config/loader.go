package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if RELMAP_CONFIG is set
//  3. env (prefix RELMAP_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("RELMAP_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RELMAP_ADDR, RELMAP_PLAYBACK_TICK_MS, ...
	// Map env keys like RELMAP_PLAYBACK_TICK_MS -> playback_tick_ms to
	// match the koanf tags on the struct.
	envProvider := env.Provider("RELMAP_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "relmap_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ClusterPrecision < 0:
		return fmt.Errorf("%w: cluster_precision must not be negative", ErrInvalidConfig)
	case c.JitterRadius <= 0:
		return fmt.Errorf("%w: jitter_radius must be positive", ErrInvalidConfig)
	case c.RegionThreshold <= 0 || c.RegionThreshold > 1:
		return fmt.Errorf("%w: region_threshold must be in (0, 1]", ErrInvalidConfig)
	case c.PlaybackTickMS <= 0:
		return fmt.Errorf("%w: playback_tick_ms must be positive", ErrInvalidConfig)
	case c.RendererWaitMS <= 0:
		return fmt.Errorf("%w: renderer_wait_ms must be positive", ErrInvalidConfig)
	case c.MaxInstances <= 0:
		return fmt.Errorf("%w: max_instances must be positive", ErrInvalidConfig)
	case c.MaxPayloadBytes <= 0:
		return fmt.Errorf("%w: max_payload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
