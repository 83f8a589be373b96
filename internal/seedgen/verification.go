package seedgen

import (
	"context"
	"fmt"
)

// verifyTraces fetches the rendered figure for an instance and checks the
// basic shape invariants: at least the home trace, and only valid
// coordinates in every marker trace (line traces carry nil gap points).
func verifyTraces(ctx context.Context, client *HTTPClient, base string, stats *Stats) error {
	resp, err := client.Get(ctx, base+"/traces")
	if err != nil {
		return fmt.Errorf("traces request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read traces response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("traces returned status %d: %s", resp.StatusCode, string(body))
	}
	stats.TracesFetched++

	var fig figure
	if err := unmarshalJSON(body, &fig); err != nil {
		return fmt.Errorf("failed to decode figure: %w", err)
	}

	if len(fig.Data) == 0 {
		return fmt.Errorf("figure has no traces")
	}
	if len(fig.Layout) == 0 {
		return fmt.Errorf("figure has no layout")
	}

	for _, trace := range fig.Data {
		if len(trace.Lat) != len(trace.Lon) {
			return fmt.Errorf("trace %q has mismatched coordinate lengths", trace.Name)
		}
		if trace.Mode == "lines" {
			continue
		}
		for i, lat := range trace.Lat {
			lon := trace.Lon[i]
			if lat == nil || lon == nil {
				return fmt.Errorf("trace %q has a nil coordinate at %d", trace.Name, i)
			}
			if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
				return fmt.Errorf("trace %q has an out-of-range coordinate at %d", trace.Name, i)
			}
		}
	}

	stats.TracesVerified++
	return nil
}
