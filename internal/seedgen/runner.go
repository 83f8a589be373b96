package seedgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/relmap/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete seeding run.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting relmap seed run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("maps", config.NumMaps),
		logger.Int("recordsPerMap", config.NumRecords),
		logger.String("variant", config.Variant),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("keepMaps", config.KeepMaps))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate payloads
	payloads := generatePayloads(ctx, config, stats)

	// Step 3: Create maps and drive each through a state cycle
	ids, err := createAndExercise(ctx, config, payloads, stats)
	if err != nil {
		return fmt.Errorf("map seeding failed: %w", err)
	}

	// Step 4: Tear the maps back down unless asked to keep them
	if !config.KeepMaps {
		deleteMaps(ctx, config, ids, stats)
	}

	// Step 5: Save payloads to file
	if err := savePayloadsToFile(ctx, config, payloads); err != nil {
		logger.Get().Warn(ctx, "failed to save payloads to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	if stats.MapsFailed > 0 {
		return fmt.Errorf("%d of %d maps failed", stats.MapsFailed, config.NumMaps)
	}
	logger.Get().Info(ctx, "seed run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// createAndExercise creates one map per payload and walks it through a
// representative state cycle, verifying the traces after each change.
func createAndExercise(ctx context.Context, config *Config, payloads []Payload, stats *Stats) ([]string, error) {
	client := newHTTPClient(config.Timeout)
	ids := make([]string, 0, len(payloads))

	for i, payload := range payloads {
		select {
		case <-ctx.Done():
			return ids, fmt.Errorf("context cancelled during seeding: %w", ctx.Err())
		default:
		}

		info, err := createMap(ctx, client, config, payload)
		if err != nil {
			stats.MapsFailed++
			logger.Get().Warn(ctx, "map creation failed",
				logger.Int("index", i),
				logger.Error(err))
			continue
		}
		stats.MapsCreated++
		ids = append(ids, info.ID)

		if config.Verbose {
			logger.Get().Info(ctx, "map created",
				logger.String("id", info.ID),
				logger.String("view", info.State.View),
				logger.String("summary", info.Summary))
		}

		if err := exerciseMap(ctx, client, config, info, stats); err != nil {
			stats.MapsFailed++
			logger.Get().Warn(ctx, "map exercise failed",
				logger.String("id", info.ID),
				logger.Error(err))
		}
	}

	return ids, nil
}

// createMap POSTs a payload and decodes the created instance.
func createMap(ctx context.Context, client *HTTPClient, config *Config, payload Payload) (*instanceInfo, error) {
	resp, err := client.Post(ctx, config.BaseURL+"/api/maps", createRequest{
		Variant:       config.Variant,
		Payload:       payload,
		ViewportWidth: 1280,
	})
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read create response: %w", err)
	}
	if resp.StatusCode != StatusCreated {
		return nil, fmt.Errorf("create returned status %d: %s", resp.StatusCode, string(body))
	}

	var info instanceInfo
	if err := unmarshalJSON(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("create response missing instance id")
	}
	return &info, nil
}

// exerciseMap drives one instance through toggles, a year query and
// cluster mode, checking the rendered traces along the way.
func exerciseMap(ctx context.Context, client *HTTPClient, config *Config, info *instanceInfo, stats *Stats) error {
	base := config.BaseURL + "/api/maps/" + info.ID

	// Baseline traces for the default state.
	if err := verifyTraces(ctx, client, base, stats); err != nil {
		return err
	}

	falseVal := false
	trueVal := true
	midYear := (info.MinYear + info.MaxYear) / 2
	cumulative := "cumulative"

	patches := []statePatch{
		{ShowPast: &falseVal},
		{ShowPast: &trueVal, AllTime: &falseVal, Year: &midYear},
		{YearMode: &cumulative},
		{ClusterMode: &trueVal, AllTime: &trueVal},
	}

	for _, patch := range patches {
		updated, err := applyPatch(ctx, client, base, patch)
		if err != nil {
			return err
		}
		stats.PatchesApplied++
		if config.Verbose {
			logger.Get().Info(ctx, "state patched",
				logger.String("id", info.ID),
				logger.Int("year", updated.State.Year),
				logger.Any("allTime", updated.State.AllTime),
				logger.Any("clusterMode", updated.State.ClusterMode))
		}
		if err := verifyTraces(ctx, client, base, stats); err != nil {
			return err
		}
	}

	// Finish on the derived defaults.
	resp, err := client.Post(ctx, base+"/reset", nil)
	if err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read reset response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("reset returned status %d", resp.StatusCode)
	}
	return nil
}

// applyPatch POSTs a state patch and decodes the updated instance.
func applyPatch(ctx context.Context, client *HTTPClient, base string, patch statePatch) (*instanceInfo, error) {
	resp, err := client.Post(ctx, base+"/state", patch)
	if err != nil {
		return nil, fmt.Errorf("state request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read state response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("state returned status %d: %s", resp.StatusCode, string(body))
	}

	var info instanceInfo
	if err := unmarshalJSON(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode state response: %w", err)
	}
	return &info, nil
}

// deleteMaps tears down every created instance.
func deleteMaps(ctx context.Context, config *Config, ids []string, stats *Stats) {
	client := newHTTPClient(config.Timeout)
	for _, id := range ids {
		resp, err := client.Delete(ctx, config.BaseURL+"/api/maps/"+id)
		if err != nil {
			logger.Get().Warn(ctx, "delete request failed",
				logger.String("id", id),
				logger.Error(err))
			continue
		}
		if _, err := readResponseBody(resp); err != nil {
			logger.Get().Warn(ctx, "failed to read delete response", logger.Error(err))
			continue
		}
		if resp.StatusCode == StatusNoContent {
			stats.MapsDeleted++
		}
	}
}

// savePayloadsToFile saves the generated payloads to a JSON file.
func savePayloadsToFile(ctx context.Context, config *Config, payloads []Payload) error {
	if len(payloads) == 0 {
		return fmt.Errorf("no payloads to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_payloads_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := marshalJSON(payloads)
	if err != nil {
		return fmt.Errorf("failed to marshal payloads: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "payloads saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate float64
	if stats.PayloadsGenerated > 0 {
		successRate = float64(stats.MapsCreated) / float64(stats.PayloadsGenerated) * PercentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("payloadsGenerated", stats.PayloadsGenerated),
		logger.Int("recordsGenerated", stats.RecordsGenerated),
		logger.Int("mapsCreated", stats.MapsCreated),
		logger.Int("mapsFailed", stats.MapsFailed),
		logger.Int("patchesApplied", stats.PatchesApplied),
		logger.Int("tracesFetched", stats.TracesFetched),
		logger.Int("tracesVerified", stats.TracesVerified),
		logger.Int("mapsDeleted", stats.MapsDeleted),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate))
}
