package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/relmap/internal/seedgen"
)

// Default configuration constants.
const (
	defaultNumMaps    = 3
	defaultNumRecords = 40
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numMaps    = flag.Int("maps", defaultNumMaps, "Number of map instances to create")
		numRecords = flag.Int("records", defaultNumRecords, "Number of records per payload")
		variant    = flag.String("variant", "collaborators", "Map variant: collaborators or trainees")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated payloads (default: generated_payloads_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: seed_log_TIMESTAMP.log)")
		keepMaps   = flag.Bool("keep", false, "Leave created maps running after the run")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seedgen.ShowHelp()
		return
	}

	// Setup logging
	if err := seedgen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create run configuration
	config := &seedgen.Config{
		BaseURL:    *baseURL,
		NumMaps:    *numMaps,
		NumRecords: *numRecords,
		Variant:    *variant,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		KeepMaps:   *keepMaps,
		Verbose:    *verbose,
	}

	// Run the seeding
	if err := seedgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seed run failed: " + err.Error() + "\n")
		return
	}
}
