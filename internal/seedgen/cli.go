package seedgen

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/relmap/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "seed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the map seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`Relmap Seed Tool
================

Generates synthetic collaborator/trainee payloads and drives the relmap
API end to end: create maps, patch their view state and verify the
rendered traces.

Usage:
  go run cmd/seed-maps/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -maps int
        Number of map instances to create (default 3)
  -records int
        Number of records per payload (default 40)
  -variant string
        Map variant: collaborators or trainees (default "collaborators")
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated payloads (default: generated_payloads_TIMESTAMP.json)
  -log string
        Log file for run output (default: seed_log_TIMESTAMP.log)
  -keep
        Leave created maps running after the run
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/seed-maps/main.go

  # Seed a larger dataset against another host
  go run cmd/seed-maps/main.go -maps 10 -records 200 -url http://localhost:8080

  # Seed trainee maps and keep them for manual inspection
  go run cmd/seed-maps/main.go -variant trainees -keep
`)
}
