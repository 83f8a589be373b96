// Package site handles the embedded demo site: a single page that creates
// a map instance against the API and renders its traces with Plotly.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("demo site serve failed")
)

// Register attaches the embedded demo site routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Serve the embedded demo site at root /
	files := http.FileServer(FS())
	mux.Handle("/", files)
}
