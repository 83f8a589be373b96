// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/relmap/internal/adapters/render"
	"github.com/okian/relmap/internal/adapters/repository"
	service "github.com/okian/relmap/internal/app"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// CreateMap parses a payload and brings up a new map instance.
	CreateMap(ctx context.Context, variant string, payload []byte, reducedMotion bool, viewportWidth int) (types.InstanceInfo, error)

	// Per-instance view state operations.
	GetMap(ctx context.Context, id string) (types.InstanceInfo, error)
	UpdateMapState(ctx context.Context, id string, patch types.StatePatch) (types.InstanceInfo, error)
	PlayMap(ctx context.Context, id string) (types.InstanceInfo, error)
	PauseMap(ctx context.Context, id string) (types.InstanceInfo, error)
	ResetMap(ctx context.Context, id string) (types.InstanceInfo, error)

	// MapTraces returns the rendered figure for an instance.
	MapTraces(ctx context.Context, id string) ([]byte, error)

	// DeleteMap tears an instance down.
	DeleteMap(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	mapsHandler      *MapsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxPayloadBytes int64) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		mapsHandler:      NewMapsHandler(deps, maxPayloadBytes),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/maps", MetricsMiddleware(s.mapsHandler.HandleMaps, "maps"))
	mux.HandleFunc("/api/maps/", MetricsMiddleware(s.mapsHandler.HandleInstance, "map_instance"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates engine errors to HTTP responses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrStoreFull):
		writeError(w, http.StatusTooManyRequests, "store_full", err)
	case errors.Is(err, render.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "renderer_unavailable", err)
	case errors.Is(err, model.ErrMalformedPayload),
		errors.Is(err, model.ErrMissingHome),
		errors.Is(err, model.ErrUnknownVariant),
		errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrReducedMotion),
		errors.Is(err, service.ErrPlaybackUnavailable):
		writeError(w, http.StatusConflict, "playback_rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
