// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/okian/relmap/internal/domain/types"
)

// MapsHandler handles map instance requests.
type MapsHandler struct {
	deps     Dependencies
	maxBytes int64
}

// NewMapsHandler creates a new maps handler.
func NewMapsHandler(deps Dependencies, maxBytes int64) *MapsHandler {
	return &MapsHandler{deps: deps, maxBytes: maxBytes}
}

// createMapRequest mirrors the OpenAPI schema for POST /api/maps.
type createMapRequest struct {
	Variant       string          `json:"variant"`
	Payload       json.RawMessage `json:"payload"`
	ReducedMotion bool            `json:"reduced_motion"`
	ViewportWidth int             `json:"viewport_width"`
}

func (c createMapRequest) validate() error {
	switch {
	case strings.TrimSpace(c.Variant) == "":
		return errors.New("missing variant")
	case len(c.Payload) == 0:
		return errors.New("missing payload")
	}
	return nil
}

// HandleMaps handles POST /api/maps requests.
func (h *MapsHandler) HandleMaps(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_map"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	var req createMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	info, err := h.deps.CreateMap(r.Context(), req.Variant, req.Payload, req.ReducedMotion, req.ViewportWidth)
	if err != nil {
		writeEngineError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleInstance routes /api/maps/{id} and its sub-resources.
func (h *MapsHandler) HandleInstance(w http.ResponseWriter, r *http.Request) {
	const op = "api.map_instance"
	// Extract path parameters after /api/maps/
	rest := strings.TrimPrefix(r.URL.Path, "/api/maps/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch action {
	case "":
		h.handleRoot(w, r, id)
	case "state":
		h.handleState(w, r, id)
	case "play":
		h.handleTransport(w, r, id, h.deps.PlayMap)
	case "pause":
		h.handleTransport(w, r, id, h.deps.PauseMap)
	case "reset":
		h.handleTransport(w, r, id, h.deps.ResetMap)
	case "traces":
		h.handleTraces(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleRoot handles GET and DELETE on /api/maps/{id}.
func (h *MapsHandler) handleRoot(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.map_root"
	switch r.Method {
	case http.MethodGet:
		info, err := h.deps.GetMap(r.Context(), id)
		if err != nil {
			writeEngineError(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodDelete:
		if err := h.deps.DeleteMap(r.Context(), id); err != nil {
			writeEngineError(w, Wrap(op, err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// handleState handles POST /api/maps/{id}/state.
func (h *MapsHandler) handleState(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.map_state"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var patch types.StatePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	info, err := h.deps.UpdateMapState(r.Context(), id, patch)
	if err != nil {
		writeEngineError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleTransport handles the POST play/pause/reset sub-resources.
func (h *MapsHandler) handleTransport(w http.ResponseWriter, r *http.Request, id string, fn func(ctx context.Context, id string) (types.InstanceInfo, error)) {
	const op = "api.map_transport"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	info, err := fn(r.Context(), id)
	if err != nil {
		writeEngineError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleTraces handles GET /api/maps/{id}/traces, returning the rendered
// figure as-is.
func (h *MapsHandler) handleTraces(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.map_traces"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	figure, err := h.deps.MapTraces(r.Context(), id)
	if err != nil {
		writeEngineError(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(figure)
}
