// Package service provides the core engine that implements the
// dependencies required by the HTTP API: it owns the payload store and
// the registry of live map instances.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/relmap/internal/adapters/render"
	repository "github.com/okian/relmap/internal/adapters/repository"
	"github.com/okian/relmap/internal/domain/classify"
	"github.com/okian/relmap/internal/domain/cluster"
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/projection"
	"github.com/okian/relmap/internal/domain/temporal"
	"github.com/okian/relmap/internal/domain/trace"
	"github.com/okian/relmap/internal/domain/types"
	"github.com/okian/relmap/pkg/logger"
	"github.com/okian/relmap/pkg/metrics"
)

// Default engine configuration.
const (
	defaultTickInterval    = 1200 * time.Millisecond
	defaultRendererTimeout = 6 * time.Second
	defaultMaxInstances    = 64
)

// Service implements the API dependencies for the relationship map engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	adapter   render.Adapter
	clock     temporal.Clock
	instances map[string]*Instance

	// Configuration
	precision       int
	jitterRadius    float64
	regionScope     string
	regionBounds    *projection.Bounds
	regionThreshold float64
	siteRoot        string
	labelBreakpoint int
	tickInterval    time.Duration
	rendererTimeout time.Duration
	maxInstances    int

	// State
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(lg logger.Logger) Option {
	return func(s *Service) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// WithStore sets the payload store backing map instances.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRenderAdapter sets the render adapter shared by all instances.
func WithRenderAdapter(a render.Adapter) Option {
	return func(s *Service) {
		if a != nil {
			s.adapter = a
		}
	}
}

// WithClock sets the clock used for present-year resolution.
func WithClock(clock temporal.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithClusterPrecision sets the coordinate rounding precision in decimals.
func WithClusterPrecision(decimals int) Option {
	return func(s *Service) {
		if decimals > 0 {
			s.precision = decimals
		}
	}
}

// WithJitterRadius sets the declustering ring radius in degrees.
func WithJitterRadius(radius float64) Option {
	return func(s *Service) {
		if radius > 0 {
			s.jitterRadius = radius
		}
	}
}

// WithRegion sets the regional projection scope and its bounding box.
func WithRegion(scope string, bounds projection.Bounds) Option {
	return func(s *Service) {
		if scope != "" {
			s.regionScope = scope
			s.regionBounds = &bounds
		}
	}
}

// WithRegionThreshold sets the mappable share that flips the default view
// to the regional projection.
func WithRegionThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t <= 1 {
			s.regionThreshold = t
		}
	}
}

// WithSiteRoot sets the prefix for resolving relative record links.
func WithSiteRoot(root string) Option {
	return func(s *Service) {
		s.siteRoot = root
	}
}

// WithLabelBreakpoint sets the viewport width below which labels default
// to hidden.
func WithLabelBreakpoint(px int) Option {
	return func(s *Service) {
		if px > 0 {
			s.labelBreakpoint = px
		}
	}
}

// WithTickInterval sets the playback tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithRendererTimeout sets how long map creation waits for the render
// adapter to become ready.
func WithRendererTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.rendererTimeout = d
		}
	}
}

// WithMaxInstances caps the number of live map instances.
func WithMaxInstances(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxInstances = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		instances:       make(map[string]*Instance),
		tickInterval:    defaultTickInterval,
		rendererTimeout: defaultRendererTimeout,
		maxInstances:    defaultMaxInstances,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting map engine...")

	if s.clock == nil {
		s.clock = temporal.SystemClock{}
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(
			repository.WithMaxDatasets(s.maxInstances),
		)
		s.logger.Info(ctx, "using in-memory payload store")
	}
	if s.adapter == nil {
		s.adapter = render.NewPlotly()
	}

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "map engine started",
		logger.Int("maxInstances", s.maxInstances),
		logger.Int("tickMs", int(s.tickInterval.Milliseconds())),
	)

	return nil
}

// Stop gracefully shuts down the service and every live instance.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping map engine...")

	for id, inst := range s.instances {
		if err := inst.Close(ctx); err != nil {
			s.logger.Warn(ctx, "instance shutdown timed out",
				logger.String("instance", id),
				logger.Error(err),
			)
		}
		delete(s.instances, id)
	}
	metrics.UpdateActiveInstances(0)

	if s.cancel != nil {
		s.cancel()
	}

	s.started = false
	s.logger.Info(ctx, "map engine stopped")
}

// CreateMap parses a payload, waits for the renderer and registers a new
// map instance. Malformed payloads and renderer unavailability fail the
// whole call; per-record gaps are tallied and the map still comes up.
func (s *Service) CreateMap(ctx context.Context, variantName string, payload []byte, reducedMotion bool, viewportWidth int) (types.InstanceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return types.InstanceInfo{}, ErrNotStarted
	}

	variant, ok := classify.VariantFor(model.Variant(variantName))
	if !ok {
		return types.InstanceInfo{}, fmt.Errorf("%w: %q", model.ErrUnknownVariant, variantName)
	}

	dataset, diags, err := model.ParsePayload(payload, variant.Name())
	if err != nil {
		metrics.RecordPayloadError()
		return types.InstanceInfo{}, err
	}
	metrics.RecordPayloadLoaded()
	metrics.RecordRecordsLoaded(variantName, len(dataset.Records))

	if err := render.Await(ctx, s.adapter, s.rendererTimeout); err != nil {
		metrics.RecordRendererTimeout()
		return types.InstanceInfo{}, err
	}

	id := uuid.NewString()
	if err := s.store.Put(ctx, id, repository.Snapshot{Dataset: dataset, Diagnostics: diags}); err != nil {
		return types.InstanceInfo{}, err
	}

	inst := newInstance(s.runCtx, id, instanceDeps{
		classifier:    classify.New(variant, classify.WithClock(s.clock)),
		clusterer:     s.newClusterer(),
		chooser:       s.newChooser(),
		builder:       s.newBuilder(),
		adapter:       s.adapter,
		logger:        s.logger,
		tickInterval:  s.tickInterval,
		reducedMotion: reducedMotion,
		viewportWidth: viewportWidth,
		dataset:       dataset,
		diags:         diags,
	})
	s.instances[id] = inst
	metrics.UpdateActiveInstances(len(s.instances))

	s.logger.Info(ctx, "map instance created",
		logger.String("instance", id),
		logger.String("variant", variantName),
		logger.Int("records", len(dataset.Records)),
	)

	return inst.Info(), nil
}

// Instance returns a live map instance by id.
func (s *Service) Instance(_ context.Context, id string) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: instance %q", repository.ErrNotFound, id)
	}
	return inst, nil
}

// DeleteMap tears down an instance and drops its payload.
func (s *Service) DeleteMap(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	inst, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("%w: instance %q", repository.ErrNotFound, id)
	}

	if err := inst.Close(ctx); err != nil {
		s.logger.Warn(ctx, "instance shutdown timed out",
			logger.String("instance", id),
			logger.Error(err),
		)
	}
	delete(s.instances, id)
	s.store.Delete(ctx, id)
	metrics.UpdateActiveInstances(len(s.instances))

	s.logger.Info(ctx, "map instance deleted", logger.String("instance", id))
	return nil
}

// GetMap returns the current state and diagnostics of an instance.
func (s *Service) GetMap(ctx context.Context, id string) (types.InstanceInfo, error) {
	inst, err := s.Instance(ctx, id)
	if err != nil {
		return types.InstanceInfo{}, err
	}
	return inst.Info(), nil
}

// UpdateMapState applies a partial state update to an instance.
func (s *Service) UpdateMapState(ctx context.Context, id string, patch types.StatePatch) (types.InstanceInfo, error) {
	inst, err := s.Instance(ctx, id)
	if err != nil {
		return types.InstanceInfo{}, err
	}
	return inst.Apply(ctx, patch)
}

// PlayMap starts timeline playback on an instance.
func (s *Service) PlayMap(ctx context.Context, id string) (types.InstanceInfo, error) {
	inst, err := s.Instance(ctx, id)
	if err != nil {
		return types.InstanceInfo{}, err
	}
	return inst.Play(ctx)
}

// PauseMap stops timeline playback on an instance.
func (s *Service) PauseMap(ctx context.Context, id string) (types.InstanceInfo, error) {
	inst, err := s.Instance(ctx, id)
	if err != nil {
		return types.InstanceInfo{}, err
	}
	return inst.Pause(ctx), nil
}

// ResetMap restores an instance to its derived defaults.
func (s *Service) ResetMap(ctx context.Context, id string) (types.InstanceInfo, error) {
	inst, err := s.Instance(ctx, id)
	if err != nil {
		return types.InstanceInfo{}, err
	}
	return inst.Reset(ctx), nil
}

// MapTraces returns the rendered figure for an instance's current state.
func (s *Service) MapTraces(ctx context.Context, id string) ([]byte, error) {
	inst, err := s.Instance(ctx, id)
	if err != nil {
		return nil, err
	}
	return inst.Traces(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"maxInstances": s.maxInstances,
		"tickMs":       s.tickInterval.Milliseconds(),
	}

	if s.started {
		stats["instances"] = len(s.instances)
		stats["storedDatasets"] = s.store.Count(context.Background())
		metrics.UpdateActiveInstances(len(s.instances))
	}

	return stats
}

func (s *Service) newClusterer() *cluster.Clusterer {
	var opts []cluster.Option
	if s.precision > 0 {
		opts = append(opts, cluster.WithPrecision(s.precision))
	}
	if s.jitterRadius > 0 {
		opts = append(opts, cluster.WithJitterRadius(s.jitterRadius))
	}
	return cluster.New(opts...)
}

func (s *Service) newChooser() *projection.Chooser {
	var opts []projection.Option
	if s.regionScope != "" && s.regionBounds != nil {
		opts = append(opts, projection.WithRegion(s.regionScope, *s.regionBounds))
	}
	if s.regionThreshold > 0 {
		opts = append(opts, projection.WithThreshold(s.regionThreshold))
	}
	return projection.New(opts...)
}

func (s *Service) newBuilder() *trace.Builder {
	var opts []trace.Option
	if s.siteRoot != "" {
		opts = append(opts, trace.WithSiteRoot(s.siteRoot))
	}
	if s.labelBreakpoint > 0 {
		opts = append(opts, trace.WithLabelBreakpoint(s.labelBreakpoint))
	}
	return trace.NewBuilder(opts...)
}
