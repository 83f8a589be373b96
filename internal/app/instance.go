package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/relmap/internal/adapters/mq/queue"
	"github.com/okian/relmap/internal/adapters/mq/worker"
	"github.com/okian/relmap/internal/adapters/render"
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

// viewState is the internal representation of one instance's view state.
// Every field is owned by the instance mutex.
type viewState struct {
	view          projection.View
	showCurrent   bool
	showPast      bool
	showLabels    bool
	toggles       classify.TypeToggles
	facets        []string
	allTime       bool
	year          int
	yearMode      temporal.Mode
	clusterMode   bool
	playing       bool
	viewportWidth int
}

// Instance is one live map: a dataset, its view state machine and the
// derivation loop that re-runs the pipeline after every state change.
type Instance struct {
	id            string
	classifier    *classify.Classifier
	clusterer     *cluster.Clusterer
	chooser       *projection.Chooser
	builder       *trace.Builder
	adapter       render.Adapter
	logger        logger.Logger
	tickInterval  time.Duration
	reducedMotion bool

	dataset *model.Dataset
	diags   model.Diagnostics
	tags    []string
	minYear int
	maxYear int
	yearsOK bool

	mu            sync.Mutex
	state         viewState
	autoCorrected bool
	gen           uint64
	cachedGen     uint64
	cached        []byte
	cacheErr      error
	playStop      chan struct{}

	queue *queue.Coalescing
	loop  *worker.Loop
}

func newInstance(ctx context.Context, id string, snap instanceDeps) *Instance {
	inst := &Instance{
		id:            id,
		classifier:    snap.classifier,
		clusterer:     snap.clusterer,
		chooser:       snap.chooser,
		builder:       snap.builder,
		adapter:       snap.adapter,
		logger:        snap.logger.Named("instance"),
		tickInterval:  snap.tickInterval,
		reducedMotion: snap.reducedMotion,
		dataset:       snap.dataset,
		diags:         snap.diags,
	}

	inst.tags = inst.classifier.ObservedTags(inst.dataset.Records)
	inst.minYear, inst.maxYear, inst.yearsOK = temporal.ObservedRange(inst.dataset.Records, inst.classifier.Clock())

	inst.state = inst.defaultState(snap.viewportWidth)

	inst.queue = queue.NewCoalescing()
	inst.loop = worker.New(inst.queue, inst,
		worker.WithName(id),
		worker.WithLogger(inst.logger),
	)
	go inst.loop.Run(ctx)
	inst.queue.Notify(ctx, "create")

	return inst
}

// instanceDeps bundles everything an instance borrows from the service.
type instanceDeps struct {
	classifier    *classify.Classifier
	clusterer     *cluster.Clusterer
	chooser       *projection.Chooser
	builder       *trace.Builder
	adapter       render.Adapter
	logger        logger.Logger
	tickInterval  time.Duration
	reducedMotion bool
	viewportWidth int
	dataset       *model.Dataset
	diags         model.Diagnostics
}

// defaultState derives the initial view state from the dataset: the
// projection chooser picks the view, labels follow the viewport width and
// every entity type starts enabled.
func (i *Instance) defaultState(viewportWidth int) viewState {
	toggles := classify.TypeToggles{}
	for _, t := range i.classifier.Variant().Types() {
		toggles[t] = true
	}

	return viewState{
		view:          i.chooser.Default(i.dataset.Records),
		showCurrent:   true,
		showPast:      true,
		showLabels:    i.builder.DefaultShowLabels(viewportWidth),
		toggles:       toggles,
		allTime:       true,
		year:          i.maxYear,
		yearMode:      temporal.ModeActive,
		viewportWidth: viewportWidth,
	}
}

// ID returns the instance id.
func (i *Instance) ID() string { return i.id }

// Info returns the full UI contract for the instance.
func (i *Instance) Info() types.InstanceInfo {
	i.mu.Lock()
	defer i.mu.Unlock()

	return types.InstanceInfo{
		ID:            i.id,
		Variant:       string(i.classifier.Variant().Name()),
		State:         i.publicStateLocked(),
		AvailableTags: i.tags,
		MinYear:       i.minYear,
		MaxYear:       i.maxYear,
		Diagnostics:   i.diags,
		Summary:       i.diags.Summary(i.classifier.Variant().Label()),
	}
}

func (i *Instance) publicStateLocked() types.ViewState {
	toggles := make(map[string]bool, len(i.state.toggles))
	for t, on := range i.state.toggles {
		toggles[string(t)] = on
	}

	playback := types.PlaybackStopped
	if i.state.playing {
		playback = types.PlaybackPlaying
	}

	return types.ViewState{
		View:              string(i.state.view),
		ShowCurrent:       i.state.showCurrent,
		ShowPast:          i.state.showPast,
		ShowLabels:        i.state.showLabels,
		TypeToggles:       toggles,
		ActiveTagFacets:   append([]string(nil), i.state.facets...),
		AllTime:           i.state.allTime,
		Year:              i.state.year,
		YearMode:          string(i.state.yearMode),
		ClusterMode:       i.state.clusterMode,
		Playback:          playback,
		ViewportWidth:     i.state.viewportWidth,
		ReducedMotion:     i.reducedMotion,
		TypeAutoCorrected: i.autoCorrected,
	}
}

// Apply merges a partial state update into the view state, then schedules
// a re-derivation. The merge is staged on a copy and committed only after
// every field validates, so a rejected patch leaves the state untouched.
func (i *Instance) Apply(ctx context.Context, patch types.StatePatch) (types.InstanceInfo, error) {
	i.mu.Lock()

	next := i.state
	autoCorrected := i.autoCorrected
	correctedNow := false

	if patch.View != nil {
		v := projection.View(*patch.View)
		if v != projection.ViewWorld && v != projection.ViewRegion {
			i.mu.Unlock()
			return types.InstanceInfo{}, fmt.Errorf("%w: view %q", ErrInvalidState, *patch.View)
		}
		next.view = v
	}
	if patch.YearMode != nil {
		m := temporal.Mode(*patch.YearMode)
		if m != temporal.ModeActive && m != temporal.ModeCumulative {
			i.mu.Unlock()
			return types.InstanceInfo{}, fmt.Errorf("%w: year mode %q", ErrInvalidState, *patch.YearMode)
		}
		next.yearMode = m
	}
	if patch.ShowCurrent != nil {
		next.showCurrent = *patch.ShowCurrent
	}
	if patch.ShowPast != nil {
		next.showPast = *patch.ShowPast
	}
	if patch.ShowLabels != nil {
		next.showLabels = *patch.ShowLabels
	}
	if patch.ClusterMode != nil {
		next.clusterMode = *patch.ClusterMode
	}
	if patch.ViewportWidth != nil && *patch.ViewportWidth > 0 {
		next.viewportWidth = *patch.ViewportWidth
	}
	if patch.ActiveTagFacets != nil {
		next.facets = model.NormalizeTagList(*patch.ActiveTagFacets)
	}
	if patch.Year != nil {
		next.year = i.clampYear(*patch.Year)
	}
	if patch.AllTime != nil {
		next.allTime = *patch.AllTime
	}
	if len(patch.TypeToggles) > 0 {
		merged := classify.TypeToggles{}
		for t, on := range i.state.toggles {
			merged[t] = on
		}
		known := i.classifier.Variant().Types()
		for name, on := range patch.TypeToggles {
			t := model.EntityType(name)
			if !containsType(known, t) {
				i.mu.Unlock()
				return types.InstanceInfo{}, fmt.Errorf("%w: type %q", ErrInvalidState, name)
			}
			merged[t] = on
		}
		corrected, changed := i.classifier.NormalizeTypes(merged)
		next.toggles = corrected
		autoCorrected = changed
		correctedNow = changed
	}

	i.state = next
	i.autoCorrected = autoCorrected
	if i.state.allTime && i.state.playing {
		// The timeline has nothing to walk in all-time mode.
		i.stopPlaybackLocked()
	}
	if correctedNow {
		metrics.RecordTypeAutoCorrect()
		i.logger.Debug(ctx, "type toggles auto-corrected",
			logger.String("instance", i.id),
			logger.String("type", string(i.classifier.Variant().DefaultType())),
		)
	}

	i.gen++
	i.mu.Unlock()

	metrics.RecordStateTransition("patch")
	i.queue.Notify(ctx, "state")
	return i.Info(), nil
}

// Play starts timeline playback. With reduced motion the control is
// disabled and the call is rejected; starting from all-time mode drops to
// the start of the observed range.
func (i *Instance) Play(ctx context.Context) (types.InstanceInfo, error) {
	i.mu.Lock()

	if i.reducedMotion {
		i.mu.Unlock()
		return types.InstanceInfo{}, ErrReducedMotion
	}
	if !i.yearsOK {
		i.mu.Unlock()
		return types.InstanceInfo{}, ErrPlaybackUnavailable
	}
	if !i.state.playing {
		if i.state.allTime {
			i.state.allTime = false
			i.state.year = i.minYear
		}
		i.startPlaybackLocked(ctx)
		i.gen++
	}
	i.mu.Unlock()

	metrics.RecordStateTransition("play")
	i.queue.Notify(ctx, "playback")
	return i.Info(), nil
}

// Pause stops timeline playback, keeping the current year.
func (i *Instance) Pause(ctx context.Context) types.InstanceInfo {
	i.mu.Lock()
	if i.state.playing {
		i.stopPlaybackLocked()
		i.gen++
	}
	i.mu.Unlock()

	metrics.RecordStateTransition("pause")
	i.queue.Notify(ctx, "playback")
	return i.Info()
}

// Reset returns the instance to its derived defaults, keeping the current
// viewport width so the label default is recomputed for it.
func (i *Instance) Reset(ctx context.Context) types.InstanceInfo {
	i.mu.Lock()
	i.stopPlaybackLocked()
	i.state = i.defaultState(i.state.viewportWidth)
	i.autoCorrected = false
	i.gen++
	i.mu.Unlock()

	metrics.RecordStateTransition("reset")
	i.queue.Notify(ctx, "reset")
	return i.Info()
}

// Traces returns the rendered figure for the current view state. A read
// that arrives before the derivation loop has caught up derives inline,
// so callers always see the latest state.
func (i *Instance) Traces(ctx context.Context) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cachedGen != i.gen || (i.cached == nil && i.cacheErr == nil) {
		i.deriveLocked(ctx)
	}
	if i.cacheErr != nil {
		return nil, i.cacheErr
	}
	out := make([]byte, len(i.cached))
	copy(out, i.cached)
	return out, nil
}

// Derive re-runs the pipeline for the current state. It implements
// worker.Deriver and is also called inline by Traces for freshness.
func (i *Instance) Derive(ctx context.Context, _ string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.deriveLocked(ctx)
}

func (i *Instance) deriveLocked(ctx context.Context) {
	gen := i.gen
	q := classify.Query{
		ActiveFacets: i.state.facets,
		Types:        i.state.toggles,
		Time: temporal.Query{
			AllTime: i.state.allTime,
			Year:    i.state.year,
			Mode:    i.state.yearMode,
		},
	}

	inputs := make([]cluster.Input, 0, len(i.dataset.Records))
	for _, rec := range i.dataset.Records {
		if !rec.Mappable() {
			continue
		}
		outcome := i.classifier.Classify(rec, q)
		if !outcome.Included {
			if outcome.MissingYears {
				metrics.RecordRecordGap("years")
			}
			continue
		}
		inputs = append(inputs, cluster.Input{
			Record: rec,
			Status: outcome.Status,
			Type:   outcome.Type,
		})
	}

	mode := cluster.ModeJitter
	if i.state.clusterMode {
		mode = cluster.ModeCluster
	}
	items := i.clusterer.Apply(inputs, mode)
	metrics.UpdateMarkersEmitted(len(items))
	metrics.UpdateClusterGroups(i.clusterer.GroupCount(inputs))

	output := i.builder.Build(i.dataset.Home, items, trace.State{
		ShowCurrent:   i.state.showCurrent,
		ShowPast:      i.state.showPast,
		ShowLabels:    i.state.showLabels,
		View:          i.state.view,
		Scope:         i.chooser.Scope(),
		ViewportWidth: i.state.viewportWidth,
	})

	rendered, err := i.adapter.Render(output)
	if err != nil {
		i.cacheErr = fmt.Errorf("render figure: %w", err)
		i.cached = nil
		i.cachedGen = gen
		i.logger.Warn(ctx, "render failed",
			logger.String("instance", i.id),
			logger.Error(err),
		)
		return
	}

	i.cached = rendered
	i.cacheErr = nil
	i.cachedGen = gen
}

// clampYear keeps a requested year inside the observed range.
func (i *Instance) clampYear(year int) int {
	if !i.yearsOK {
		return year
	}
	if year < i.minYear {
		return i.minYear
	}
	if year > i.maxYear {
		return i.maxYear
	}
	return year
}

func (i *Instance) startPlaybackLocked(ctx context.Context) {
	i.state.playing = true
	stop := make(chan struct{})
	i.playStop = stop

	go func() {
		ticker := time.NewTicker(i.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				i.tick(ctx)
			}
		}
	}()
}

func (i *Instance) stopPlaybackLocked() {
	if !i.state.playing {
		return
	}
	close(i.playStop)
	i.playStop = nil
	i.state.playing = false
}

// tick advances the playback year, wrapping from the end of the observed
// range back to its start.
func (i *Instance) tick(ctx context.Context) {
	i.mu.Lock()
	if !i.state.playing {
		i.mu.Unlock()
		return
	}
	if i.state.allTime {
		i.stopPlaybackLocked()
		i.mu.Unlock()
		i.queue.Notify(ctx, "playback")
		return
	}
	if i.state.year >= i.maxYear {
		i.state.year = i.minYear
	} else {
		i.state.year++
	}
	i.gen++
	i.mu.Unlock()

	metrics.RecordPlaybackTick()
	i.queue.Notify(ctx, "playback")
}

// Close stops playback and drains the derivation loop.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	i.stopPlaybackLocked()
	i.mu.Unlock()
	return i.loop.Shutdown(ctx)
}

func containsType(known []model.EntityType, t model.EntityType) bool {
	for _, k := range known {
		if k == t {
			return true
		}
	}
	return false
}
