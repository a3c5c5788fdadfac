package dtransform

import (
	"fmt"
	"log"
	"os"

	"github.com/akmonengine/dtransform/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// Pass names, usable to order host passes around the transform passes
const (
	PASS_SYNC      = "sync_simple_transforms"
	PASS_PROPAGATE = "propagate_transforms"
	PASS_RESOLVE   = "resolve_origin"
	PASS_PROJECT   = "project_transforms"
)

// Stats describes the work done by the last frame
type Stats struct {
	Frame          uint64
	Synced         int
	Propagated     int
	Projected      int
	InvalidParents int
	OriginStale    bool
	Origin         mgl64.Vec3
}

type World struct {
	Store Store
	// Workers is the number of goroutines a pass may split its entities across
	Workers int
	// MaxDepth bounds hierarchy walks, a cycle in the hierarchy is cut and reported there
	MaxDepth int
	// Logger receives the diagnostics, nil disables logging
	Logger *log.Logger
	Events *Events

	origin   Origin
	resolved ResolvedOrigin
	stale    bool

	started   bool
	projected bool
	since     ecs.Tick
	lastRun   ecs.Tick

	// per frame results handed from one pass to the next
	synced      []ecs.Entity
	propagated  []ecs.Entity
	originMoved bool
	projections int

	startup *Schedule
	update  *Schedule

	warned         map[ecs.Entity]bool
	staleLogged    bool
	invalidParents int
	stats          Stats
}

// NewWorld creates a world driving the transform passes over store.
// The origin starts as a fixed position at the world origin.
func NewWorld(store Store) (*World, error) {
	w := &World{
		Store:    store,
		Workers:  DEFAULT_WORKERS,
		MaxDepth: DEFAULT_MAX_DEPTH,
		Logger:   log.New(os.Stderr, "dtransform: ", log.LstdFlags),
		Events:   NewEvents(),
		origin:   DefaultOrigin(),
		warned:   make(map[ecs.Entity]bool),
	}

	var err error
	if w.startup, err = w.startupSchedule(); err != nil {
		return nil, fmt.Errorf("dtransform: startup schedule: %w", err)
	}
	if w.update, err = w.updateSchedule(); err != nil {
		return nil, fmt.Errorf("dtransform: update schedule: %w", err)
	}
	return w, nil
}

func (w *World) startupSchedule() (*Schedule, error) {
	s := NewSchedule()
	if err := s.Add(PASS_SYNC, w.syncPass); err != nil {
		return nil, err
	}
	if err := s.Add(PASS_PROPAGATE, w.propagatePass); err != nil {
		return nil, err
	}
	if err := s.AmbiguousWith(PASS_SYNC, PASS_PROPAGATE); err != nil {
		return nil, err
	}
	return s, s.Build()
}

func (w *World) updateSchedule() (*Schedule, error) {
	s := NewSchedule()
	passes := []struct {
		name string
		run  func()
	}{
		{PASS_SYNC, w.syncPass},
		{PASS_PROPAGATE, w.propagatePass},
		{PASS_RESOLVE, w.resolvePass},
		{PASS_PROJECT, w.projectPass},
	}
	for _, p := range passes {
		if err := s.Add(p.name, p.run); err != nil {
			return nil, err
		}
	}

	// Sync and propagate write the world transforms of disjoint entities
	// (outside any hierarchy, inside one), everything else is strictly ordered
	order := [][2]string{
		{PASS_SYNC, PASS_RESOLVE},
		{PASS_PROPAGATE, PASS_RESOLVE},
		{PASS_RESOLVE, PASS_PROJECT},
	}
	for _, o := range order {
		if err := s.Before(o[0], o[1]); err != nil {
			return nil, err
		}
	}
	if err := s.AmbiguousWith(PASS_SYNC, PASS_PROPAGATE); err != nil {
		return nil, err
	}
	return s, s.Build()
}

// SetOrigin replaces the origin state, it takes effect on the next resolution. nil restores the default origin.
// Replacing the state ends a stale episode without an ORIGIN_RECOVERED event.
func (w *World) SetOrigin(origin Origin) {
	if origin == nil {
		origin = DefaultOrigin()
	}
	w.origin = origin
	w.stale = false
	w.staleLogged = false
}

func (w *World) Origin() Origin {
	return w.origin
}

// ResolvedOrigin returns the origin the last projection subtracted
func (w *World) ResolvedOrigin() ResolvedOrigin {
	return w.resolved
}

func (w *World) Stats() Stats {
	return w.stats
}

// Startup propagates every transform once, so that the first frame starts consistent.
// Step calls it when it was not called explicitly.
func (w *World) Startup() error {
	w.beginFrame()
	if err := w.startup.Run(w.Workers); err != nil {
		return err
	}
	w.started = true
	w.endFrame()
	return nil
}

// Step runs one frame: sync and propagation, then origin resolution, then projection
func (w *World) Step() error {
	if !w.started {
		if err := w.Startup(); err != nil {
			return err
		}
	}

	w.beginFrame()
	if err := w.update.Run(w.Workers); err != nil {
		return err
	}
	w.endFrame()
	return nil
}

func (w *World) beginFrame() {
	w.Workers = max(DEFAULT_WORKERS, w.Workers)
	w.since = w.lastRun
	w.lastRun = w.Store.IncrementChangeTick()
	w.synced, w.propagated = nil, nil
	w.originMoved = false
	w.projections = 0
	w.invalidParents = 0
}

func (w *World) endFrame() {
	w.Store.ForgetChanges(w.lastRun)
	w.Events.flush(w.inspect)
	w.pruneWarned()

	w.stats = Stats{
		Frame:          w.stats.Frame + 1,
		Synced:         len(w.synced),
		Propagated:     len(w.propagated),
		Projected:      w.projections,
		InvalidParents: w.invalidParents,
		OriginStale:    w.stale,
		Origin:         w.resolved.Position,
	}
}

// =============================================================================
// Passes
// =============================================================================

func (w *World) syncPass() {
	w.synced = SyncSimpleTransforms(w.Store, w.since, w.Workers)
}

func (w *World) propagatePass() {
	w.propagated = PropagateTransforms(w.Store, PropagateOptions{
		Since:    w.since,
		MaxDepth: w.MaxDepth,
		Workers:  w.Workers,
		Reporter: w.Events,
	})
}

func (w *World) resolvePass() {
	resolved, status := ResolveOrigin(w.origin, w.Store, w.resolved)

	pinned := ecs.Invalid
	if p, ok := w.origin.(PinnedToEntity); ok {
		pinned = p.Entity
	}
	switch {
	case status == OriginStale:
		w.Events.Report(OriginStaleEvent{Entity: pinned, Origin: resolved.Position})
	case w.stale:
		// SetOrigin clears stale, so this is the same pin resolving again
		w.Events.Report(OriginRecoveredEvent{Entity: pinned, Origin: resolved.Position})
	}
	w.stale = status == OriginStale

	if resolved != w.resolved {
		w.Events.Report(OriginShiftedEvent{Previous: w.resolved.Position, Current: resolved.Position})
		w.originMoved = true
	}
	w.resolved = resolved
}

func (w *World) projectPass() {
	changed := make([]ecs.Entity, 0, len(w.synced)+len(w.propagated))
	changed = append(changed, w.synced...)
	changed = append(changed, w.propagated...)

	w.projections = ProjectTransforms(w.Store, ProjectOptions{
		Origin:  w.resolved.Position,
		All:     w.originMoved || !w.projected,
		Changed: changed,
		Since:   w.since,
		Workers: w.Workers,
	})
	w.projected = true
}

// =============================================================================
// Diagnostics
// =============================================================================

// inspect counts and logs the events of the frame before they reach the listeners
func (w *World) inspect(event Event) {
	switch e := event.(type) {
	case ParentInvalidEvent:
		w.invalidParents++
		// warn once per entity, the condition repeats every frame the entity changes
		if !w.warned[e.Entity] {
			w.warned[e.Entity] = true
			w.logf("entity %v has parent %v without a transform, propagating it as a root", e.Entity, e.Parent)
		}
	case HierarchyMalformedEvent:
		w.logf("entity %v is listed as a child of %v but has another parent, skipping it", e.Child, e.Parent)
	case HierarchyTooDeepEvent:
		w.logf("hierarchy under entity %v exceeds depth %d, is there a cycle?", e.Entity, e.Depth-1)
	case OriginStaleEvent:
		if !w.staleLogged {
			w.staleLogged = true
			w.logf("origin entity %v has no world transform, keeping origin %v", e.Entity, e.Origin)
		}
	case OriginRecoveredEvent:
		w.staleLogged = false
		w.logf("origin resolved again at %v", e.Origin)
	}
}

// pruneWarned forgets the entities that lost their world transform, despawned ones included
func (w *World) pruneWarned() {
	for e := range w.warned {
		if _, ok := w.Store.World(e); !ok {
			delete(w.warned, e)
		}
	}
}

func (w *World) logf(format string, args ...any) {
	if w.Logger != nil {
		w.Logger.Printf(format, args...)
	}
}
