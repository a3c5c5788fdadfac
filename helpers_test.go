package dtransform

import (
	"slices"
	"sync"
	"testing"

	"github.com/akmonengine/dtransform/ecs"
	"github.com/akmonengine/dtransform/transform"
	"github.com/go-gl/mathgl/mgl64"
)

// newTestWorld creates a silent world over a fresh registry, already past its startup frame
func newTestWorld(t *testing.T) (*World, *ecs.Registry) {
	t.Helper()

	reg := ecs.NewRegistry()
	w, err := NewWorld(reg)
	if err != nil {
		t.Fatalf("NewWorld() error = %v", err)
	}
	w.Logger = nil
	if err := w.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	return w, reg
}

func step(t *testing.T, w *World) {
	t.Helper()
	if err := w.Step(); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
}

func spawnAt(t *testing.T, reg *ecs.Registry, x, y, z float64, render bool) ecs.Entity {
	t.Helper()
	e := reg.SpawnBundle(transform.FromTransform(transform.FromXYZ(x, y, z)))
	if render {
		if err := reg.InsertRender(e); err != nil {
			t.Fatalf("InsertRender(%v) error = %v", e, err)
		}
	}
	return e
}

func spawnChildAt(t *testing.T, reg *ecs.Registry, parent ecs.Entity, local transform.Transform, render bool) ecs.Entity {
	t.Helper()
	e, err := reg.SpawnChild(parent, local)
	if err != nil {
		t.Fatalf("SpawnChild(%v) error = %v", parent, err)
	}
	if render {
		if err := reg.InsertRender(e); err != nil {
			t.Fatalf("InsertRender(%v) error = %v", e, err)
		}
	}
	return e
}

func worldOf(t *testing.T, reg *ecs.Registry, e ecs.Entity) transform.Global {
	t.Helper()
	g, ok := reg.World(e)
	if !ok {
		t.Fatalf("entity %v has no world transform", e)
	}
	return g
}

func renderOf(t *testing.T, reg *ecs.Registry, e ecs.Entity) transform.Render {
	t.Helper()
	r, ok := reg.Render(e)
	if !ok {
		t.Fatalf("entity %v has no render transform", e)
	}
	return r
}

func vecApprox(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

// captureReporter records reported events, it is safe for concurrent use
type captureReporter struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureReporter) Report(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureReporter) count(eventType EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

// mapStore is a TransformStore whose edges can disagree with each other, which a Registry never allows.
// Every entity listed in dirty is considered changed, whatever the tick.
type mapStore struct {
	locals   map[ecs.Entity]transform.Transform
	worlds   map[ecs.Entity]transform.Global
	parents  map[ecs.Entity]ecs.Entity
	children map[ecs.Entity][]ecs.Entity
	dirty    map[ecs.Entity]bool
}

func newMapStore() *mapStore {
	return &mapStore{
		locals:   make(map[ecs.Entity]transform.Transform),
		worlds:   make(map[ecs.Entity]transform.Global),
		parents:  make(map[ecs.Entity]ecs.Entity),
		children: make(map[ecs.Entity][]ecs.Entity),
		dirty:    make(map[ecs.Entity]bool),
	}
}

func (m *mapStore) add(e ecs.Entity, local transform.Transform) {
	m.locals[e] = local
	m.worlds[e] = transform.GlobalIdentity()
	m.dirty[e] = true
}

func (m *mapStore) Parent(e ecs.Entity) (ecs.Entity, bool) {
	p, ok := m.parents[e]
	return p, ok
}

func (m *mapStore) Children(e ecs.Entity) []ecs.Entity { return m.children[e] }

func (m *mapStore) HierarchyChanged(e ecs.Entity, since ecs.Tick) bool { return m.dirty[e] }

func (m *mapStore) Local(e ecs.Entity) (transform.Transform, bool) {
	l, ok := m.locals[e]
	return l, ok
}

func (m *mapStore) LocalChanged(e ecs.Entity, since ecs.Tick) bool { return m.dirty[e] }

func (m *mapStore) World(e ecs.Entity) (transform.Global, bool) {
	g, ok := m.worlds[e]
	return g, ok
}

func (m *mapStore) SetWorld(e ecs.Entity, g transform.Global) bool {
	if _, ok := m.worlds[e]; !ok {
		return false
	}
	m.worlds[e] = g
	return true
}

func (m *mapStore) WorldAdded(e ecs.Entity, since ecs.Tick) bool { return false }

func (m *mapStore) Changed(since ecs.Tick) []ecs.Entity {
	out := make([]ecs.Entity, 0, len(m.dirty))
	for e := range m.dirty {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
