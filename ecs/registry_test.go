package ecs

import (
	"errors"
	"slices"
	"testing"

	"github.com/akmonengine/dtransform/transform"
	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// Entity Tests
// =============================================================================

func TestEntity_Packing(t *testing.T) {
	e := makeEntity(42, 7)

	if e.id() != 42 || e.generation() != 7 {
		t.Errorf("makeEntity(42, 7) unpacks to %d, %d", e.id(), e.generation())
	}
	if e.String() != "42v7" {
		t.Errorf("String() = %q, want 42v7", e.String())
	}
	if !e.Valid() || Invalid.Valid() {
		t.Error("Valid() mismatch")
	}
}

func TestRegistry_SpawnDespawnReuse(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn()
	b := r.Spawn()

	if a == Invalid || a == b {
		t.Fatalf("Spawn() returned %v and %v", a, b)
	}
	if !r.Despawn(a) {
		t.Fatal("Despawn(a) = false")
	}
	if r.IsAlive(a) || r.Despawn(a) {
		t.Error("a is still alive after Despawn")
	}

	c := r.Spawn()
	if c.Index() != a.Index() || c == a {
		t.Errorf("Spawn() = %v, want the slot of %v with a new generation", c, a)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

// =============================================================================
// Component Tests
// =============================================================================

func TestRegistry_Components(t *testing.T) {
	r := NewRegistry()
	e := r.SpawnBundle(transform.FromTransform(transform.FromXYZ(1, 2, 3)))

	if l, ok := r.Local(e); !ok || l.Translation != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("Local() = %v, %v", l, ok)
	}
	if g, ok := r.World(e); !ok || g != transform.GlobalIdentity() {
		t.Errorf("World() = %v, %v, want identity", g, ok)
	}
	if _, ok := r.Render(e); ok {
		t.Error("Render() present before InsertRender")
	}
	if err := r.InsertRender(e); err != nil {
		t.Fatalf("InsertRender() error = %v", err)
	}
	if !slices.Equal(r.Renderables(), []Entity{e}) {
		t.Errorf("Renderables() = %v", r.Renderables())
	}
	if !slices.Equal(r.Transforms(), []Entity{e}) {
		t.Errorf("Transforms() = %v", r.Transforms())
	}

	if !r.RemoveRender(e) || r.RemoveRender(e) {
		t.Error("RemoveRender() mismatch")
	}
	if len(r.Renderables()) != 0 {
		t.Errorf("Renderables() = %v after RemoveRender", r.Renderables())
	}

	r.Despawn(e)
	if err := r.SetLocal(e, transform.Identity()); !errors.Is(err, ErrNoEntity) {
		t.Errorf("SetLocal() on despawned error = %v, want ErrNoEntity", err)
	}
	if err := r.InsertRender(e); !errors.Is(err, ErrNoEntity) {
		t.Errorf("InsertRender() on despawned error = %v, want ErrNoEntity", err)
	}
	if len(r.Renderables()) != 0 {
		t.Errorf("Renderables() = %v after Despawn", r.Renderables())
	}
}

func TestRegistry_SetWorldRequiresSlot(t *testing.T) {
	r := NewRegistry()
	e := r.Spawn()

	if r.SetWorld(e, transform.GlobalIdentity()) {
		t.Error("SetWorld() without a world slot = true, want false")
	}
	if _, ok := r.World(e); ok {
		t.Error("SetWorld() created a world slot")
	}
}

// =============================================================================
// Change Detection Tests
// =============================================================================

func TestRegistry_ChangeLog(t *testing.T) {
	r := NewRegistry()
	a := r.SpawnBundle(transform.IdentityBundle())
	b := r.SpawnBundle(transform.IdentityBundle())

	since := r.IncrementChangeTick()
	if r.ChangeTick() != since+1 {
		t.Errorf("ChangeTick() = %d, want %d after IncrementChangeTick", r.ChangeTick(), since+1)
	}
	if got := r.Changed(0); !slices.Equal(got, []Entity{a, b}) {
		t.Errorf("Changed(0) = %v, want [%v %v]", got, a, b)
	}
	if got := r.Changed(since); len(got) != 0 {
		t.Errorf("Changed(since) = %v, want nothing", got)
	}

	if err := r.SetLocal(b, transform.FromXYZ(1, 0, 0)); err != nil {
		t.Fatalf("SetLocal() error = %v", err)
	}
	// world writes are outputs of the passes and are not logged
	r.SetWorld(a, transform.GlobalIdentity())

	if got := r.Changed(since); !slices.Equal(got, []Entity{b}) {
		t.Errorf("Changed(since) = %v, want [%v]", got, b)
	}
	if !r.LocalChanged(b, since) || r.LocalChanged(a, since) {
		t.Error("LocalChanged() mismatch")
	}
	if !r.WorldChanged(a, since) {
		t.Error("WorldChanged(a) = false after SetWorld")
	}

	r.ForgetChanges(since)
	if got := r.Changed(0); !slices.Equal(got, []Entity{b}) {
		t.Errorf("Changed(0) after ForgetChanges = %v, want [%v]", got, b)
	}
}

func TestRegistry_DespawnedNotInChangeLog(t *testing.T) {
	r := NewRegistry()
	e := r.SpawnBundle(transform.IdentityBundle())
	r.Despawn(e)

	if got := r.Changed(0); len(got) != 0 {
		t.Errorf("Changed(0) = %v, want nothing", got)
	}
}

// =============================================================================
// Hierarchy Tests
// =============================================================================

func TestRegistry_SetParent(t *testing.T) {
	r := NewRegistry()
	parent := r.SpawnBundle(transform.IdentityBundle())
	a := r.SpawnBundle(transform.IdentityBundle())
	b := r.SpawnBundle(transform.IdentityBundle())

	since := r.IncrementChangeTick()
	if err := r.SetParent(a, parent); err != nil {
		t.Fatalf("SetParent(a) error = %v", err)
	}
	if err := r.SetParent(b, parent); err != nil {
		t.Fatalf("SetParent(b) error = %v", err)
	}

	if p, ok := r.Parent(a); !ok || p != parent {
		t.Errorf("Parent(a) = %v, %v", p, ok)
	}
	if got := r.Children(parent); !slices.Equal(got, []Entity{a, b}) {
		t.Errorf("Children(parent) = %v", got)
	}
	for _, e := range []Entity{parent, a, b} {
		if !r.HierarchyChanged(e, since) {
			t.Errorf("HierarchyChanged(%v) = false", e)
		}
	}

	// moving a to b
	if err := r.SetParent(a, b); err != nil {
		t.Fatalf("SetParent(a, b) error = %v", err)
	}
	if got := r.Children(parent); !slices.Equal(got, []Entity{b}) {
		t.Errorf("Children(parent) = %v, want [%v]", got, b)
	}
	if got := r.Children(b); !slices.Equal(got, []Entity{a}) {
		t.Errorf("Children(b) = %v, want [%v]", got, a)
	}

	if !r.RemoveParent(a) || r.RemoveParent(a) {
		t.Error("RemoveParent() mismatch")
	}
	if len(r.Children(b)) != 0 {
		t.Errorf("Children(b) = %v after RemoveParent", r.Children(b))
	}
}

func TestRegistry_SetParentErrors(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn()
	dead := r.Spawn()
	r.Despawn(dead)

	tests := []struct {
		name          string
		child, parent Entity
		want          error
	}{
		{"self", a, a, ErrSelfParent},
		{"dead parent", a, dead, ErrNoEntity},
		{"dead child", dead, a, ErrNoEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.SetParent(tt.child, tt.parent); !errors.Is(err, tt.want) {
				t.Errorf("SetParent() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := r.SpawnChild(dead, transform.Identity()); !errors.Is(err, ErrNoEntity) {
		t.Errorf("SpawnChild(dead) error = %v, want ErrNoEntity", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, a failed SpawnChild must not leak an entity", r.Len())
	}
}

func TestRegistry_AddChildWithTransform(t *testing.T) {
	r := NewRegistry()
	parent := r.SpawnBundle(transform.IdentityBundle())
	child := r.Spawn()

	if err := r.AddChildWithTransform(parent, child, transform.FromXYZ(0, 0, 9)); err != nil {
		t.Fatalf("AddChildWithTransform() error = %v", err)
	}
	if l, _ := r.Local(child); l.Translation != (mgl64.Vec3{0, 0, 9}) {
		t.Errorf("Local(child) = %v", l)
	}
	if _, ok := r.World(child); !ok {
		t.Error("child has no world transform")
	}
	if p, _ := r.Parent(child); p != parent {
		t.Errorf("Parent(child) = %v, want %v", p, parent)
	}
}

func TestRegistry_DespawnTouchesChildren(t *testing.T) {
	r := NewRegistry()
	parent := r.SpawnBundle(transform.IdentityBundle())
	child, err := r.SpawnChild(parent, transform.Identity())
	if err != nil {
		t.Fatalf("SpawnChild() error = %v", err)
	}

	since := r.IncrementChangeTick()
	r.Despawn(parent)

	if p, ok := r.Parent(child); !ok || p != parent {
		t.Errorf("Parent(child) = %v, %v, want the dangling %v", p, ok, parent)
	}
	if !r.HierarchyChanged(child, since) {
		t.Error("HierarchyChanged(child) = false after its parent was despawned")
	}
	if got := r.Changed(since); !slices.Equal(got, []Entity{child}) {
		t.Errorf("Changed(since) = %v, want [%v]", got, child)
	}
}

func TestRegistry_DespawnRecursive(t *testing.T) {
	r := NewRegistry()
	root := r.SpawnBundle(transform.IdentityBundle())
	child, _ := r.SpawnChild(root, transform.Identity())
	grandchild, _ := r.SpawnChild(child, transform.Identity())
	other := r.SpawnBundle(transform.IdentityBundle())

	if !r.DespawnRecursive(root) {
		t.Fatal("DespawnRecursive() = false")
	}
	for _, e := range []Entity{root, child, grandchild} {
		if r.IsAlive(e) {
			t.Errorf("%v is still alive", e)
		}
	}
	if !r.IsAlive(other) {
		t.Error("an unrelated entity was despawned")
	}
}
