package ecs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/akmonengine/dtransform/transform"
)

var (
	ErrNoEntity   = errors.New("ecs: entity does not exist")
	ErrSelfParent = errors.New("ecs: entity cannot be its own parent")
)

// Registry owns entities, their transform components and the parent/child edges between them.
// It is not safe for concurrent structural changes (spawn, despawn, insert, reparent),
// only updates of existing world and render slots of distinct entities may run concurrently.
type Registry struct {
	entities entityStore
	tick     Tick

	locals   *SparseSet[transform.Transform]
	worlds   *SparseSet[transform.Global]
	renders  *SparseSet[transform.Render]
	parents  *SparseSet[Entity]
	children *SparseSet[[]Entity]

	// edgeTicks records, per entity index, the last tick its parent or children changed
	edgeTicks []Tick
	// changes records the last tick any tracked write touched an entity
	changes map[Entity]Tick
}

func NewRegistry() *Registry {
	return &Registry{
		tick:     1,
		locals:   NewSparseSet[transform.Transform](),
		worlds:   NewSparseSet[transform.Global](),
		renders:  NewSparseSet[transform.Render](),
		parents:  NewSparseSet[Entity](),
		children: NewSparseSet[[]Entity](),
		changes:  make(map[Entity]Tick),
	}
}

// ChangeTick returns the tick writes are currently recorded at
func (r *Registry) ChangeTick() Tick {
	return r.tick
}

// IncrementChangeTick returns the current tick and advances the clock,
// so that every write made afterwards is newer than the returned tick
func (r *Registry) IncrementChangeTick() Tick {
	t := r.tick
	r.tick++
	return t
}

// Spawn allocates a new entity without components
func (r *Registry) Spawn() Entity {
	e := r.entities.create()
	for len(r.edgeTicks) < int(e.id()) {
		r.edgeTicks = append(r.edgeTicks, 0)
	}
	r.edgeTicks[e.id()-1] = 0
	return e
}

// Changed returns, in entity order, the live entities whose local transform, world slot,
// render slot or hierarchy edges were written after tick since
func (r *Registry) Changed(since Tick) []Entity {
	out := make([]Entity, 0, len(r.changes))
	for e, tick := range r.changes {
		if tick > since && r.IsAlive(e) {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}

// ForgetChanges drops the change records at or before tick through
func (r *Registry) ForgetChanges(through Tick) {
	for e, tick := range r.changes {
		if tick <= through || !r.IsAlive(e) {
			delete(r.changes, e)
		}
	}
}

func (r *Registry) markChanged(e Entity) {
	r.changes[e] = r.tick
}

// SpawnBundle allocates a new entity carrying a local and a world transform
func (r *Registry) SpawnBundle(b transform.Bundle) Entity {
	e := r.Spawn()
	r.locals.Insert(e, b.Local, r.tick)
	r.worlds.Insert(e, b.Global, r.tick)
	r.markChanged(e)
	return e
}

func (r *Registry) IsAlive(e Entity) bool {
	return r.entities.isAlive(e)
}

func (r *Registry) Len() int {
	return r.entities.count()
}

// Despawn removes the entity and detaches it from its parent.
// Its children keep pointing at it, the propagation reports them until they are reparented.
func (r *Registry) Despawn(e Entity) bool {
	if !r.IsAlive(e) {
		return false
	}
	r.detach(e)
	r.touchChildren(e)
	r.locals.Remove(e)
	r.worlds.Remove(e)
	r.renders.Remove(e)
	r.children.Remove(e)
	r.entities.destroy(e)
	delete(r.changes, e)
	return true
}

// DespawnRecursive removes the entity and all of its descendants
func (r *Registry) DespawnRecursive(e Entity) bool {
	if !r.IsAlive(e) {
		return false
	}
	children, _ := r.children.Get(e)
	for _, child := range append([]Entity(nil), children...) {
		if parent, ok := r.parents.Get(child); ok && parent == e {
			r.DespawnRecursive(child)
		}
	}
	return r.Despawn(e)
}

// =============================================================================
// Components
// =============================================================================

func (r *Registry) InsertBundle(e Entity, b transform.Bundle) error {
	if !r.IsAlive(e) {
		return fmt.Errorf("ecs: insert bundle on %v: %w", e, ErrNoEntity)
	}
	r.locals.Insert(e, b.Local, r.tick)
	r.worlds.Insert(e, b.Global, r.tick)
	r.markChanged(e)
	return nil
}

// SetLocal writes the local transform of e, inserting it if needed
func (r *Registry) SetLocal(e Entity, t transform.Transform) error {
	if !r.IsAlive(e) {
		return fmt.Errorf("ecs: set local on %v: %w", e, ErrNoEntity)
	}
	r.locals.Insert(e, t, r.tick)
	r.markChanged(e)
	return nil
}

func (r *Registry) Local(e Entity) (transform.Transform, bool) {
	return r.locals.Get(e)
}

func (r *Registry) LocalChanged(e Entity, since Tick) bool {
	return r.locals.ChangedSince(e, since)
}

func (r *Registry) World(e Entity) (transform.Global, bool) {
	return r.worlds.Get(e)
}

// SetWorld updates the world transform of an entity that already carries one
func (r *Registry) SetWorld(e Entity, g transform.Global) bool {
	return r.worlds.Set(e, g, r.tick)
}

func (r *Registry) WorldAdded(e Entity, since Tick) bool {
	return r.worlds.AddedSince(e, since)
}

func (r *Registry) WorldChanged(e Entity, since Tick) bool {
	return r.worlds.ChangedSince(e, since)
}

// RemoveWorld drops the world transform of e, its children lose a valid parent
func (r *Registry) RemoveWorld(e Entity) bool {
	if !r.worlds.Remove(e) {
		return false
	}
	r.touchChildren(e)
	return true
}

// InsertRender gives e a render slot, filled by the projection on the next frame
func (r *Registry) InsertRender(e Entity) error {
	if !r.IsAlive(e) {
		return fmt.Errorf("ecs: insert render on %v: %w", e, ErrNoEntity)
	}
	r.renders.Insert(e, transform.RenderIdentity(), r.tick)
	r.markChanged(e)
	return nil
}

func (r *Registry) Render(e Entity) (transform.Render, bool) {
	return r.renders.Get(e)
}

func (r *Registry) SetRender(e Entity, rt transform.Render) bool {
	return r.renders.Set(e, rt, r.tick)
}

func (r *Registry) RenderAdded(e Entity, since Tick) bool {
	return r.renders.AddedSince(e, since)
}

func (r *Registry) RemoveRender(e Entity) bool {
	return r.renders.Remove(e)
}

// Transforms returns the entities carrying both a local and a world transform
func (r *Registry) Transforms() []Entity {
	out := make([]Entity, 0, r.worlds.Len())
	for _, e := range r.worlds.Entities() {
		if r.locals.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// Renderables returns the entities carrying both a world transform and a render slot
func (r *Registry) Renderables() []Entity {
	a, b := r.renders.Entities(), r.worlds
	out := make([]Entity, 0, len(a))
	for _, e := range a {
		if b.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// Hierarchy
// =============================================================================

// SetParent makes child a child of parent, detaching it from its previous parent.
// Cycles longer than a self edge are not detected, keeping the hierarchy acyclic is up to the caller.
func (r *Registry) SetParent(child, parent Entity) error {
	if child == parent {
		return fmt.Errorf("ecs: set parent of %v: %w", child, ErrSelfParent)
	}
	if !r.IsAlive(child) {
		return fmt.Errorf("ecs: set parent of %v: %w", child, ErrNoEntity)
	}
	if !r.IsAlive(parent) {
		return fmt.Errorf("ecs: set parent %v of %v: %w", parent, child, ErrNoEntity)
	}
	if current, ok := r.parents.Get(child); ok && current == parent {
		return nil
	}

	r.detach(child)
	r.parents.Insert(child, parent, r.tick)
	siblings, _ := r.children.Get(parent)
	r.children.Insert(parent, append(siblings, child), r.tick)
	r.touchEdge(child)
	r.touchEdge(parent)
	return nil
}

// RemoveParent detaches child from its parent, making it a root
func (r *Registry) RemoveParent(child Entity) bool {
	if !r.parents.Has(child) {
		return false
	}
	r.detach(child)
	return true
}

// AddChildWithTransform sets the local transform of child, gives it a world transform,
// and attaches it to parent in one call
func (r *Registry) AddChildWithTransform(parent, child Entity, local transform.Transform) error {
	if err := r.InsertBundle(child, transform.FromTransform(local)); err != nil {
		return err
	}
	return r.SetParent(child, parent)
}

// SpawnChild spawns a new entity with the given local transform under parent
func (r *Registry) SpawnChild(parent Entity, local transform.Transform) (Entity, error) {
	child := r.SpawnBundle(transform.FromTransform(local))
	if err := r.SetParent(child, parent); err != nil {
		r.Despawn(child)
		return Invalid, err
	}
	return child, nil
}

func (r *Registry) Parent(e Entity) (Entity, bool) {
	return r.parents.Get(e)
}

// Children returns the children of e, the slice must not be modified
func (r *Registry) Children(e Entity) []Entity {
	children, _ := r.children.Get(e)
	return children
}

// HierarchyChanged reports whether the parent or the children of e changed after tick since
func (r *Registry) HierarchyChanged(e Entity, since Tick) bool {
	id := int(e.id())
	if id <= 0 || id > len(r.edgeTicks) || !r.IsAlive(e) {
		return false
	}
	return r.edgeTicks[id-1] > since
}

func (r *Registry) detach(child Entity) {
	parent, ok := r.parents.Get(child)
	if !ok {
		return
	}
	r.parents.Remove(child)
	r.touchEdge(child)

	siblings, ok := r.children.Get(parent)
	if !ok {
		return
	}
	kept := make([]Entity, 0, len(siblings))
	for _, s := range siblings {
		if s != child {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		r.children.Remove(parent)
	} else {
		r.children.Insert(parent, kept, r.tick)
	}
	r.touchEdge(parent)
}

func (r *Registry) touchEdge(e Entity) {
	if !r.IsAlive(e) {
		return
	}
	r.edgeTicks[e.id()-1] = r.tick
	r.markChanged(e)
}

func (r *Registry) touchChildren(e Entity) {
	for _, child := range r.Children(e) {
		r.touchEdge(child)
	}
}
