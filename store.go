package dtransform

import (
	"github.com/akmonengine/dtransform/ecs"
	"github.com/akmonengine/dtransform/transform"
)

// Hierarchy exposes the parent/child edges owned by the host.
// The edges must be acyclic, MaxDepth only bounds the damage when they are not.
type Hierarchy interface {
	Parent(e ecs.Entity) (ecs.Entity, bool)
	Children(e ecs.Entity) []ecs.Entity
	HierarchyChanged(e ecs.Entity, since ecs.Tick) bool
}

type LocalReader interface {
	Local(e ecs.Entity) (transform.Transform, bool)
	LocalChanged(e ecs.Entity, since ecs.Tick) bool
}

type WorldReader interface {
	World(e ecs.Entity) (transform.Global, bool)
}

// WorldWriter updates existing world slots, entities without one are left alone
type WorldWriter interface {
	SetWorld(e ecs.Entity, g transform.Global) bool
	WorldAdded(e ecs.Entity, since ecs.Tick) bool
}

// RenderSlots gives access to the single precision transforms owned by the renderer
type RenderSlots interface {
	Render(e ecs.Entity) (transform.Render, bool)
	SetRender(e ecs.Entity, r transform.Render) bool
	RenderAdded(e ecs.Entity, since ecs.Tick) bool
	Renderables() []ecs.Entity
}

// ChangeTracker lists the entities written after a tick, so that the passes only visit what changed
type ChangeTracker interface {
	Changed(since ecs.Tick) []ecs.Entity
}

// transformDirty reports whether the world transform of e has to be recomputed from its own data
func transformDirty(store TransformStore, e ecs.Entity, since ecs.Tick) bool {
	return store.LocalChanged(e, since) || store.WorldAdded(e, since) || store.HierarchyChanged(e, since)
}

func hasTransforms(store TransformStore, e ecs.Entity) bool {
	if _, ok := store.Local(e); !ok {
		return false
	}
	_, ok := store.World(e)
	return ok
}

// TransformStore is what the sync and propagation passes need from the host
type TransformStore interface {
	Hierarchy
	LocalReader
	WorldReader
	WorldWriter
	ChangeTracker
}

// RenderStore is what the projection pass needs from the host
type RenderStore interface {
	WorldReader
	RenderSlots
	ChangeTracker
}

// Store is the full host surface a World drives every frame
type Store interface {
	TransformStore
	RenderSlots
	IncrementChangeTick() ecs.Tick
	ForgetChanges(through ecs.Tick)
}

var _ Store = (*ecs.Registry)(nil)
