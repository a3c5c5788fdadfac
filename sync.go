package dtransform

import (
	"github.com/akmonengine/dtransform/ecs"
	"github.com/akmonengine/dtransform/transform"
)

// SyncSimpleTransforms copies the local transform into the world transform of every entity
// outside any hierarchy (no parent, no children) that changed after tick since.
// It returns the entities whose world transform was written.
func SyncSimpleTransforms(store TransformStore, since ecs.Tick, workers int) []ecs.Entity {
	changed := store.Changed(since)
	simple := make([]ecs.Entity, 0, len(changed))
	for _, e := range changed {
		if _, hasParent := store.Parent(e); hasParent || len(store.Children(e)) > 0 {
			continue
		}
		if !hasTransforms(store, e) || !transformDirty(store, e, since) {
			continue
		}
		simple = append(simple, e)
	}

	task(workers, simple, func(e ecs.Entity) {
		local, _ := store.Local(e)
		store.SetWorld(e, transform.FromLocal(local))
	})

	return simple
}
