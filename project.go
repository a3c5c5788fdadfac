package dtransform

import (
	"github.com/akmonengine/dtransform/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

type ProjectOptions struct {
	Origin mgl64.Vec3
	// All reprojects every renderable entity, it is required whenever the origin moved
	All bool
	// Changed lists the entities whose world transform was written this frame
	Changed []ecs.Entity
	// Since is the tick of the previous projection, render slots added after it are filled
	Since   ecs.Tick
	Workers int
}

// ProjectTransforms writes the render transform of entities carrying a world transform and a render slot:
// the origin is subtracted in double precision before narrowing to single precision.
// It returns the number of render transforms written.
func ProjectTransforms(store RenderStore, opts ProjectOptions) int {
	var targets []ecs.Entity
	if opts.All {
		targets = store.Renderables()
	} else {
		targets = pendingRenderables(store, opts.Changed, opts.Since)
	}

	task(opts.Workers, targets, func(e ecs.Entity) {
		world, ok := store.World(e)
		if !ok {
			return
		}
		store.SetRender(e, world.Narrow(opts.Origin))
	})

	return len(targets)
}

// pendingRenderables returns, without duplicates, the renderable entities whose world changed
// or whose render slot was added after since
func pendingRenderables(store RenderStore, changed []ecs.Entity, since ecs.Tick) []ecs.Entity {
	seen := make(map[ecs.Entity]bool, len(changed))
	out := make([]ecs.Entity, 0, len(changed))

	add := func(e ecs.Entity) {
		if seen[e] {
			return
		}
		seen[e] = true
		if _, ok := store.World(e); !ok {
			return
		}
		out = append(out, e)
	}

	for _, e := range changed {
		if _, ok := store.Render(e); ok {
			add(e)
		}
	}
	for _, e := range store.Changed(since) {
		if store.RenderAdded(e, since) {
			add(e)
		}
	}
	return out
}
