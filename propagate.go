package dtransform

import (
	"github.com/akmonengine/dtransform/ecs"
	"github.com/akmonengine/dtransform/transform"
)

// DEFAULT_MAX_DEPTH bounds the hierarchy walks, deeper chains are reported and cut
const DEFAULT_MAX_DEPTH = 4096

type PropagateOptions struct {
	// Since is the tick of the previous propagation, writes after it are considered changed
	Since    ecs.Tick
	MaxDepth int
	Workers  int
	Reporter Reporter
}

// subtree is a changed entity none of whose ancestors changed, its whole subtree is recomputed
type subtree struct {
	slot   int
	entity ecs.Entity
	root   bool
	parent transform.Global
}

type propagator struct {
	store    TransformStore
	since    ecs.Tick
	maxDepth int
	reporter Reporter
}

// PropagateTransforms recomputes the world transform of every entity that is part of a hierarchy
// and whose local transform, hierarchy edges or world slot changed after opts.Since,
// together with all of its descendants. Unchanged subtrees are not visited.
//
// An entity whose parent has no local and world transform is reported and propagated as a root.
// It returns the entities whose world transform was written.
func PropagateTransforms(store TransformStore, opts PropagateOptions) []ecs.Entity {
	p := propagator{
		store:    store,
		since:    opts.Since,
		maxDepth: opts.MaxDepth,
		reporter: opts.Reporter,
	}
	if p.maxDepth <= 0 {
		p.maxDepth = DEFAULT_MAX_DEPTH
	}

	dirty := make(map[ecs.Entity]bool)
	var candidates []ecs.Entity
	for _, e := range store.Changed(opts.Since) {
		// Entities outside any hierarchy belong to SyncSimpleTransforms, which may be writing them right now
		if _, hasParent := store.Parent(e); !hasParent && len(store.Children(e)) == 0 {
			continue
		}
		if !hasTransforms(store, e) || !transformDirty(store, e, opts.Since) {
			continue
		}
		dirty[e] = true
		candidates = append(candidates, e)
	}

	subtrees := make([]subtree, 0, len(candidates))
	for _, e := range candidates {
		if s, ok := p.start(e, dirty); ok {
			s.slot = len(subtrees)
			subtrees = append(subtrees, s)
		}
	}

	written := make([][]ecs.Entity, len(subtrees))
	task(opts.Workers, subtrees, func(s subtree) {
		written[s.slot] = p.recompute(s, written[s.slot])
	})

	var changed []ecs.Entity
	for _, w := range written {
		changed = append(changed, w...)
	}
	return changed
}

// start finds the world transform e composes with.
// It returns false when an ancestor of e changed too, that ancestor's recompute covers e.
func (p *propagator) start(e ecs.Entity, dirty map[ecs.Entity]bool) (subtree, bool) {
	parent, hasParent := p.store.Parent(e)
	if !hasParent {
		return subtree{entity: e, root: true}, true
	}
	if !hasTransforms(p.store, parent) {
		report(p.reporter, ParentInvalidEvent{Entity: e, Parent: parent})
		return subtree{entity: e, root: true}, true
	}

	for current, depth := parent, 1; ; depth++ {
		if dirty[current] {
			return subtree{}, false
		}
		if depth > p.maxDepth {
			report(p.reporter, HierarchyTooDeepEvent{Entity: e, Depth: depth})
			return subtree{}, false
		}
		next, ok := p.store.Parent(current)
		if !ok || !hasTransforms(p.store, next) {
			break
		}
		current = next
	}

	world, _ := p.store.World(parent)
	return subtree{entity: e, parent: world}, true
}

func (p *propagator) recompute(s subtree, written []ecs.Entity) []ecs.Entity {
	local, _ := p.store.Local(s.entity)

	var world transform.Global
	if s.root {
		world = transform.FromLocal(local)
	} else {
		world = s.parent.Mul(local)
	}
	p.store.SetWorld(s.entity, world)
	written = append(written, s.entity)

	for _, child := range p.store.Children(s.entity) {
		written = p.walk(s.entity, world, child, 1, written)
	}
	return written
}

// walk writes the world transform of e and its descendants, parents strictly before children
func (p *propagator) walk(parent ecs.Entity, parentWorld transform.Global, e ecs.Entity, depth int, written []ecs.Entity) []ecs.Entity {
	if depth > p.maxDepth {
		report(p.reporter, HierarchyTooDeepEvent{Entity: e, Depth: depth})
		return written
	}
	if actual, ok := p.store.Parent(e); !ok || actual != parent {
		report(p.reporter, HierarchyMalformedEvent{Parent: parent, Child: e})
		return written
	}
	local, hasLocal := p.store.Local(e)
	if !hasLocal {
		return written
	}

	world := parentWorld.Mul(local)
	if !p.store.SetWorld(e, world) {
		return written
	}
	written = append(written, e)

	for _, child := range p.store.Children(e) {
		written = p.walk(e, world, child, depth+1, written)
	}
	return written
}
