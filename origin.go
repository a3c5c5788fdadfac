package dtransform

import (
	"github.com/akmonengine/dtransform/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// Origin describes where the render space origin sits in the world.
// It is either a FixedPosition or a PinnedToEntity.
type Origin interface {
	isOrigin()
}

// FixedPosition puts the origin at a literal world point
type FixedPosition struct {
	Position mgl64.Vec3
}

// PinnedToEntity makes the origin follow the world translation of an entity, every frame
type PinnedToEntity struct {
	Entity ecs.Entity
}

func (FixedPosition) isOrigin()  {}
func (PinnedToEntity) isOrigin() {}

// DefaultOrigin is the origin a World starts with: the world origin itself
func DefaultOrigin() Origin {
	return FixedPosition{Position: mgl64.Vec3{0, 0, 0}}
}

// ResolvedOrigin is the origin value the projection subtracts this frame
type ResolvedOrigin struct {
	Position mgl64.Vec3
}

type OriginStatus uint8

const (
	OriginResolved OriginStatus = iota
	// OriginStale means the pinned entity has no world transform, the previous origin was kept
	OriginStale
)

// ResolveOrigin computes the origin for this frame.
// A pinned entity that is missing or has no world transform keeps the previous origin:
// falling back to a fixed position would make the whole scene jump.
func ResolveOrigin(state Origin, worlds WorldReader, previous ResolvedOrigin) (ResolvedOrigin, OriginStatus) {
	switch o := state.(type) {
	case FixedPosition:
		return ResolvedOrigin{Position: o.Position}, OriginResolved
	case PinnedToEntity:
		world, ok := worlds.World(o.Entity)
		if !ok {
			return previous, OriginStale
		}
		return ResolvedOrigin{Position: world.Translation}, OriginResolved
	default:
		return ResolvedOrigin{}, OriginResolved
	}
}
