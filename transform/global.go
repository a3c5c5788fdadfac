package transform

import "github.com/go-gl/mathgl/mgl64"

// Global is the pose of an entity in world space, after composing through all of its ancestors.
// It is only written by the propagation passes, application code mutates the local Transform.
type Global struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// GlobalIdentity is the world pose of an entity sitting at the world origin
func GlobalIdentity() Global {
	return FromLocal(Identity())
}

// FromLocal embeds a local transform into world space, for entities without ancestors
func FromLocal(t Transform) Global {
	return Global(t)
}

// Mul returns the world pose of a child with the given local transform
func (g Global) Mul(local Transform) Global {
	return Global(g.Local().Mul(local))
}

// Local returns the same pose as a Transform value
func (g Global) Local() Transform {
	return Transform(g)
}

func (g Global) TransformPoint(point mgl64.Vec3) mgl64.Vec3 {
	return g.Local().TransformPoint(point)
}

func (g Global) Matrix() mgl64.Mat4 {
	return g.Local().Matrix()
}
