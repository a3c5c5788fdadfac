package transform

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Render is the single precision transform consumed by the renderer.
// Its translation is relative to the current world origin, not to the world itself.
type Render struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

func RenderIdentity() Render {
	return Render{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Narrow projects the world pose into render space: the origin is subtracted in double precision,
// then the result is narrowed to single precision. Rotation and scale do not depend on the origin.
func (g Global) Narrow(origin mgl64.Vec3) Render {
	return Render{
		Translation: NarrowVec3(g.Translation.Sub(origin)),
		Rotation:    NarrowQuat(g.Rotation),
		Scale:       NarrowVec3(g.Scale),
	}
}

// Matrix returns the object to world matrix of the render transform, M = T * R * S
func (r Render) Matrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(r.Translation.X(), r.Translation.Y(), r.Translation.Z())
	rotate := r.Rotation.Mat4()
	scale := mgl32.Scale3D(r.Scale.X(), r.Scale.Y(), r.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func NarrowVec3(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func NarrowQuat(q mgl64.Quat) mgl32.Quat {
	return mgl32.Quat{W: float32(q.W), V: NarrowVec3(q.V)}
}
