package transform

import "github.com/go-gl/mathgl/mgl64"

// Transform represents the position, rotation and scale of an entity relative to its parent,
// or to world space when it has none
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// Identity creates a transform with no translation, no rotation and a scale of 1 on all axes
func Identity() Transform {
	return Transform{
		Translation: mgl64.Vec3{0, 0, 0},
		Rotation:    mgl64.QuatIdent(),
		Scale:       mgl64.Vec3{1, 1, 1},
	}
}

// FromXYZ creates an identity transform translated to (x, y, z)
func FromXYZ(x, y, z float64) Transform {
	return FromTranslation(mgl64.Vec3{x, y, z})
}

func FromTranslation(translation mgl64.Vec3) Transform {
	t := Identity()
	t.Translation = translation
	return t
}

func FromRotation(rotation mgl64.Quat) Transform {
	t := Identity()
	t.Rotation = rotation
	return t
}

func FromScale(scale mgl64.Vec3) Transform {
	t := Identity()
	t.Scale = scale
	return t
}

func (t Transform) WithTranslation(translation mgl64.Vec3) Transform {
	t.Translation = translation
	return t
}

func (t Transform) WithRotation(rotation mgl64.Quat) Transform {
	t.Rotation = rotation
	return t
}

func (t Transform) WithScale(scale mgl64.Vec3) Transform {
	t.Scale = scale
	return t
}

// Mul composes t with child, the result applies child first and then t:
//
//	translation = t.T + t.R * (t.S ∘ child.T)
//	rotation    = t.R * child.R
//	scale       = t.S ∘ child.S
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.TransformPoint(child.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation),
		Scale:       mulElem(t.Scale, child.Scale),
	}
}

// TransformPoint applies scale, rotation and translation to a point, in that order
func (t Transform) TransformPoint(point mgl64.Vec3) mgl64.Vec3 {
	return t.Translation.Add(t.Rotation.Rotate(mulElem(t.Scale, point)))
}

// Translate moves the transform by delta, expressed in the parent space
func (t Transform) Translate(delta mgl64.Vec3) Transform {
	t.Translation = t.Translation.Add(delta)
	return t
}

// Rotate applies rotation on top of the current one, around the local origin
func (t Transform) Rotate(rotation mgl64.Quat) Transform {
	t.Rotation = rotation.Mul(t.Rotation).Normalize()
	return t
}

// RotateAround rotates the transform around a point of the parent space
func (t Transform) RotateAround(point mgl64.Vec3, rotation mgl64.Quat) Transform {
	t.Translation = point.Add(rotation.Rotate(t.Translation.Sub(point)))
	return t.Rotate(rotation)
}

// LookAt rotates the transform so that Forward points toward target, with up as the approximate up axis
func (t Transform) LookAt(target, up mgl64.Vec3) Transform {
	if target.Sub(t.Translation).Len() == 0 {
		return t
	}
	t.Rotation = mgl64.QuatLookAtV(t.Translation, target, up).Inverse().Normalize()
	return t
}

// Forward returns the local -Z axis in the parent space
func (t Transform) Forward() mgl64.Vec3 {
	return t.Rotation.Rotate(mgl64.Vec3{0, 0, -1})
}

// Right returns the local +X axis in the parent space
func (t Transform) Right() mgl64.Vec3 {
	return t.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
}

// Up returns the local +Y axis in the parent space
func (t Transform) Up() mgl64.Vec3 {
	return t.Rotation.Rotate(mgl64.Vec3{0, 1, 0})
}

// Matrix returns the affine image of the transform, M = T * R * S
func (t Transform) Matrix() mgl64.Mat4 {
	translate := mgl64.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
