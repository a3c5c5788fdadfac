package transform

// Bundle groups the local and world transforms every propagated entity carries
type Bundle struct {
	Local  Transform
	Global Global
}

// IdentityBundle has no translation, no rotation and a scale of 1 on all axes
func IdentityBundle() Bundle {
	return Bundle{
		Local:  Identity(),
		Global: GlobalIdentity(),
	}
}

// FromTransform creates a bundle from a local transform.
// The world transform stays at identity until the next propagation.
func FromTransform(t Transform) Bundle {
	return Bundle{
		Local:  t,
		Global: GlobalIdentity(),
	}
}
