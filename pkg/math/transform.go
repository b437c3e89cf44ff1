package math

// Transform is a world-space placement: translation, rotation and
// non-uniform scale.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// TransformIdentity returns a transform that maps points to themselves.
func TransformIdentity() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
	}
}

// IsIdentity reports whether the transform leaves points unchanged.
func (t Transform) IsIdentity() bool {
	return t == TransformIdentity()
}

// Mat4 composes the transform as translate * rotate * scale.
func (t Transform) Mat4() Mat4 {
	translate := Translate(t.Position.X, t.Position.Y, t.Position.Z)
	rotate := t.Rotation.ToMat4()
	scale := ScaleMat(t.Scale.X, t.Scale.Y, t.Scale.Z)
	return translate.Mul(rotate).Mul(scale)
}

// Apply transforms a point.
func (t Transform) Apply(p [3]float32) [3]float32 {
	return t.Mat4().TransformPoint(p)
}
