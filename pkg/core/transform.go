// pkg/core/transform.go
package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 and Quat are the mathgl types used for all positions and rotations.
type (
	Vec3 = mgl64.Vec3
	Quat = mgl64.Quat
)

// Transform is the position/rotation/scale triple of a scene object.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Quat `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

// IdentityTransform is an object at the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    Vec3{1, 1, 1},
	}
}

// AngleBetween returns the angle in degrees between two rotations.
func AngleBetween(a, b Quat) float64 {
	dot := math.Abs(a.Normalize().Dot(b.Normalize()))
	if dot >= 1 {
		return 0
	}
	return mgl64.RadToDeg(2 * math.Acos(dot))
}

// ApproxEqual reports whether t and o differ by less than posEps on every
// position and scale axis and by less than angleEps degrees in rotation.
func (t Transform) ApproxEqual(o Transform, posEps, angleEps float64) bool {
	return vecWithin(t.Position, o.Position, posEps) &&
		vecWithin(t.Scale, o.Scale, posEps) &&
		AngleBetween(t.Rotation, o.Rotation) < angleEps
}

func vecWithin(a, b Vec3, eps float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) >= eps {
			return false
		}
	}
	return true
}

// PivotOf returns the mean of the given positions, the origin for none.
func PivotOf(positions []Vec3) Vec3 {
	var sum Vec3
	if len(positions) == 0 {
		return sum
	}
	for _, p := range positions {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(positions)))
}
