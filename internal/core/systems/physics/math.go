package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1e-5

// Up is the world up axis.
var Up = Vec3{Y: 1}

// ForwardFromYaw returns the unit forward vector for a yaw in degrees.
func ForwardFromYaw(yaw float64) Vec3 {
	rad := yaw * math.Pi / 180
	return Vec3{X: math.Sin(rad), Z: math.Cos(rad)}
}

// Normalize returns the unit vector of v, or the zero vector when v is too
// short to have a meaningful direction.
func Normalize(v Vec3) Vec3 {
	n := r3.Norm(v)
	if n < epsilon {
		return Vec3{}
	}
	return r3.Scale(1/n, v)
}

// Planar drops the vertical component.
func Planar(v Vec3) Vec3 { return Vec3{X: v.X, Z: v.Z} }

// Speed is the magnitude of v.
func Speed(v Vec3) float64 { return r3.Norm(v) }

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Lerp interpolates between a and b by t clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp(t, 0, 1)
}
