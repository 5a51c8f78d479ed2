// Package vec provides the three-component vector used for spins, positions
// and fields, plus the geometric sampling helpers the update rules need.
package vec

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vector3 is a real 3-vector. Arithmetic goes through gonum's r3 functions
// (r3.Add, r3.Sub, r3.Scale, r3.Dot, r3.Cross, r3.Norm).
type Vector3 = r3.Vec

// Zero is the null vector.
var Zero = Vector3{}

// UnitZ points along +z.
var UnitZ = Vector3{Z: 1}

// New builds a vector from its components.
func New(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// FromSlice builds a vector from the first three values of s.
func FromSlice(s []float64) Vector3 {
	return Vector3{X: s[0], Y: s[1], Z: s[2]}
}

// Components returns the vector as an array, x first.
func Components(v Vector3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Dot returns a·b.
func Dot(a, b Vector3) float64 { return r3.Dot(a, b) }

// Cross returns a×b.
func Cross(a, b Vector3) Vector3 { return r3.Cross(a, b) }

// Norm returns |v|.
func Norm(v Vector3) float64 { return r3.Norm(v) }

// Unit returns v scaled to length one. The zero vector is returned unchanged.
func Unit(v Vector3) Vector3 {
	n := r3.Norm(v)
	if n == 0 {
		return v
	}
	return r3.Scale(1/n, v)
}

// WithNorm returns v rescaled to length s.
func WithNorm(v Vector3, s float64) Vector3 {
	return r3.Scale(s, Unit(v))
}

// Gaussian draws a vector with independent standard normal components.
func Gaussian(rng *rand.Rand) Vector3 {
	return Vector3{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
}

// RandomUnit draws a direction uniformly on the unit sphere by normalising a
// Gaussian vector.
func RandomUnit(rng *rand.Rand) Vector3 {
	for {
		g := Gaussian(rng)
		if n := r3.Norm(g); n > 0 {
			return r3.Scale(1/n, g)
		}
	}
}

// Spherical returns the unit vector with polar angle theta and azimuth phi.
func Spherical(theta, phi float64) Vector3 {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return Vector3{X: st * cp, Y: st * sp, Z: ct}
}

// Rodrigues rotates v by angle around the unit vector axis:
//
//	v cos(a) + (k×v) sin(a) + k (k·v)(1 - cos(a))
func Rodrigues(v, axis Vector3, angle float64) Vector3 {
	s, c := math.Sincos(angle)
	out := r3.Scale(c, v)
	out = r3.Add(out, r3.Scale(s, r3.Cross(axis, v)))
	out = r3.Add(out, r3.Scale(r3.Dot(axis, v)*(1-c), axis))
	return out
}

