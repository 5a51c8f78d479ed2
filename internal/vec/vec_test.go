package vec_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/spinmc/internal/vec"
)

func TestBasicAlgebra(t *testing.T) {
	a := vec.New(1, 2, 3)
	b := vec.New(-2, 0, 4)

	assert.Equal(t, 10.0, vec.Dot(a, b))
	assert.Equal(t, vec.New(8, -10, 4), vec.Cross(a, b))
	assert.InDelta(t, math.Sqrt(14), vec.Norm(a), 1e-12)
	assert.Equal(t, [3]float64{1, 2, 3}, vec.Components(a))
	assert.Equal(t, a, vec.FromSlice([]float64{1, 2, 3, 99}))
}

func TestUnitAndWithNorm(t *testing.T) {
	assert.Equal(t, vec.Zero, vec.Unit(vec.Zero))
	u := vec.Unit(vec.New(0, 3, 4))
	assert.True(t, approxEqual(u, vec.New(0, 0.6, 0.8), 1e-12))
	assert.InDelta(t, 2.5, vec.Norm(vec.WithNorm(vec.New(1, 1, 1), 2.5)), 1e-12)
}

func TestRandomUnitOnSphere(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var mean vec.Vector3
	const n = 20000
	for i := 0; i < n; i++ {
		u := vec.RandomUnit(rng)
		require.InDelta(t, 1.0, vec.Norm(u), 1e-12)
		mean.X += u.X / n
		mean.Y += u.Y / n
		mean.Z += u.Z / n
	}
	// Isotropic: the mean direction vanishes.
	assert.InDelta(t, 0, mean.X, 0.03)
	assert.InDelta(t, 0, mean.Y, 0.03)
	assert.InDelta(t, 0, mean.Z, 0.03)
}

func TestRodrigues(t *testing.T) {
	// Quarter turn of x around z gives y.
	got := vec.Rodrigues(vec.New(1, 0, 0), vec.UnitZ, math.Pi/2)
	assert.True(t, approxEqual(got, vec.New(0, 1, 0), 1e-12), "got %v", got)

	// Rotation preserves length and the projection on the axis.
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		v := vec.Gaussian(rng)
		axis := vec.RandomUnit(rng)
		angle := rng.Float64() * 2 * math.Pi
		r := vec.Rodrigues(v, axis, angle)
		require.InDelta(t, vec.Norm(v), vec.Norm(r), 1e-10)
		require.InDelta(t, vec.Dot(v, axis), vec.Dot(r, axis), 1e-10)
	}
}

func TestSpherical(t *testing.T) {
	assert.True(t, approxEqual(vec.Spherical(0, 1.3), vec.UnitZ, 1e-12))
	assert.True(t, approxEqual(vec.Spherical(math.Pi/2, 0), vec.New(1, 0, 0), 1e-12))
}

func approxEqual(a, b vec.Vector3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
