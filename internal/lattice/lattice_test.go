package lattice

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/spinmc/internal/vec"
)

func twoSite(model string, j float64) Description {
	return Description{
		Types: []string{"A"},
		Sites: []SiteSpec{
			{ID: 0, SpinNorm: 1, Field: vec.UnitZ, Type: "A", Model: model},
			{ID: 1, Position: vec.New(1, 0, 0), SpinNorm: 1, Field: vec.UnitZ, Type: "A", Model: model},
		},
		Bonds: Pair(0, 1, j),
	}
}

func TestBuildTwoSiteEnergy(t *testing.T) {
	l, err := Build(twoSite("heisenberg", 1))
	require.NoError(t, err)

	// Both spins start at (0,0,-1): aligned, so exchange is -J.
	assert.InDelta(t, -1.0, l.TotalEnergy(0), 1e-12)
	assert.InDelta(t, -1.0, l.ExchangeEnergy(0), 1e-12)

	// Zeeman: field along +z, spins along -z.
	assert.InDelta(t, -1.0+2*0.5, l.TotalEnergy(0.5), 1e-12)

	require.NoError(t, l.SetSpin(1, vec.New(0, 0, 1), 1e-6))
	assert.InDelta(t, 1.0, l.TotalEnergy(0), 1e-12)
}

func TestBuildTypeOrder(t *testing.T) {
	desc := Description{
		Sites: []SiteSpec{
			{ID: 0, SpinNorm: 1, Type: "Fe", Model: "ising"},
			{ID: 1, SpinNorm: 1, Type: "Co", Model: "adaptive"},
			{ID: 2, SpinNorm: 1, Type: "Fe", Model: "ising"},
		},
	}
	l, err := Build(desc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fe", "Co"}, l.Types())
	assert.Equal(t, []int{2, 1}, l.CountByType())
	assert.False(t, l.HasAdaptive(0))
	assert.True(t, l.HasAdaptive(1))

	m := l.Magnetization()
	require.Len(t, m, 3)
	assert.InDelta(t, -2.0, m[0].Z, 1e-12)
	assert.InDelta(t, -1.0, m[1].Z, 1e-12)
	assert.InDelta(t, -3.0, m[2].Z, 1e-12)
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		edit func(*Description)
		want error
	}{
		{"no sites", func(d *Description) { d.Sites = nil; d.Bonds = nil }, ErrMalformed},
		{"bond out of range", func(d *Description) { d.Bonds = append(d.Bonds, Bond{From: 0, To: 5, J: 1}) }, ErrUnknownSite},
		{"site id out of range", func(d *Description) { d.Sites[1].ID = 7 }, ErrUnknownSite},
		{"duplicate id", func(d *Description) { d.Sites[1].ID = 0 }, ErrMalformed},
		{"bad model", func(d *Description) { d.Sites[0].Model = "glauber" }, ErrUnknownModel},
		{"undeclared type", func(d *Description) { d.Sites[0].Type = "B" }, ErrUnknownType},
		{"zero spin", func(d *Description) { d.Sites[0].SpinNorm = 0 }, ErrMalformed},
		{"bad anisotropy", func(d *Description) {
			d.Sites[0].Anisotropy = []AnisotropySpec{{Kind: "hexagonal", K: 1}}
		}, ErrUnknownAnisotropy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := twoSite("random", 1)
			tc.edit(&d)
			l, err := Build(d)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, l)
		})
	}
}

func TestParseModelAliases(t *testing.T) {
	m, err := ParseModel("Heisenberg")
	require.NoError(t, err)
	assert.Equal(t, ModelRandom, m)

	m, err = ParseModel("ISING")
	require.NoError(t, err)
	assert.Equal(t, ModelFlip, m)
	assert.Equal(t, "flip", m.String())

	_, err = ParseModel("cone45")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestAnisotropyEnergies(t *testing.T) {
	u := NewUniaxial(vec.New(0, 0, 2), 0.5)
	assert.InDelta(t, -0.5, u.Energy(vec.New(0, 0, 1)), 1e-12)
	assert.InDelta(t, 0.0, u.Energy(vec.New(1, 0, 0)), 1e-12)

	c := Cubic{K: 1}
	assert.InDelta(t, 0.0, c.Energy(vec.New(0, 0, 1)), 1e-12)
	d := 1 / math.Sqrt(3)
	assert.InDelta(t, -1.0/3, c.Energy(vec.New(d, d, d)), 1e-12)

	// Triaxial in the lab frame matches Cubic.
	tri := NewTriaxial(vec.New(1, 0, 0), vec.New(0, 1, 0), 1)
	assert.InDelta(t, 0.0, vec.Norm(vec.Cross(tri.C, vec.UnitZ)), 1e-12)
	s := vec.New(0.3, -0.4, math.Sqrt(1-0.25))
	assert.InDelta(t, c.Energy(s), tri.Energy(s), 1e-12)
}

func TestParseAnisotropyFields(t *testing.T) {
	a, err := ParseAnisotropyFields([]string{"0", "0", "1", "0.2"})
	require.NoError(t, err)
	assert.Equal(t, "uniaxial", a.Kind())

	a, err = ParseAnisotropyFields([]string{"1", "0", "0", "0", "1", "0", "0.1"})
	require.NoError(t, err)
	assert.Equal(t, "triaxial", a.Kind())

	_, err = ParseAnisotropyFields([]string{"1", "0", "0.1"})
	assert.ErrorIs(t, err, ErrUnknownAnisotropy)

	_, err = ParseAnisotropyFields([]string{"1", "x", "0", "0.1"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLadderConserved(t *testing.T) {
	l := NewLadder(1.5)
	want := []float64{-1.5, -0.5, 0.5, 1.5}
	assert.Equal(t, want, l.Values())

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		l.Swap(rng.Intn(len(l.Available)))
		if rng.Intn(2) == 0 {
			l.Undo()
		} else {
			l.commit()
		}
		got := l.Values()
		sort.Float64s(got)
		require.Equal(t, want, got)
	}
}

func TestLadderUndoRestores(t *testing.T) {
	l := NewLadder(1)
	before := l.Values()
	l.Swap(1)
	assert.Equal(t, 1.0, l.Occupied)
	l.Undo()
	assert.Equal(t, before, l.Values())

	// A second undo is a no-op.
	l.Undo()
	assert.Equal(t, before, l.Values())
}

func TestProposePreservesNorm(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, model := range []string{"random", "flip", "adaptive", "cone30", "cone15", "hn30", "hn15"} {
		t.Run(model, func(t *testing.T) {
			d := twoSite(model, 1)
			d.Sites[0].SpinNorm = 2.5
			l, err := Build(d)
			require.NoError(t, err)
			s := l.Site(0)
			for i := 0; i < 200; i++ {
				s.Propose(rng, 0.3)
				require.InDelta(t, 2.5, vec.Norm(s.Spin()), 1e-9)
				if i%2 == 0 {
					s.Accept()
				} else {
					prev := s.prevSpin
					s.Revert()
					require.Equal(t, prev, s.Spin())
				}
			}
		})
	}
}

func TestConeStaysInsideCone(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	l, err := Build(twoSite("cone15", 1))
	require.NoError(t, err)
	s := l.Site(0)
	require.NoError(t, l.SetSpin(0, vec.WithNorm(vec.New(0.3, 0.2, 0.9), 1), 1e-9))

	cosA := math.Cos(math.Pi / 12)
	for i := 0; i < 500; i++ {
		before := s.Spin()
		s.Propose(rng, 0)
		cos := vec.Dot(vec.Unit(before), vec.Unit(s.Spin()))
		require.GreaterOrEqual(t, cos, cosA-1e-9)
		s.Accept()
	}
}

func TestQIsingRevertKeepsLadder(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	d := twoSite("qising", 1)
	d.Sites[0].SpinNorm = 2
	l, err := Build(d)
	require.NoError(t, err)
	s := l.Site(0)

	for i := 0; i < 100; i++ {
		s.Propose(rng, 0)
		assert.Equal(t, s.ladder.Occupied, s.Spin().Z)
		s.Revert()
		assert.Equal(t, s.ladder.Occupied, s.Spin().Z)
		got := s.ladder.Values()
		sort.Float64s(got)
		require.Equal(t, []float64{-2, -1, 0, 1, 2}, got)
	}
}

func TestSetSpinChecks(t *testing.T) {
	d := twoSite("qising", 1)
	l, err := Build(d)
	require.NoError(t, err)

	assert.ErrorIs(t, l.SetSpin(0, vec.New(0, 0, 2), 1e-6), ErrSpinNorm)
	assert.ErrorIs(t, l.SetSpin(0, vec.New(1, 0, 0), 1e-6), ErrSpinNorm)
	assert.ErrorIs(t, l.SetSpin(9, vec.New(0, 0, 1), 1e-6), ErrUnknownSite)
	require.NoError(t, l.SetSpin(0, vec.New(0, 0, 1), 1e-6))
	assert.Equal(t, 1.0, l.Site(0).ladder.Occupied)
}

func TestCheckSpinLeavesSiteAlone(t *testing.T) {
	l, err := Build(twoSite("qising", 1))
	require.NoError(t, err)
	before := l.Site(0).ladder.Values()

	assert.NoError(t, l.CheckSpin(0, vec.New(0, 0, 1), 1e-6))
	assert.ErrorIs(t, l.CheckSpin(0, vec.New(0, 1, 0), 1e-6), ErrSpinNorm)
	assert.Equal(t, before, l.Site(0).ladder.Values())
	assert.Equal(t, vec.New(0, 0, -1), l.Site(0).Spin())
}

func TestLadderHas(t *testing.T) {
	l := NewLadder(1)
	assert.True(t, l.Has(-1))
	assert.True(t, l.Has(0))
	assert.True(t, l.Has(1))
	assert.False(t, l.Has(0.5))
	assert.Equal(t, -1.0, l.Occupied)
}

func TestAttachAnisotropy(t *testing.T) {
	l, err := Build(twoSite("random", 0))
	require.NoError(t, err)

	err = l.AttachAnisotropy([]Anisotropy{NewUniaxial(vec.UnitZ, 1)})
	assert.ErrorIs(t, err, ErrCountMismatch)

	require.NoError(t, l.AttachAnisotropy([]Anisotropy{NewUniaxial(vec.UnitZ, 1), NewUniaxial(vec.UnitZ, 1)}))
	assert.InDelta(t, -2.0, l.TotalEnergy(0), 1e-12)
}
