package lattice

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/spinmc/internal/vec"
)

const chainSample = `# three-site chain
3 4 2
Fe Co
0 0 0 0 1   0 0 1 Fe heisenberg
1 1 0 0 1.5 0 0 1 Co qising
2 2 0 0 1   0 0 1 Fe ising
0 1 1.0
1 0 1.0
1 2 -0.5
2 1 -0.5
`

func TestParseSample(t *testing.T) {
	l, err := Parse(strings.NewReader(chainSample))
	require.NoError(t, err)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"Fe", "Co"}, l.Types())
	assert.Equal(t, 4, l.Bonds())
	assert.Equal(t, ModelQIsing, l.Site(1).Model)
	assert.Equal(t, 1, l.Site(1).TypeIndex)
	assert.Equal(t, []int{0, 2}, l.Site(1).neighbors)
	assert.Equal(t, []float64{1, -0.5}, l.Site(1).couplings)
	assert.Equal(t, vec.New(0, 0, -1.5), l.Site(1).Spin())
}

func TestParseSampleErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{"truncated sites", "2 0 1\nA\n0 0 0 0 1 0 0 1 A random\n", ErrCountMismatch},
		{"truncated bonds", "1 2 1\nA\n0 0 0 0 1 0 0 1 A random\n0 0 1\n", ErrCountMismatch},
		{"trailing data", "1 0 1\nA\n0 0 0 0 1 0 0 1 A random\n0 0 1\n", ErrCountMismatch},
		{"bad number", "1 0 1\nA\n0 0 zero 0 1 0 0 1 A random\n", ErrMalformed},
		{"bond to nowhere", "1 1 1\nA\n0 0 0 0 1 0 0 1 A random\n0 4 1\n", ErrUnknownSite},
		{"unknown model", "1 0 1\nA\n0 0 0 0 1 0 0 1 A glauber\n", ErrUnknownModel},
		{"unknown type", "1 0 1\nA\n0 0 0 0 1 0 0 1 B random\n", ErrUnknownType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := Parse(strings.NewReader(tc.input))
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, l)
		})
	}
}

func TestParseSampleReportsLine(t *testing.T) {
	_, err := Parse(strings.NewReader("1 0 1\nA\n0 0 0 0 1 0 0 1x A random\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestWriteSampleRoundTrip(t *testing.T) {
	desc, err := ParseDescription(strings.NewReader(chainSample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSample(&buf, desc))

	again, err := ParseDescription(&buf)
	require.NoError(t, err)
	assert.Equal(t, desc, again)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.dat")
	require.NoError(t, os.WriteFile(path, []byte(chainSample), 0o644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	_, err = Load(filepath.Join(dir, "missing.dat"))
	assert.Error(t, err)
}

func TestReadAnisotropy(t *testing.T) {
	terms, err := ReadAnisotropy(strings.NewReader("0 0 1 0.5\n1 0 0 0 1 0 0.1\n"), 2)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "uniaxial", terms[0].Kind())
	assert.Equal(t, "triaxial", terms[1].Kind())

	_, err = ReadAnisotropy(strings.NewReader("0 0 1 0.5\n"), 2)
	assert.ErrorIs(t, err, ErrCountMismatch)

	_, err = ReadAnisotropy(strings.NewReader("0 0 1 0.5\n0 0 1 0.5\n0 0 1 0.5\n"), 2)
	assert.ErrorIs(t, err, ErrCountMismatch)

	_, err = ReadAnisotropy(strings.NewReader("0 0 1 0.5 9\n"), 1)
	assert.ErrorIs(t, err, ErrUnknownAnisotropy)
}

func TestReadState(t *testing.T) {
	spins, err := ReadState(strings.NewReader("0 0 1\n1 0 0\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []vec.Vector3{vec.New(0, 0, 1), vec.New(1, 0, 0)}, spins)

	_, err = ReadState(strings.NewReader("0 0 1\n"), 2)
	assert.ErrorIs(t, err, ErrCountMismatch)

	_, err = ReadState(strings.NewReader("0 1\n"), 1)
	assert.ErrorIs(t, err, ErrMalformed)

	var buf bytes.Buffer
	require.NoError(t, WriteState(&buf, spins))
	again, err := ReadState(&buf, 2)
	require.NoError(t, err)
	assert.Equal(t, spins, again)
}

func TestBulk(t *testing.T) {
	cfg := DefaultBulkConfig()
	cfg.Length = 3
	cfg.Anisotropy = &AnisotropySpec{Kind: "uniaxial", Axis: vec.UnitZ, K: 0.1}

	desc, err := Bulk(cfg)
	require.NoError(t, err)
	l, err := Build(desc)
	require.NoError(t, err)

	assert.Equal(t, 27, l.Len())
	assert.Equal(t, 6*27, l.Bonds())
	for i := 0; i < l.Len(); i++ {
		require.Len(t, l.Site(i).neighbors, 6)
	}

	// Ferromagnetic ground state: 3N bonds at -J, N anisotropy terms at -K.
	assert.InDelta(t, -3*27.0-0.1*27, l.TotalEnergy(0), 1e-9)

	terms, err := AnisotropyTerms(desc)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteAnisotropy(&buf, terms))
	back, err := ReadAnisotropy(&buf, 27)
	require.NoError(t, err)
	assert.Len(t, back, 27)

	_, err = Bulk(BulkConfig{Length: 0, SpinNorm: 1, Model: "random"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestApplyTexture(t *testing.T) {
	cfg := DefaultBulkConfig()
	cfg.Length = 4
	desc, err := Bulk(cfg)
	require.NoError(t, err)
	desc.Sites[5].Model = "ising"
	desc.Sites[6].Model = "qising"
	l, err := Build(desc)
	require.NoError(t, err)

	ApplyTexture(l, 42, DefaultTextureConfig())

	moved := 0
	for i := 0; i < l.Len(); i++ {
		s := l.Site(i)
		require.InDelta(t, 1.0, vec.Norm(s.Spin()), 1e-9)
		if s.Spin() != vec.New(0, 0, -1) {
			moved++
		}
	}
	assert.Greater(t, moved, l.Len()/2)
	assert.Equal(t, 0.0, l.Site(5).Spin().X)
	assert.Equal(t, vec.New(0, 0, -1), l.Site(6).Spin())
}

func TestReadAnisotropyNormalisesAxes(t *testing.T) {
	terms, err := ReadAnisotropy(strings.NewReader("0 0 2 1\n2 0 0 0 3 0 1\n"), 2)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, terms[0].Energy(vec.UnitZ), 1e-12)

	s := vec.Unit(vec.New(1, 1, 0))
	assert.InDelta(t, NewTriaxial(vec.New(1, 0, 0), vec.New(0, 1, 0), 1).Energy(s), terms[1].Energy(s), 1e-12)
}
