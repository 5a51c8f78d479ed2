package lattice

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/spinmc/internal/vec"
)

// ReadAnisotropy reads one term per line, in site order. Every site needs
// exactly one line: "ax ay az k" for uniaxial or "Ax Ay Az Bx By Bz k" for
// triaxial. Axes are normalised on load, so a file written with non-unit axes
// gives energies smaller by |a|² (uniaxial) or |A|²|B|²-type factors
// (triaxial) than a reader that uses the raw vectors. Scale k accordingly to
// reproduce such results.
func ReadAnisotropy(r io.Reader, n int) ([]Anisotropy, error) {
	terms := make([]Anisotropy, 0, n)
	err := eachRecord(r, func(line int, fields []string) error {
		if len(terms) == n {
			return fmt.Errorf("%w: more than %d anisotropy lines (line %d)", ErrCountMismatch, n, line)
		}
		t, err := ParseAnisotropyFields(fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		terms = append(terms, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(terms) != n {
		return nil, fmt.Errorf("%w: %d anisotropy lines for %d sites", ErrCountMismatch, len(terms), n)
	}
	return terms, nil
}

// LoadAnisotropy reads an anisotropy file from disk.
func LoadAnisotropy(path string, n int) ([]Anisotropy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open anisotropy: %w", err)
	}
	defer f.Close()

	terms, err := ReadAnisotropy(f, n)
	if err != nil {
		return nil, fmt.Errorf("anisotropy %s: %w", path, err)
	}
	return terms, nil
}

// ReadState reads one "sx sy sz" line per site.
func ReadState(r io.Reader, n int) ([]vec.Vector3, error) {
	spins := make([]vec.Vector3, 0, n)
	err := eachRecord(r, func(line int, fields []string) error {
		if len(spins) == n {
			return fmt.Errorf("%w: more than %d state lines (line %d)", ErrCountMismatch, n, line)
		}
		if len(fields) != 3 {
			return fmt.Errorf("%w: expected 3 components, got %d (line %d)", ErrMalformed, len(fields), line)
		}
		var c [3]float64
		for k, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number (line %d)", ErrMalformed, f, line)
			}
			c[k] = v
		}
		spins = append(spins, vec.New(c[0], c[1], c[2]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(spins) != n {
		return nil, fmt.Errorf("%w: %d state lines for %d sites", ErrCountMismatch, len(spins), n)
	}
	return spins, nil
}

// LoadState reads a state file from disk.
func LoadState(path string, n int) ([]vec.Vector3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	defer f.Close()

	spins, err := ReadState(f, n)
	if err != nil {
		return nil, fmt.Errorf("state %s: %w", path, err)
	}
	return spins, nil
}

// WriteState writes spins in the state file layout.
func WriteState(w io.Writer, spins []vec.Vector3) error {
	bw := bufio.NewWriter(w)
	for _, s := range spins {
		fmt.Fprintf(bw, "%s %s %s\n", fmtFloat(s.X), fmtFloat(s.Y), fmtFloat(s.Z))
	}
	return bw.Flush()
}

// WriteAnisotropy writes one line per term. Only uniaxial and triaxial terms
// have a file form.
func WriteAnisotropy(w io.Writer, terms []Anisotropy) error {
	bw := bufio.NewWriter(w)
	for i, t := range terms {
		switch t := t.(type) {
		case Uniaxial:
			a := t.Axis
			fmt.Fprintf(bw, "%s %s %s %s\n", fmtFloat(a.X), fmtFloat(a.Y), fmtFloat(a.Z), fmtFloat(t.K))
		case Triaxial:
			fmt.Fprintf(bw, "%s %s %s %s %s %s %s\n",
				fmtFloat(t.A.X), fmtFloat(t.A.Y), fmtFloat(t.A.Z),
				fmtFloat(t.B.X), fmtFloat(t.B.Y), fmtFloat(t.B.Z), fmtFloat(t.K))
		default:
			return fmt.Errorf("%w: term %d (%s) has no file form", ErrUnknownAnisotropy, i, t.Kind())
		}
	}
	return bw.Flush()
}

func eachRecord(r io.Reader, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(line, strings.Fields(text)); err != nil {
			return err
		}
	}
	return sc.Err()
}
