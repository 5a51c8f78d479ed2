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

// Sample file layout (whitespace separated, '#' starts a comment line):
//
//	nsites nbonds ntypes
//	type_1 ... type_ntypes
//	id x y z S hx hy hz type model     (nsites lines)
//	i j J                              (nbonds lines, directed)

// Load reads a sample file from disk and builds the lattice.
func Load(path string) (*Lattice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", path, err)
	}
	return l, nil
}

// Parse reads a sample description from r and builds the lattice.
func Parse(r io.Reader) (*Lattice, error) {
	desc, err := ParseDescription(r)
	if err != nil {
		return nil, err
	}
	return Build(desc)
}

// ParseDescription reads a sample description without wiring it.
func ParseDescription(r io.Reader) (Description, error) {
	ts, err := tokenize(r)
	if err != nil {
		return Description{}, err
	}

	nsites, err := ts.int("site count")
	if err != nil {
		return Description{}, err
	}
	nbonds, err := ts.int("bond count")
	if err != nil {
		return Description{}, err
	}
	ntypes, err := ts.int("type count")
	if err != nil {
		return Description{}, err
	}
	if nsites < 0 || nbonds < 0 || ntypes < 0 {
		return Description{}, fmt.Errorf("%w: negative count in header", ErrMalformed)
	}

	desc := Description{
		Types: make([]string, 0, ntypes),
		Sites: make([]SiteSpec, 0, nsites),
		Bonds: make([]Bond, 0, nbonds),
	}
	for i := 0; i < ntypes; i++ {
		t, err := ts.word("type name")
		if err != nil {
			return Description{}, err
		}
		desc.Types = append(desc.Types, t)
	}

	for i := 0; i < nsites; i++ {
		var spec SiteSpec
		if spec.ID, err = ts.int("site id"); err != nil {
			return Description{}, err
		}
		nums, err := ts.floats("site values", 7)
		if err != nil {
			return Description{}, err
		}
		spec.Position = vec.FromSlice(nums[0:3])
		spec.SpinNorm = nums[3]
		spec.Field = vec.FromSlice(nums[4:7])
		if spec.Type, err = ts.word("site type"); err != nil {
			return Description{}, err
		}
		if spec.Model, err = ts.word("site model"); err != nil {
			return Description{}, err
		}
		desc.Sites = append(desc.Sites, spec)
	}

	for i := 0; i < nbonds; i++ {
		var b Bond
		if b.From, err = ts.int("bond site"); err != nil {
			return Description{}, err
		}
		if b.To, err = ts.int("bond neighbour"); err != nil {
			return Description{}, err
		}
		if b.J, err = ts.float("bond coupling"); err != nil {
			return Description{}, err
		}
		desc.Bonds = append(desc.Bonds, b)
	}

	if !ts.done() {
		tok := ts.toks[ts.pos]
		return Description{}, fmt.Errorf("%w: unexpected %q after %d bonds (line %d)",
			ErrCountMismatch, tok.text, nbonds, tok.line)
	}
	return desc, nil
}

// WriteSample writes desc in the sample file layout.
func WriteSample(w io.Writer, desc Description) error {
	types := desc.Types
	if len(types) == 0 {
		seen := make(map[string]bool)
		for _, s := range desc.Sites {
			if !seen[s.Type] {
				seen[s.Type] = true
				types = append(types, s.Type)
			}
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", len(desc.Sites), len(desc.Bonds), len(types))
	fmt.Fprintln(bw, strings.Join(types, " "))
	for _, s := range desc.Sites {
		fmt.Fprintf(bw, "%d %s %s %s %s %s %s %s %s %s\n", s.ID,
			fmtFloat(s.Position.X), fmtFloat(s.Position.Y), fmtFloat(s.Position.Z),
			fmtFloat(s.SpinNorm),
			fmtFloat(s.Field.X), fmtFloat(s.Field.Y), fmtFloat(s.Field.Z),
			s.Type, s.Model)
	}
	for _, b := range desc.Bonds {
		fmt.Fprintf(bw, "%d %d %s\n", b.From, b.To, fmtFloat(b.J))
	}
	return bw.Flush()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type token struct {
	text string
	line int
}

type tokenStream struct {
	toks []token
	pos  int
}

func tokenize(r io.Reader) (*tokenStream, error) {
	ts := &tokenStream{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		for _, f := range strings.Fields(text) {
			ts.toks = append(ts.toks, token{text: f, line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return ts, nil
}

func (ts *tokenStream) done() bool { return ts.pos >= len(ts.toks) }

func (ts *tokenStream) word(what string) (string, error) {
	if ts.done() {
		return "", fmt.Errorf("%w: input ended while reading %s", ErrCountMismatch, what)
	}
	tok := ts.toks[ts.pos]
	ts.pos++
	return tok.text, nil
}

func (ts *tokenStream) int(what string) (int, error) {
	line := ts.line()
	w, err := ts.word(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(w)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer (line %d)", ErrMalformed, what, w, line)
	}
	return v, nil
}

func (ts *tokenStream) float(what string) (float64, error) {
	line := ts.line()
	w, err := ts.word(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number (line %d)", ErrMalformed, what, w, line)
	}
	return v, nil
}

func (ts *tokenStream) floats(what string, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := ts.float(what)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ts *tokenStream) line() int {
	if ts.done() {
		return 0
	}
	return ts.toks[ts.pos].line
}
