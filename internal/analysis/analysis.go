// Package analysis reduces stored histories to thermodynamic averages.
package analysis

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/talgya/spinmc/internal/engine"
	"github.com/talgya/spinmc/internal/persistence"
	"github.com/talgya/spinmc/internal/vec"
)

// Row holds the averages of one schedule point. Extensive quantities are
// per site; TypeMz is per site of each type.
type Row struct {
	Temperature float64   `json:"temperature"`
	Field       float64   `json:"field"`
	Energy      float64   `json:"energy"`
	Cv          float64   `json:"cv"`
	Mx          float64   `json:"mx"`
	My          float64   `json:"my"`
	Mz          float64   `json:"mz"`
	M           float64   `json:"m"`
	Chi         float64   `json:"chi"`
	Acceptance  float64   `json:"acceptance"`
	TypeMz      []float64 `json:"type_mz"`
}

// Summary is the reduced form of a run.
type Summary struct {
	RunID string   `json:"run_id"`
	Seed  int64    `json:"seed"`
	Tau   int      `json:"tau"`
	Types []string `json:"types"`
	Rows  []Row    `json:"rows"`
}

// Source is the part of the result store the analysis reads.
type Source interface {
	Point(ctx context.Context, run *persistence.RunInfo, point int) (*engine.PointResult, error)
	Sites(ctx context.Context, id string) ([]vec.Vector3, []string, error)
	Schedule(ctx context.Context, id string) ([]persistence.PointInfo, error)
}

// DefaultTau is the number of equilibration sweeps discarded by default.
func DefaultTau(mcs int) int { return mcs / 5 }

// Summarize reduces every completed point of run, so an interrupted run yields
// the rows it finished. A negative tau selects DefaultTau.
func Summarize(ctx context.Context, src Source, run *persistence.RunInfo, tau int) (*Summary, error) {
	if tau < 0 {
		tau = DefaultTau(run.MCS)
	}
	_, siteTypes, err := src.Sites(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("sites: %w", err)
	}
	counts := make([]int, len(run.Types))
	index := make(map[string]int, len(run.Types))
	for i, t := range run.Types {
		index[t] = i
	}
	for _, t := range siteTypes {
		counts[index[t]]++
	}

	s := &Summary{RunID: run.ID, Seed: run.Seed, Tau: tau, Types: run.Types}
	schedule, err := src.Schedule(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	for _, info := range schedule {
		if !info.Done {
			continue
		}
		p, err := src.Point(ctx, run, info.Point)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", info.Point, err)
		}
		s.Rows = append(s.Rows, SummarizePoint(*p, run.KB, counts, tau))
	}
	return s, nil
}

// SummarizePoint averages one point over the sweeps after tau. counts holds
// the number of sites of each type; the total is their sum.
func SummarizePoint(p engine.PointResult, kb float64, counts []int, tau int) Row {
	n := floats.Sum(intsToFloats(counts))
	if tau >= len(p.Energy) {
		tau = len(p.Energy) - 1
	}
	if tau < 0 {
		tau = 0
	}

	energy := p.Energy[tau:]
	total := p.Total()
	mx, my, mz := total.X[tau:], total.Y[tau:], total.Z[tau:]
	norm := make([]float64, len(mx))
	for k := range norm {
		norm[k] = math.Sqrt(mx[k]*mx[k] + my[k]*my[k] + mz[k]*mz[k])
	}

	eMean, eVar := stat.PopMeanVariance(energy, nil)
	mMean, mVar := stat.PopMeanVariance(norm, nil)

	row := Row{
		Temperature: p.Temperature,
		Field:       p.Field,
		Energy:      eMean / n,
		Mx:          stat.Mean(mx, nil) / n,
		My:          stat.Mean(my, nil) / n,
		Mz:          stat.Mean(mz, nil) / n,
		M:           mMean / n,
		TypeMz:      make([]float64, len(counts)),
	}
	if p.Proposals > 0 {
		row.Acceptance = 1 - float64(p.Rejections)/float64(p.Proposals)
	}
	if p.Temperature > 0 {
		row.Cv = eVar / (kb * p.Temperature * p.Temperature * n)
		row.Chi = mVar / (kb * p.Temperature * n)
	}
	for i, c := range counts {
		if c > 0 && i < len(p.Magnetization)-1 {
			row.TypeMz[i] = stat.Mean(p.Magnetization[i].Z[tau:], nil) / float64(c)
		}
	}
	return row
}

func intsToFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

// WriteTable writes the summary as tab-separated columns under a seed line
// and a header line, both starting with '#'.
func WriteTable(w io.Writer, s *Summary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# seed = %d\n", s.Seed)

	header := []string{"T", "H", "E", "Cv", "Mx", "My", "Mz", "M", "Chi", "Acc"}
	for _, t := range s.Types {
		header = append(header, "Mz_"+t)
	}
	fmt.Fprintf(bw, "#\t%s\n", strings.Join(header, "\t"))

	for _, r := range s.Rows {
		cols := []float64{r.Temperature, r.Field, r.Energy, r.Cv, r.Mx, r.My, r.Mz, r.M, r.Chi, r.Acceptance}
		cols = append(cols, r.TypeMz...)
		fields := make([]string, len(cols))
		for i, c := range cols {
			fields[i] = strconv.FormatFloat(c, 'g', 10, 64)
		}
		fmt.Fprintln(bw, strings.Join(fields, "\t"))
	}
	return bw.Flush()
}
