package config

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

var (
	ErrScheduleMismatch = errors.New("config: temperature and field lists differ in length")
	ErrEmptySchedule    = errors.New("config: empty schedule")
	ErrBadSchedule      = errors.New("config: invalid schedule")
)

// Range defaults.
const (
	DefaultRangeStart  = 0.001
	DefaultRangeFinal  = 10.0
	DefaultRangePoints = 5
)

// Range is a linear sweep from Start to Final. With Cycle set the sweep is
// followed by its reverse, so the final value appears twice.
type Range struct {
	Start  float64 `yaml:"start"`
	Final  float64 `yaml:"final"`
	Points int     `yaml:"points" validate:"gte=2"`
	Cycle  bool    `yaml:"cycle"`
}

// Expand returns the range values in sweep order.
func (r Range) Expand() ([]float64, error) {
	if r.Points < 2 {
		return nil, fmt.Errorf("%w: range needs at least 2 points, got %d", ErrBadSchedule, r.Points)
	}
	values := floats.Span(make([]float64, r.Points), r.Start, r.Final)
	if r.Cycle {
		for i := len(values) - 1; i >= 0; i-- {
			values = append(values, values[i])
		}
	}
	return values, nil
}

// Schedule is a temperature or field specification: a single value, an
// explicit list or a Range.
type Schedule struct {
	Value  float64
	List   []float64
	Range  *Range
	scalar bool
}

// Scalar returns a single-value schedule.
func Scalar(v float64) Schedule { return Schedule{Value: v, scalar: true} }

// List returns an explicit schedule.
func List(values ...float64) Schedule { return Schedule{List: values} }

// IsScalar reports whether the schedule is a single value that broadcasts.
func (s Schedule) IsScalar() bool { return s.scalar || (s.Range == nil && s.List == nil) }

// UnmarshalYAML accepts a number, a sequence of numbers or a range mapping.
func (s *Schedule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrBadSchedule, node.Line, err)
		}
		*s = Scalar(v)
	case yaml.SequenceNode:
		var values []float64
		if err := node.Decode(&values); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrBadSchedule, node.Line, err)
		}
		if len(values) == 0 {
			return fmt.Errorf("%w: line %d: empty list", ErrEmptySchedule, node.Line)
		}
		*s = List(values...)
	case yaml.MappingNode:
		r := Range{Start: DefaultRangeStart, Final: DefaultRangeFinal, Points: DefaultRangePoints}
		if err := node.Decode(&r); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrBadSchedule, node.Line, err)
		}
		*s = Schedule{Range: &r}
	default:
		return fmt.Errorf("%w: line %d: expected number, list or range", ErrBadSchedule, node.Line)
	}
	return nil
}

// Values expands the schedule. A scalar yields one value.
func (s Schedule) Values() ([]float64, error) {
	switch {
	case s.Range != nil:
		return s.Range.Expand()
	case s.List != nil:
		if len(s.List) == 0 {
			return nil, ErrEmptySchedule
		}
		return append([]float64(nil), s.List...), nil
	default:
		return []float64{s.Value}, nil
	}
}

// Pair expands temperature and field schedules to equal-length lists. A
// scalar broadcasts to the other list's length.
func Pair(temperature, field Schedule) (temps, fields []float64, err error) {
	if temps, err = temperature.Values(); err != nil {
		return nil, nil, fmt.Errorf("temperature: %w", err)
	}
	if fields, err = field.Values(); err != nil {
		return nil, nil, fmt.Errorf("field: %w", err)
	}

	switch {
	case temperature.IsScalar() && !field.IsScalar():
		temps = broadcast(temps[0], len(fields))
	case field.IsScalar() && !temperature.IsScalar():
		fields = broadcast(fields[0], len(temps))
	}
	if len(temps) != len(fields) {
		return nil, nil, fmt.Errorf("%w: %d temperatures, %d fields", ErrScheduleMismatch, len(temps), len(fields))
	}
	return temps, fields, nil
}

func broadcast(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
