// Package metrics exposes simulation progress as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/spinmc/internal/engine"
)

const namespace = "spinmc"

// Recorder owns a registry and the simulation collectors. Feed it from the
// engine callbacks.
type Recorder struct {
	reg   *prometheus.Registry
	types []string

	sweeps     prometheus.Counter
	points     prometheus.Counter
	proposals  *prometheus.CounterVec
	rejections *prometheus.CounterVec
	sigma      *prometheus.GaugeVec
	energy     prometheus.Gauge
	temp       prometheus.Gauge
	field      prometheus.Gauge
	pointIndex prometheus.Gauge
	acceptance prometheus.Histogram
}

// NewRecorder registers the collectors on a fresh registry. types labels the
// per-type series in type index order.
func NewRecorder(types []string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		reg:   reg,
		types: types,
		sweeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed Monte Carlo sweeps",
		}),
		points: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_total",
			Help:      "Completed schedule points",
		}),
		proposals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Single-site proposals by site type",
		}, []string{"type"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected proposals by site type",
		}, []string{"type"}),
		sigma: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sigma",
			Help:      "Adaptive proposal width by site type",
		}, []string{"type"}),
		energy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy",
			Help:      "Total energy after the last sweep",
		}),
		temp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature",
			Help:      "Temperature of the current point",
		}),
		field: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "field",
			Help:      "Field strength of the current point",
		}),
		pointIndex: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "point",
			Help:      "Index of the current schedule point",
		}),
		acceptance: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "point_acceptance_ratio",
			Help:      "Acceptance ratio per completed point",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
	}
}

func (r *Recorder) label(i int) string {
	if i < len(r.types) {
		return r.types[i]
	}
	return "unknown"
}

// ObserveSweep records one sweep. Use as engine.OnSweep.
func (r *Recorder) ObserveSweep(s engine.SweepStats) {
	r.sweeps.Inc()
	r.energy.Set(s.Energy)
	r.temp.Set(s.Temperature)
	r.field.Set(s.Field)
	r.pointIndex.Set(float64(s.Point))
	for i := range s.Proposals {
		t := r.label(i)
		r.proposals.WithLabelValues(t).Add(float64(s.Proposals[i]))
		r.rejections.WithLabelValues(t).Add(float64(s.Rejections[i]))
	}
	for i, sigma := range s.Sigma {
		r.sigma.WithLabelValues(r.label(i)).Set(sigma)
	}
}

// ObservePoint records a completed point. Use as engine.OnPoint.
func (r *Recorder) ObservePoint(p engine.PointResult) {
	r.points.Inc()
	if p.Proposals > 0 {
		r.acceptance.Observe(1 - float64(p.Rejections)/float64(p.Proposals))
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
