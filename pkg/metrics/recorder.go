package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/psantana5/chrono/pkg/clock"
)

// Recorder tracks phase durations and clock anomalies
type Recorder struct {
	phases    *prometheus.HistogramVec
	anomalies prometheus.Counter
}

// NewRecorder creates a recorder and registers its metrics with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		phases: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chrono_phase_duration_seconds",
				Help:    "Duration of measured phases",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"phase"},
		),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chrono_clock_anomalies_total",
			Help: "Stopwatch intervals that observed their timestamp source going backwards",
		}),
	}

	for _, c := range []prometheus.Collector{r.phases, r.anomalies} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

// ObservePhase records one phase duration
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	r.phases.WithLabelValues(phase).Observe(d.Seconds())
}

// AnomalyHook returns a callback suitable for stopwatch.WithAnomalyHook
func (r *Recorder) AnomalyHook() func(start, now clock.Tick) {
	return func(start, now clock.Tick) {
		r.anomalies.Inc()
	}
}

// Dump writes every metric gathered from g in the text exposition format
func Dump(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
