package observe

import (
	"time"

	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

// Phase is one named measurement
type Phase struct {
	Name     string        `json:"name" yaml:"name"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Timing measures named phases of a run alongside one overall stopwatch.
// Not safe for concurrent use.
type Timing struct {
	src     clock.Source
	opts    []stopwatch.Option
	total   *stopwatch.Stopwatch
	current *stopwatch.Stopwatch
	name    string
	phases  []Phase
	laps    []time.Duration
}

// NewTiming starts the overall stopwatch immediately
func NewTiming(src clock.Source, opts ...stopwatch.Option) *Timing {
	return &Timing{
		src:   src,
		opts:  opts,
		total: stopwatch.StartNew(src, opts...),
	}
}

// Begin ends the current phase, if any, and starts a new one
func (t *Timing) Begin(name string) {
	t.End()
	t.name = name
	t.current = stopwatch.StartNew(t.src, t.opts...)
}

// End stops the current phase and records it
func (t *Timing) End() {
	if t.current == nil {
		return
	}
	t.current.Stop()
	t.phases = append(t.phases, Phase{Name: t.name, Duration: t.current.Elapsed()})
	t.current = nil
	t.name = ""
}

// Lap records the overall elapsed time so far as a split
func (t *Timing) Lap() time.Duration {
	d := t.total.Elapsed()
	t.laps = append(t.laps, d)
	return d
}

// Complete ends the current phase and stops the overall stopwatch
func (t *Timing) Complete() {
	t.End()
	t.total.Stop()
}

// Duration returns overall elapsed time, still growing until Complete
func (t *Timing) Duration() time.Duration {
	return t.total.Elapsed()
}

// Phases returns the recorded phases in order
func (t *Timing) Phases() []Phase {
	out := make([]Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

// Laps returns the recorded splits in order
func (t *Timing) Laps() []time.Duration {
	out := make([]time.Duration, len(t.laps))
	copy(out, t.laps)
	return out
}
