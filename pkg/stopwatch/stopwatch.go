// Package stopwatch measures elapsed time across one or more start/stop
// intervals against an injected clock.Source.
//
// A Stopwatch is not safe for concurrent mutation. Callers that share one
// must serialize Start, Stop, Reset and Restart themselves; concurrent
// Elapsed calls with no writer in flight are fine.
package stopwatch

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/psantana5/chrono/pkg/clock"
)

// Option configures a Stopwatch
type Option func(*Stopwatch)

// WithAnomalyHook registers fn to be called when the source is seen going
// backwards. It fires at most once per interval, however often the interval
// is read. The delta is clamped to zero either way.
func WithAnomalyHook(fn func(start, now clock.Tick)) Option {
	return func(s *Stopwatch) {
		s.onAnomaly = fn
	}
}

// Stopwatch accumulates elapsed ticks while running
type Stopwatch struct {
	src       clock.Source
	freq      uint64
	running   bool
	startTick clock.Tick
	// ticks from completed intervals only
	accumulated int64
	onAnomaly   func(start, now clock.Tick)
	// set once the current interval has reported an anomaly
	anomalySeen atomic.Bool
}

// New creates a stopped stopwatch reading from src.
// A nil src selects clock.System().
func New(src clock.Source, opts ...Option) *Stopwatch {
	if src == nil {
		src = clock.System()
	}
	s := &Stopwatch{
		src:  src,
		freq: src.Frequency(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartNew creates a stopwatch that is already running
func StartNew(src clock.Source, opts ...Option) *Stopwatch {
	s := New(src, opts...)
	s.Start()
	return s
}

// Start begins a new interval. It does nothing if already running.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.startTick = s.src.Now()
	s.running = true
	s.anomalySeen.Store(false)
}

// Stop ends the current interval and adds it to the total.
// It does nothing if already stopped.
func (s *Stopwatch) Stop() {
	if !s.running {
		return
	}
	s.accumulated = addSaturating(s.accumulated, s.delta(s.src.Now()))
	s.running = false
	s.startTick = 0
	s.anomalySeen.Store(false)
}

// Reset stops the stopwatch and discards everything measured so far,
// including any interval in flight.
func (s *Stopwatch) Reset() {
	s.accumulated = 0
	s.running = false
	s.startTick = 0
	s.anomalySeen.Store(false)
}

// Restart resets and starts the stopwatch in one step
func (s *Stopwatch) Restart() {
	s.accumulated = 0
	s.startTick = s.src.Now()
	s.running = true
	s.anomalySeen.Store(false)
}

// IsRunning reports whether an interval is in progress
func (s *Stopwatch) IsRunning() bool {
	return s.running
}

// ElapsedTicks returns the total measured time in source ticks
func (s *Stopwatch) ElapsedTicks() int64 {
	if !s.running {
		return s.accumulated
	}
	return addSaturating(s.accumulated, s.delta(s.src.Now()))
}

// Elapsed returns the total measured time
func (s *Stopwatch) Elapsed() time.Duration {
	return clock.ToDuration(s.ElapsedTicks(), s.freq)
}

// ElapsedMilliseconds returns Elapsed truncated to whole milliseconds
func (s *Stopwatch) ElapsedMilliseconds() int64 {
	return s.Elapsed().Milliseconds()
}

// Frequency returns the tick frequency of the underlying source
func (s *Stopwatch) Frequency() uint64 {
	return s.freq
}

func (s *Stopwatch) delta(now clock.Tick) int64 {
	if now < s.startTick {
		if s.onAnomaly != nil && s.anomalySeen.CompareAndSwap(false, true) {
			s.onAnomaly(s.startTick, now)
		}
		return 0
	}
	return clock.Since(s.startTick, now)
}

func addSaturating(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
