// Package selftest checks a clock.Source and the stopwatch built on it
// against the behavior callers rely on.
package selftest

import (
	"fmt"
	"time"

	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

// Check is one verified property
type Check struct {
	Scenario string `json:"scenario" yaml:"scenario"`
	Name     string `json:"name" yaml:"name"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Suite runs scenarios against Source, calling Sleep wherever real time
// has to pass
type Suite struct {
	Source clock.Source
	Sleep  func(time.Duration)
	// Unit is the smallest interval the scenarios wait for. It should be at
	// least ten resolution units of Source.
	Unit time.Duration

	checks   []Check
	scenario string
}

// Run executes every scenario and returns the checks in order
func (s *Suite) Run() []Check {
	if s.Sleep == nil {
		s.Sleep = time.Sleep
	}
	if s.Unit <= 0 {
		s.Unit = time.Millisecond
	}
	s.checks = nil

	s.timestamps()
	s.constructStartStop()
	s.startNewAndReset()
	s.startNewAndRestart()
	return s.checks
}

// Passed reports whether every check passed
func Passed(checks []Check) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

func (s *Suite) expect(name string, ok bool, detail string, args ...interface{}) {
	c := Check{Scenario: s.scenario, Name: name, Passed: ok}
	if !ok {
		c.Detail = fmt.Sprintf(detail, args...)
	}
	s.checks = append(s.checks, c)
}

func (s *Suite) timestamps() {
	s.scenario = "timestamp"
	ts1 := s.Source.Now()
	s.Sleep(s.Unit)
	ts2 := s.Source.Now()
	s.expect("advances", ts2 > ts1, "got %d then %d", ts1, ts2)
	s.expect("frequency", s.Source.Frequency() > 0, "frequency is zero")
}

func (s *Suite) constructStartStop() {
	s.scenario = "start/stop"
	w := stopwatch.New(s.Source)
	s.expect("new is stopped", !w.IsRunning(), "running after New")
	s.expect("new is zero", w.Elapsed() == 0, "elapsed %v", w.Elapsed())

	w.Start()
	s.expect("running after start", w.IsRunning(), "not running")
	s.Sleep(s.Unit)
	s.expect("elapsed grows", w.Elapsed() > 0, "elapsed %v", w.Elapsed())

	w.Stop()
	s.expect("stopped after stop", !w.IsRunning(), "still running")

	e1 := w.Elapsed()
	s.Sleep(s.Unit)
	e2 := w.Elapsed()
	s.expect("stable while stopped", e1 == e2, "%v then %v", e1, e2)
	s.expect("milliseconds agree", w.ElapsedMilliseconds() == e1.Milliseconds(),
		"%d vs %d", w.ElapsedMilliseconds(), e1.Milliseconds())
}

func (s *Suite) startNewAndReset() {
	s.scenario = "reset"
	w := stopwatch.StartNew(s.Source)
	s.expect("running after StartNew", w.IsRunning(), "not running")
	before := w.ElapsedTicks()
	w.Start()
	s.expect("start is a no-op", w.IsRunning() && w.ElapsedTicks() >= before,
		"running=%v ticks %d then %d", w.IsRunning(), before, w.ElapsedTicks())
	s.Sleep(s.Unit)
	s.expect("elapsed grows", w.Elapsed() > 0, "elapsed %v", w.Elapsed())

	w.Reset()
	s.expect("stopped after reset", !w.IsRunning(), "still running")
	s.expect("zero after reset", w.Elapsed() == 0, "elapsed %v", w.Elapsed())
}

func (s *Suite) startNewAndRestart() {
	s.scenario = "restart"
	w := stopwatch.StartNew(s.Source)
	s.Sleep(10 * s.Unit)
	sinceStart := w.Elapsed()
	s.expect("elapsed grows", sinceStart > 0, "elapsed %v", sinceStart)

	w.Restart()
	s.expect("running after restart", w.IsRunning(), "not running")
	after := w.Elapsed()
	s.expect("restart drops previous run", after < sinceStart, "%v is not below %v", after, sinceStart)
}
