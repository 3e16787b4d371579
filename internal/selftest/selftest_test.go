package selftest

import (
	"testing"
	"time"

	"github.com/psantana5/chrono/pkg/clock"
)

func TestSuiteWithManualClock(t *testing.T) {
	m := clock.NewManual(0)
	s := &Suite{Source: m, Sleep: m.AdvanceDuration}

	checks := s.Run()
	if len(checks) == 0 {
		t.Fatal("Expected checks to run")
	}
	for _, c := range checks {
		if !c.Passed {
			t.Errorf("%s/%s failed: %s", c.Scenario, c.Name, c.Detail)
		}
	}
	if !Passed(checks) {
		t.Error("Passed() should be true")
	}
}

func TestSuiteWithSystemClock(t *testing.T) {
	s := &Suite{Source: clock.System(), Unit: 2 * time.Millisecond}
	for _, c := range s.Run() {
		if !c.Passed {
			t.Errorf("%s/%s failed: %s", c.Scenario, c.Name, c.Detail)
		}
	}
}

func TestSuiteDetectsStuckClock(t *testing.T) {
	m := clock.NewManual(0)
	// sleeping never moves the clock
	s := &Suite{Source: m, Sleep: func(time.Duration) {}}

	checks := s.Run()
	if Passed(checks) {
		t.Fatal("Expected a stuck clock to fail")
	}

	var failed int
	for _, c := range checks {
		if !c.Passed {
			failed++
			if c.Detail == "" {
				t.Errorf("%s/%s failed without detail", c.Scenario, c.Name)
			}
		}
	}
	if failed == 0 {
		t.Error("Expected failing checks")
	}
}
