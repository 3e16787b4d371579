package report

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	ms := time.Millisecond
	samples := []time.Duration{5 * ms, 1 * ms, 3 * ms, 2 * ms, 4 * ms}

	s := Summarize("cmd", samples)
	if s.Count != 5 {
		t.Errorf("Count = %d, want 5", s.Count)
	}
	if s.Min != ms || s.Max != 5*ms {
		t.Errorf("Min/Max = %v/%v, want 1ms/5ms", s.Min, s.Max)
	}
	if s.Median != 3*ms {
		t.Errorf("Median = %v, want 3ms", s.Median)
	}
	if s.P95 != 5*ms {
		t.Errorf("P95 = %v, want 5ms", s.P95)
	}
	if s.Total != 15*ms || s.Mean != 3*ms {
		t.Errorf("Total/Mean = %v/%v, want 15ms/3ms", s.Total, s.Mean)
	}
	if s.StdDev <= 0 {
		t.Errorf("StdDev = %v, want positive", s.StdDev)
	}

	// input left untouched
	if samples[0] != 5*ms {
		t.Error("Summarize reordered its input")
	}
	if !strings.Contains(s.String(), "n=5") {
		t.Errorf("Unexpected String(): %s", s.String())
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("none", nil)
	if s.Count != 0 || s.Total != 0 || s.Max != 0 {
		t.Errorf("Expected zero summary, got %+v", s)
	}
}

func TestSummarizeSaturates(t *testing.T) {
	big := time.Duration(math.MaxInt64 - 1)
	s := Summarize("big", []time.Duration{big, big})
	if s.Total != time.Duration(math.MaxInt64) {
		t.Errorf("Total = %v, want saturation", s.Total)
	}
}
