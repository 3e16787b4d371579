package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/psantana5/chrono/pkg/clock"
	"github.com/psantana5/chrono/pkg/registry"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

func TestCollectorExportsStopwatches(t *testing.T) {
	m := clock.NewManual(0)
	r := registry.New(m)
	e, err := r.Create("ingest", true)
	if err != nil {
		t.Fatalf("Failed to create stopwatch: %v", err)
	}
	m.AdvanceDuration(1500 * time.Millisecond)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(r))

	var buf bytes.Buffer
	if err := Dump(reg, &buf); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	out := buf.String()

	wantLines := []string{
		`chrono_stopwatch_elapsed_seconds{id="` + e.ID + `",name="ingest"} 1.5`,
		`chrono_stopwatch_running{id="` + e.ID + `",name="ingest"} 1`,
		`chrono_stopwatches 1`,
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	rec.ObservePhase("run", 20*time.Millisecond)
	rec.ObservePhase("run", 40*time.Millisecond)

	m := clock.NewManual(0)
	m.Set(100)
	s := stopwatch.StartNew(m, stopwatch.WithAnomalyHook(rec.AnomalyHook()))
	m.Set(50)
	s.Stop()

	var buf bytes.Buffer
	if err := Dump(reg, &buf); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `chrono_phase_duration_seconds_count{phase="run"} 2`) {
		t.Errorf("Expected two observations of phase run, got:\n%s", out)
	}
	if !strings.Contains(out, "chrono_clock_anomalies_total 1") {
		t.Errorf("Expected one anomaly, got:\n%s", out)
	}
}

func TestAnomalyCountedOncePerInterval(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	m := clock.NewManual(0)
	m.Set(1000)
	r := registry.New(m, stopwatch.WithAnomalyHook(rec.AnomalyHook()))
	if _, err := r.Create("skewed", true); err != nil {
		t.Fatalf("Failed to create stopwatch: %v", err)
	}
	reg.MustRegister(NewCollector(r))

	m.Set(10)
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		buf.Reset()
		if err := Dump(reg, &buf); err != nil {
			t.Fatalf("Dump failed: %v", err)
		}
	}
	if !strings.Contains(buf.String(), "chrono_clock_anomalies_total 1") {
		t.Errorf("Expected repeated scrapes to count one anomaly, got:\n%s", buf.String())
	}
}

func TestRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("First NewRecorder failed: %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Error("Expected error registering the same metrics twice")
	}
}
