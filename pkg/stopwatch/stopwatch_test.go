package stopwatch

import (
	"math"
	"testing"
	"time"

	"github.com/psantana5/chrono/pkg/clock"
)

func TestNewIsStopped(t *testing.T) {
	s := New(clock.NewManual(0))
	if s.IsRunning() {
		t.Error("New stopwatch should not be running")
	}
	if s.Elapsed() != 0 {
		t.Errorf("New stopwatch elapsed = %v, want 0", s.Elapsed())
	}
	if s.ElapsedTicks() != 0 {
		t.Errorf("New stopwatch ticks = %d, want 0", s.ElapsedTicks())
	}
}

func TestNilSourceUsesSystem(t *testing.T) {
	s := New(nil)
	if s.Frequency() != clock.NanosecondFrequency {
		t.Errorf("Frequency() = %d, want system frequency", s.Frequency())
	}
}

func TestIntervalsAccumulate(t *testing.T) {
	tests := []struct {
		name string
		ops  func(s *Stopwatch, m *clock.Manual)
		want int64
	}{
		{
			name: "single interval",
			ops: func(s *Stopwatch, m *clock.Manual) {
				s.Start()
				m.Advance(100)
				s.Stop()
			},
			want: 100,
		},
		{
			name: "two intervals with gap",
			ops: func(s *Stopwatch, m *clock.Manual) {
				s.Start()
				m.Advance(100)
				s.Stop()
				m.Advance(1000)
				s.Start()
				m.Advance(50)
				s.Stop()
			},
			want: 150,
		},
		{
			name: "redundant starts and stops",
			ops: func(s *Stopwatch, m *clock.Manual) {
				s.Stop()
				s.Start()
				m.Advance(10)
				s.Start()
				m.Advance(10)
				s.Start()
				s.Stop()
				s.Stop()
				m.Advance(99)
				s.Stop()
				s.Start()
				m.Advance(5)
				s.Stop()
			},
			want: 25,
		},
		{
			name: "no intervals",
			ops: func(s *Stopwatch, m *clock.Manual) {
				m.Advance(500)
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := clock.NewManual(0)
			s := New(m)
			tt.ops(s, m)
			if got := s.ElapsedTicks(); got != tt.want {
				t.Errorf("ElapsedTicks() = %d, want %d", got, tt.want)
			}
			if got := s.Elapsed(); got != time.Duration(tt.want) {
				t.Errorf("Elapsed() = %v, want %v", got, time.Duration(tt.want))
			}
		})
	}
}

func TestStartWhileRunningKeepsInterval(t *testing.T) {
	m := clock.NewManual(0)
	s := StartNew(m)
	m.Advance(40)
	s.Start()
	m.Advance(60)
	if got := s.ElapsedTicks(); got != 100 {
		t.Errorf("Start while running restarted the interval: got %d, want 100", got)
	}
}

func TestStopWhileStoppedIsStable(t *testing.T) {
	m := clock.NewManual(0)
	s := StartNew(m)
	m.Advance(70)
	s.Stop()
	e1 := s.Elapsed()
	m.Advance(1000)
	s.Stop()
	if e2 := s.Elapsed(); e2 != e1 {
		t.Errorf("Elapsed changed while stopped: %v then %v", e1, e2)
	}
	if s.Elapsed() != s.Elapsed() {
		t.Error("Consecutive Elapsed calls while stopped differ")
	}
}

func TestRunningElapsedIncreases(t *testing.T) {
	m := clock.NewManual(0)
	s := StartNew(m)
	a := s.ElapsedTicks()
	b := s.ElapsedTicks()
	if b < a {
		t.Errorf("Elapsed decreased without clock movement: %d then %d", a, b)
	}
	m.Advance(1)
	if c := s.ElapsedTicks(); c <= b {
		t.Errorf("Elapsed did not increase after clock moved: %d then %d", b, c)
	}
}

func TestReset(t *testing.T) {
	for _, running := range []bool{true, false} {
		m := clock.NewManual(0)
		s := StartNew(m)
		m.Advance(500)
		if !running {
			s.Stop()
		}
		s.Reset()
		if s.IsRunning() {
			t.Errorf("running=%v: Reset left stopwatch running", running)
		}
		if s.Elapsed() != 0 {
			t.Errorf("running=%v: Elapsed after Reset = %v", running, s.Elapsed())
		}
		m.Advance(500)
		if s.Elapsed() != 0 {
			t.Errorf("running=%v: in-flight interval survived Reset", running)
		}
	}
}

func TestRestart(t *testing.T) {
	m := clock.NewManual(0)
	s := StartNew(m)
	m.Advance(300)
	s.Stop()
	m.Advance(10)
	s.Start()
	m.Advance(300)
	before := s.ElapsedTicks()

	s.Restart()
	if !s.IsRunning() {
		t.Fatal("Restart should leave the stopwatch running")
	}
	if got := s.ElapsedTicks(); got != 0 {
		t.Errorf("Elapsed immediately after Restart = %d, want 0", got)
	}
	m.Advance(5)
	if got := s.ElapsedTicks(); got != 5 || got >= before {
		t.Errorf("Elapsed after Restart = %d, want 5 (< %d)", got, before)
	}
}

func TestClockAnomalyClamps(t *testing.T) {
	m := clock.NewManual(0)
	m.Set(1000)

	var anomalies int
	s := StartNew(m, WithAnomalyHook(func(start, now clock.Tick) {
		anomalies++
		if now >= start {
			t.Errorf("Hook called without anomaly: start=%d now=%d", start, now)
		}
	}))

	m.Set(400)
	if got := s.ElapsedTicks(); got != 0 {
		t.Errorf("Elapsed with backwards clock = %d, want 0", got)
	}
	s.Stop()
	if got := s.Elapsed(); got != 0 {
		t.Errorf("Elapsed after anomalous stop = %v, want 0", got)
	}
	if anomalies != 1 {
		t.Errorf("Expected 1 anomaly callback for the interval, got %d", anomalies)
	}
}

func TestAnomalyReportedOncePerInterval(t *testing.T) {
	m := clock.NewManual(0)
	m.Set(1000)

	var anomalies int
	s := StartNew(m, WithAnomalyHook(func(start, now clock.Tick) {
		anomalies++
	}))

	m.Set(500)
	for i := 0; i < 10; i++ {
		s.Elapsed()
	}
	if anomalies != 1 {
		t.Fatalf("Repeated reads of one interval reported %d anomalies, want 1", anomalies)
	}

	// a new interval can report again
	s.Restart()
	m.Set(100)
	s.ElapsedTicks()
	s.Stop()
	if anomalies != 2 {
		t.Errorf("Expected a second anomaly after Restart, got %d", anomalies)
	}

	s.Start()
	m.Advance(50)
	s.Stop()
	if anomalies != 2 {
		t.Errorf("Forward interval reported an anomaly, total %d", anomalies)
	}
	if got := s.ElapsedTicks(); got != 50 {
		t.Errorf("ElapsedTicks() = %d, want 50", got)
	}
}

func TestSaturation(t *testing.T) {
	m := clock.NewManual(0)
	s := StartNew(m)
	m.Set(math.MaxInt64 - 10)
	s.Stop()

	m.Set(0)
	s.Start()
	m.Set(math.MaxInt64)
	s.Stop()

	if got := s.ElapsedTicks(); got != math.MaxInt64 {
		t.Errorf("ElapsedTicks() = %d, want saturation at MaxInt64", got)
	}
	if got := s.Elapsed(); got != time.Duration(math.MaxInt64) {
		t.Errorf("Elapsed() = %v, want max duration", got)
	}
}

func TestConversionUsesFrequency(t *testing.T) {
	m := clock.NewManual(1000)
	s := StartNew(m)
	m.Advance(1234)
	s.Stop()

	if got := s.Elapsed(); got != 1234*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 1.234s", got)
	}
	if got := s.ElapsedMilliseconds(); got != 1234 {
		t.Errorf("ElapsedMilliseconds() = %d, want 1234", got)
	}
	if s.ElapsedTicks() != 1234 {
		t.Errorf("ElapsedTicks() = %d, want 1234", s.ElapsedTicks())
	}
}

func TestCoarseSourceAllowsEqualReadings(t *testing.T) {
	m := clock.NewManual(0)
	s := StartNew(clock.Quantized(m, 100))
	m.Advance(30)
	a := s.Elapsed()
	m.Advance(30)
	b := s.Elapsed()
	if a != b {
		t.Errorf("Expected equal readings within one resolution step, got %v and %v", a, b)
	}
	m.Advance(100)
	if c := s.Elapsed(); c <= b {
		t.Errorf("Expected increase after a full step, got %v then %v", b, c)
	}
}

// Exercises the system clock with real sleeps
func TestSystemClockScenario(t *testing.T) {
	watch := New(nil)
	if watch.IsRunning() {
		t.Fatal("Expected new stopwatch to be stopped")
	}
	if watch.Elapsed() != 0 {
		t.Fatalf("Expected zero elapsed, got %v", watch.Elapsed())
	}

	watch.Start()
	if !watch.IsRunning() {
		t.Fatal("Expected stopwatch to be running after Start")
	}
	time.Sleep(10 * time.Millisecond)
	if watch.Elapsed() <= 0 {
		t.Errorf("Expected positive elapsed while running, got %v", watch.Elapsed())
	}

	watch.Stop()
	if watch.IsRunning() {
		t.Fatal("Expected stopwatch to be stopped after Stop")
	}
	e1 := watch.Elapsed()
	time.Sleep(time.Millisecond)
	e2 := watch.Elapsed()
	if e1 != e2 {
		t.Errorf("Elapsed changed while stopped: %v then %v", e1, e2)
	}
	if watch.ElapsedMilliseconds() != e1.Milliseconds() {
		t.Errorf("ElapsedMilliseconds() = %d, want %d", watch.ElapsedMilliseconds(), e1.Milliseconds())
	}

	watch.Restart()
	if !watch.IsRunning() {
		t.Fatal("Expected stopwatch to be running after Restart")
	}
	if watch.Elapsed() >= e1 {
		t.Errorf("Expected elapsed after Restart below %v, got %v", e1, watch.Elapsed())
	}
}

func TestStartNewAndReset(t *testing.T) {
	watch := StartNew(nil)
	watch.Start()
	if !watch.IsRunning() {
		t.Fatal("Expected StartNew stopwatch to be running")
	}
	time.Sleep(time.Millisecond)
	if watch.Elapsed() <= 0 {
		t.Errorf("Expected positive elapsed, got %v", watch.Elapsed())
	}
	watch.Reset()
	if watch.IsRunning() || watch.Elapsed() != 0 {
		t.Errorf("Expected stopped zero stopwatch after Reset, got running=%v elapsed=%v",
			watch.IsRunning(), watch.Elapsed())
	}
}
