package clock

import (
	"math"
	"sync"
	"time"
)

// Manual is a Source that only moves when told to.
// It is safe for concurrent use.
type Manual struct {
	mu   sync.Mutex
	now  Tick
	freq uint64
}

var _ Source = new(Manual)

// NewManual creates a manual source at tick 0. A zero frequency selects
// nanosecond ticks.
func NewManual(freq uint64) *Manual {
	if freq == 0 {
		freq = NanosecondFrequency
	}
	return &Manual{freq: freq}
}

func (m *Manual) Now() Tick {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Frequency() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.freq == 0 {
		return NanosecondFrequency
	}
	return m.freq
}

// Advance moves the source by n ticks, saturating at the range of Tick
func (m *Manual) Advance(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case n > 0 && int64(m.now) > math.MaxInt64-n:
		m.now = math.MaxInt64
	case n < 0 && int64(m.now) < math.MinInt64-n:
		m.now = math.MinInt64
	default:
		m.now += Tick(n)
	}
}

// AdvanceDuration moves the source forward by the tick equivalent of d
func (m *Manual) AdvanceDuration(d time.Duration) {
	m.Advance(FromDuration(d, m.Frequency()))
}

// Set jumps to an absolute tick. Moving backwards simulates a clock anomaly.
func (m *Manual) Set(t Tick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
