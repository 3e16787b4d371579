package clock

import (
	"math"
	"math/bits"
	"time"
)

// Tick is an opaque monotonic reading from a Source.
// Ticks from different processes or boots are not comparable.
type Tick int64

// Source supplies monotonically non-decreasing ticks
type Source interface {
	Now() Tick
	// Frequency is the number of ticks per second. It never changes.
	Frequency() uint64
}

// NanosecondFrequency is the frequency of the system source
const NanosecondFrequency uint64 = uint64(time.Second)

// monotonic reads Go's monotonic clock relative to a fixed epoch
type monotonic struct {
	epoch time.Time
}

var system Source = &monotonic{epoch: time.Now()}

// System returns the process-wide monotonic source
func System() Source {
	return system
}

// GetTimestamp returns the current tick of the system source
func GetTimestamp() Tick {
	return system.Now()
}

func (m *monotonic) Now() Tick {
	// time.Since uses the monotonic reading carried by epoch
	return Tick(time.Since(m.epoch))
}

func (m *monotonic) Frequency() uint64 {
	return NanosecondFrequency
}

// ToDuration converts a tick count into a duration at the given frequency.
// The result truncates toward zero, negative counts yield 0 and values
// beyond the range of time.Duration saturate at its maximum.
func ToDuration(ticks int64, freq uint64) time.Duration {
	if ticks <= 0 || freq == 0 {
		return 0
	}
	if freq == NanosecondFrequency {
		return time.Duration(ticks)
	}

	f := freq
	if f > math.MaxInt64 {
		// one tick is shorter than a nanosecond at any realistic count
		return time.Duration(ticks / int64(f/NanosecondFrequency))
	}
	fi := int64(f)

	secs := ticks / fi
	rem := ticks % fi

	if secs > int64(math.MaxInt64/int64(time.Second)) {
		return time.Duration(math.MaxInt64)
	}
	whole := secs * int64(time.Second)

	// rem < freq, so rem*1e9 may still overflow for very high frequencies
	var frac int64
	if rem <= math.MaxInt64/int64(time.Second) {
		frac = rem * int64(time.Second) / fi
	} else {
		frac = int64(float64(rem) / float64(fi) * float64(time.Second))
	}

	if whole > math.MaxInt64-frac {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(whole + frac)
}

// FromDuration converts d into ticks at the given frequency, truncating
// toward zero and saturating at the range of int64.
func FromDuration(d time.Duration, freq uint64) int64 {
	if d < 0 {
		if d == math.MinInt64 {
			d++
		}
		return -FromDuration(-d, freq)
	}
	if d == 0 || freq == 0 {
		return 0
	}

	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)

	hi, whole := bits.Mul64(secs, freq)
	if hi != 0 || whole > math.MaxInt64 {
		return math.MaxInt64
	}
	// rem < 1e9, so the high word is below the divisor
	fhi, flo := bits.Mul64(rem, freq)
	frac, _ := bits.Div64(fhi, flo, uint64(time.Second))

	total, carry := bits.Add64(whole, frac, 0)
	if carry != 0 || total > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(total)
}

// Since returns the non-negative tick delta between start and now
func Since(start, now Tick) int64 {
	if now <= start {
		return 0
	}
	d := int64(now) - int64(start)
	if d < 0 {
		// wrapped: start was negative and now large
		return math.MaxInt64
	}
	return d
}
