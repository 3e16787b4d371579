package clock

// quantized rounds the ticks of another source down to a fixed step
type quantized struct {
	src  Source
	step int64
}

// Quantized wraps src so that every reading is a multiple of step ticks.
// It models a source whose resolution is coarser than its tick unit.
func Quantized(src Source, step int64) Source {
	if step <= 1 {
		return src
	}
	return &quantized{src: src, step: step}
}

func (q *quantized) Now() Tick {
	t := int64(q.src.Now())
	r := t % q.step
	if r < 0 {
		r += q.step
	}
	return Tick(t - r)
}

func (q *quantized) Frequency() uint64 {
	return q.src.Frequency()
}

// Resolution estimates the smallest observable step of src in ticks by
// taking up to samples readings and keeping the smallest positive delta.
// It returns 0 if the source never advanced.
func Resolution(src Source, samples int) int64 {
	if samples < 2 {
		samples = 2
	}

	var best int64
	prev := src.Now()
	for i := 0; i < samples; i++ {
		cur := src.Now()
		// spin until the source moves, bounded so a stuck source returns
		for spins := 0; cur == prev && spins < 1_000_000; spins++ {
			cur = src.Now()
		}
		if d := Since(prev, cur); d > 0 && (best == 0 || d < best) {
			best = d
		}
		prev = cur
	}
	return best
}
