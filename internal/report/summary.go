package report

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Summary aggregates repeated measurements of the same thing
type Summary struct {
	Label  string        `json:"label" yaml:"label"`
	Count  int           `json:"count" yaml:"count"`
	Total  time.Duration `json:"total_ns" yaml:"total_ns"`
	Min    time.Duration `json:"min_ns" yaml:"min_ns"`
	Max    time.Duration `json:"max_ns" yaml:"max_ns"`
	Mean   time.Duration `json:"mean_ns" yaml:"mean_ns"`
	Median time.Duration `json:"median_ns" yaml:"median_ns"`
	P95    time.Duration `json:"p95_ns" yaml:"p95_ns"`
	StdDev time.Duration `json:"stddev_ns" yaml:"stddev_ns"`
}

// Summarize computes a Summary. Total saturates instead of overflowing.
func Summarize(label string, samples []time.Duration) Summary {
	s := Summary{Label: label, Count: len(samples)}
	if len(samples) == 0 {
		return s
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Median = percentile(sorted, 0.5)
	s.P95 = percentile(sorted, 0.95)

	var mean float64
	for _, d := range sorted {
		if s.Total > math.MaxInt64-d {
			s.Total = math.MaxInt64
		} else {
			s.Total += d
		}
		mean += float64(d) / float64(len(sorted))
	}
	s.Mean = time.Duration(mean)

	var variance float64
	for _, d := range sorted {
		diff := float64(d) - mean
		variance += diff * diff / float64(len(sorted))
	}
	s.StdDev = time.Duration(math.Sqrt(variance))
	return s
}

// nearest-rank percentile over sorted samples
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// String is the one-line form used in logs
func (s Summary) String() string {
	return fmt.Sprintf("%s | n=%d | min=%s | median=%s | p95=%s | max=%s | mean=%s",
		s.Label, s.Count, s.Min, s.Median, s.P95, s.Max, s.Mean)
}
