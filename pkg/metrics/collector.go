package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/psantana5/chrono/pkg/registry"
)

// Collector exports registry stopwatches as Prometheus gauges
type Collector struct {
	registry *registry.Registry
	elapsed  *prometheus.Desc
	running  *prometheus.Desc
	count    *prometheus.Desc
}

var _ prometheus.Collector = new(Collector)

// NewCollector creates a collector over r
func NewCollector(r *registry.Registry) *Collector {
	return &Collector{
		registry: r,
		elapsed: prometheus.NewDesc(
			"chrono_stopwatch_elapsed_seconds",
			"Elapsed time measured by a stopwatch",
			[]string{"id", "name"}, nil,
		),
		running: prometheus.NewDesc(
			"chrono_stopwatch_running",
			"Whether a stopwatch is currently running (1) or stopped (0)",
			[]string{"id", "name"}, nil,
		),
		count: prometheus.NewDesc(
			"chrono_stopwatches",
			"Number of registered stopwatches",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.elapsed
	ch <- c.running
	ch <- c.count
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	n := 0
	c.registry.Each(func(e registry.Entry) {
		n++
		running := 0.0
		if e.Running {
			running = 1
		}
		ch <- prometheus.MustNewConstMetric(c.elapsed, prometheus.GaugeValue, e.Elapsed.Seconds(), e.ID, e.Name)
		ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running, e.ID, e.Name)
	})
	ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(n))
}
