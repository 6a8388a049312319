// Package metrics exposes scan and clear activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	_ prometheus.Collector = new(Collector)

	scanDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Collector counts traversal and clearing outcomes per category.
// A nil *Collector ignores every observation.
type Collector struct {
	lock sync.RWMutex

	entries      *prometheus.CounterVec
	softFailures *prometheus.CounterVec
	truncated    *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	cleared      *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diskscope_scan_entries_total",
				Help: "The total number of regular files emitted by tree walks, partitioned by category.",
			},
			[]string{"category"},
		),
		softFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diskscope_scan_soft_failures_total",
				Help: "The total number of directories skipped because they could not be read, partitioned by category.",
			},
			[]string{"category"},
		),
		truncated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diskscope_scan_truncated_roots_total",
				Help: "The total number of scan roots whose walk stopped at the entry cap, partitioned by category.",
			},
			[]string{"category"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diskscope_scan_duration_seconds",
				Help:    "Latency histogram of scans, partitioned by category and scope.",
				Buckets: scanDurationBuckets,
			},
			[]string{"category", "scope"},
		),
		cleared: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diskscope_cleared_files_total",
				Help: "The total number of files a clear operation attempted, partitioned by category and result.",
			},
			[]string{"category", "result"},
		),
	}
}

// ObserveRoot records the outcome of walking one scan root
func (c *Collector) ObserveRoot(category string, emitted, softFailures int, truncated bool) {
	if c == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries.WithLabelValues(category).Add(float64(emitted))
	c.softFailures.WithLabelValues(category).Add(float64(softFailures))
	if truncated {
		c.truncated.WithLabelValues(category).Inc()
	}
}

// ObserveScan records how long a complete scan took
func (c *Collector) ObserveScan(category, scope string, started time.Time) {
	if c == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.durations.WithLabelValues(category, scope).Observe(time.Since(started).Seconds())
}

// ObserveClear records how many files a clear operation removed and failed on
func (c *Collector) ObserveClear(category string, cleared, failed int) {
	if c == nil {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.cleared.WithLabelValues(category, "success").Add(float64(cleared))
	c.cleared.WithLabelValues(category, "failure").Add(float64(failed))
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.entries.Describe(ch)
	c.softFailures.Describe(ch)
	c.truncated.Describe(ch)
	c.durations.Describe(ch)
	c.cleared.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	c.entries.Collect(ch)
	c.softFailures.Collect(ch)
	c.truncated.Collect(ch)
	c.durations.Collect(ch)
	c.cleared.Collect(ch)
}

// WriteText gathers g and writes every family in the Prometheus text format
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
