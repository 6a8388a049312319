package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveRoot(t *testing.T) {
	c := NewCollector()
	c.ObserveRoot("cache", 10, 1, true)
	c.ObserveRoot("cache", 5, 0, false)
	c.ObserveRoot("logs", 2, 3, false)

	assert.Equal(t, 15.0, testutil.ToFloat64(c.entries.WithLabelValues("cache")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.entries.WithLabelValues("logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.softFailures.WithLabelValues("cache")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.softFailures.WithLabelValues("logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.truncated.WithLabelValues("cache")))
}

func TestCollector_ObserveClear(t *testing.T) {
	c := NewCollector()
	c.ObserveClear("trash", 2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cleared.WithLabelValues("trash", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cleared.WithLabelValues("trash", "failure")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRoot("cache", 1, 1, true)
		c.ObserveScan("cache", "list", time.Now())
		c.ObserveClear("cache", 1, 0)
	})
}

func TestWriteText(t *testing.T) {
	c := NewCollector()
	c.ObserveRoot("trash", 3, 0, false)
	c.ObserveScan("trash", "summary", time.Now())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))

	out := buf.String()
	assert.Contains(t, out, `diskscope_scan_entries_total{category="trash"} 3`)
	assert.Contains(t, out, `diskscope_scan_duration_seconds_count{category="trash",scope="summary"} 1`)
}
