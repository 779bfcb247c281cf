package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskpoolio/taskpool/pkg/pool"
)

// Hooks returns pool lifecycle hooks that feed these metrics.
// Wire them in through pool.Config.Hooks.
func (m *Metrics) Hooks() pool.Hooks {
	return pool.Hooks{
		OnSubmit: func(n int) {
			m.TasksSubmitted.Add(float64(n))
		},
		OnFinish: func(d time.Duration, err error) {
			m.TaskDuration.Observe(d.Seconds())
			if err == nil {
				m.TasksCompleted.Inc()
			}
		},
		OnError: func(error) {
			m.TasksFailed.Inc()
		},
		OnDrop: func(n int) {
			m.TasksDropped.Add(float64(n))
		},
	}
}

var (
	workersDesc = prometheus.NewDesc(
		"taskpool_workers",
		"Current number of worker goroutines",
		nil, nil,
	)
	queueDepthDesc = prometheus.NewDesc(
		"taskpool_queue_depth",
		"Number of tasks waiting in the queue",
		nil, nil,
	)
	upDesc = prometheus.NewDesc(
		"taskpool_up",
		"Whether the pool accepts work (1) or has been stopped (0)",
		nil, nil,
	)
	batchesDesc = prometheus.NewDesc(
		"taskpool_batches_total",
		"Total number of blocking batches submitted",
		nil, nil,
	)
)

// PoolCollector exports point-in-time pool state at scrape time.
// Counters already fed by Hooks are deliberately not duplicated here.
type PoolCollector struct {
	pool pool.Pool
}

// NewPoolCollector creates a collector reading from p.
func NewPoolCollector(p pool.Pool) *PoolCollector {
	return &PoolCollector{pool: p}
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- workersDesc
	ch <- queueDepthDesc
	ch <- upDesc
	ch <- batchesDesc
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.Stats()

	up := 0.0
	if stats.Running {
		up = 1.0
	}

	ch <- prometheus.MustNewConstMetric(workersDesc, prometheus.GaugeValue, float64(stats.Workers))
	ch <- prometheus.MustNewConstMetric(queueDepthDesc, prometheus.GaugeValue, float64(stats.QueueDepth))
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(batchesDesc, prometheus.CounterValue, float64(stats.Batches))
}
