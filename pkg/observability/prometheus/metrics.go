package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "taskpool"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds the pool's Prometheus metrics. Counters and the duration
// histogram are fed through pool hooks; gauges come from a PoolCollector
// at scrape time.
type Metrics struct {
	TasksSubmitted prometheus.Counter
	TasksCompleted prometheus.Counter
	TasksFailed    prometheus.Counter
	TasksDropped   prometheus.Counter
	TaskDuration   prometheus.Histogram
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a new metrics collection
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		TasksSubmitted: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "taskpool_tasks_submitted_total",
				Help: "Total number of tasks accepted into the queue",
			},
		),
		TasksCompleted: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "taskpool_tasks_completed_total",
				Help: "Total number of tasks that finished successfully",
			},
		),
		TasksFailed: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "taskpool_tasks_failed_total",
				Help: "Total number of tasks that panicked during execution",
			},
		),
		TasksDropped: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "taskpool_tasks_dropped_total",
				Help: "Total number of queued tasks discarded at shutdown",
			},
		),
		TaskDuration: promauto.With(registerer).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "taskpool_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}
