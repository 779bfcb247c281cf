package pool

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Pool schedules opaque tasks onto a fixed set of long-lived background
// workers, decoupling submission from execution. Workers are started by
// New and only ever added to; the pool never shrinks.
type Pool interface {
	// Detach enqueues a task and returns immediately. Completion and
	// failure are observable only through the task's own side effects
	// plus the pool counters.
	Detach(task Task) error

	// DetachMany enqueues tasks as one atomic batch and returns
	// immediately. A nil element rejects the whole batch before anything
	// is queued.
	DetachMany(tasks []Task) error

	// Run enqueues tasks as one atomic batch and blocks until every one
	// has finished. Returns nil when all succeeded, otherwise the first
	// failure, reported only after all peers settle. Run of no tasks
	// returns immediately.
	Run(tasks ...Task) error

	// Resize grows the pool to n workers.
	// Returns ErrShrink if n is below the current count.
	Resize(n int) error

	// Size returns the current worker count
	Size() int

	// Stats returns a point-in-time snapshot of pool activity
	Stats() Stats

	// IsRunning reports whether the pool still accepts work
	IsRunning() bool

	// Stop gracefully stops the pool. In-flight tasks finish while
	// queued tasks that never started are discarded; ctx bounds the
	// wait for the workers to exit. Stop is idempotent.
	Stop(ctx context.Context) error
}

// Hooks are optional callbacks observing task lifecycle events.
// They run on submitter and worker goroutines and must be fast.
type Hooks struct {
	OnSubmit func(n int)                      // n tasks accepted into the queue
	OnStart  func()                           // a worker picked a task up
	OnFinish func(d time.Duration, err error) // a task finished, with run time and outcome
	OnError  func(err error)                  // a task failed
	OnDrop   func(n int)                      // n queued tasks discarded at shutdown
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	PoolID     string `json:"pool_id"`
	Workers    int    `json:"workers"`
	QueueDepth int    `json:"queue_depth"`
	Submitted  int64  `json:"submitted"`
	Batches    int64  `json:"batches"`
	Completed  int64  `json:"completed"`
	Failed     int64  `json:"failed"`
	Dropped    int64  `json:"dropped"`
	Running    bool   `json:"running"`
}

// Config configures a Pool.
type Config struct {
	// Workers is the number of worker goroutines. Zero or negative
	// selects the hardware concurrency hint, with a floor of one.
	Workers int

	// Logger receives lifecycle and detached-failure messages.
	// nil selects the standard stderr logger.
	Logger Logger

	// Hooks observe task lifecycle events. The zero value disables them.
	Hooks Hooks

	// TracerProvider enables one span per blocking batch when set.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
	}
}

// New creates a Pool and starts its workers immediately.
func New(cfg Config) Pool {
	return newDefaultPool(cfg)
}
