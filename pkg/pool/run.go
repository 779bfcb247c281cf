package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// batchTracker collects the outcome of one blocking batch. The WaitGroup
// is counted to the batch size before anything is enqueued, so it
// tolerates tasks finishing before the submitter starts waiting.
type batchTracker struct {
	wg  sync.WaitGroup
	mu  sync.Mutex
	err error
}

func newBatchTracker(n int) *batchTracker {
	t := &batchTracker{}
	t.wg.Add(n)
	return t
}

// settle records the outcome of one batch member. The first failure wins.
func (t *batchTracker) settle(err error) {
	if err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
	}
	t.wg.Done()
}

// wait blocks until every member has settled, then reports the first failure.
func (t *batchTracker) wait() error {
	t.wg.Wait()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Run implements Pool interface
func (p *defaultPool) Run(tasks ...Task) error {
	return p.runBatch("pool.run", tasks)
}

// runBatch wraps the tasks with one shared tracker, enqueues them as one
// atomic batch and blocks until all of them settle.
func (p *defaultPool) runBatch(spanName string, tasks []Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	var span trace.Span
	if p.tracer != nil {
		_, span = p.tracer.Start(context.Background(), spanName,
			trace.WithAttributes(
				attribute.String("pool.id", p.id),
				attribute.Int("batch.size", len(tasks)),
			))
		defer span.End()
	}

	tracker := newBatchTracker(len(tasks))
	jobs := make([]job, len(tasks))
	for i, t := range tasks {
		jobs[i] = job{task: t, tracker: tracker}
	}
	if !p.queue.pushBatch(jobs) {
		if span != nil {
			span.SetStatus(codes.Error, ErrPoolClosed.Error())
		}
		return ErrPoolClosed
	}
	atomic.AddInt64(&p.batches, 1)
	p.noteSubmitted(len(tasks))

	err := tracker.wait()
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// batchRunner lets range submission reuse the batch machinery under its
// own span name. Pool implementations outside this package fall back to
// plain Run.
type batchRunner interface {
	runBatch(spanName string, tasks []Task) error
}

// RangeBody is the set of body shapes RunRange accepts: a closure that
// ignores its index or one that receives it.
type RangeBody interface {
	func() | func(int)
}

// RunRange runs body once per index in [start, end) on p and blocks until
// the whole range has finished, returning the first failure. An empty
// range (start >= end) returns immediately without invoking the body.
func RunRange[F RangeBody](p Pool, start, end int, body F) error {
	if start >= end {
		return nil
	}

	tasks := make([]Task, 0, end-start)
	switch fn := any(body).(type) {
	case func():
		for i := start; i < end; i++ {
			tasks = append(tasks, fn)
		}
	case func(int):
		for i := start; i < end; i++ {
			idx := i
			tasks = append(tasks, func() { fn(idx) })
		}
	}

	if br, ok := p.(batchRunner); ok {
		return br.runBatch("pool.run_range", tasks)
	}
	return p.Run(tasks...)
}
