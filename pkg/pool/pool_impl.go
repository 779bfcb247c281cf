package pool

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// defaultPool implements Pool. All queue state lives behind the taskQueue
// lock; the pool mutex only guards the worker count and the stopped flag.
type defaultPool struct {
	id     string
	queue  *taskQueue
	logger Logger
	hooks  Hooks
	tracer trace.Tracer // nil disables batch spans

	mu      sync.Mutex
	workers int
	stopped bool
	wg      sync.WaitGroup

	// Metrics (atomic for thread-safety)
	submitted int64
	batches   int64
	completed int64
	failed    int64
	dropped   int64
}

func newDefaultPool(cfg Config) *defaultPool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}

	p := &defaultPool{
		id:      uuid.New().String(),
		queue:   newTaskQueue(),
		logger:  logger,
		hooks:   cfg.Hooks,
		workers: workers,
	}
	if cfg.TracerProvider != nil {
		p.tracer = cfg.TracerProvider.Tracer("github.com/taskpoolio/taskpool")
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// worker is the dispatch loop. It pops and executes jobs outside the
// queue lock until the queue reports closure.
func (p *defaultPool) worker() {
	defer p.wg.Done()

	for {
		j, ok := p.queue.pop()
		if !ok {
			return
		}
		p.execute(j)
	}
}

// execute runs one job inside the failure boundary and settles its tracker.
func (p *defaultPool) execute(j job) {
	if p.hooks.OnStart != nil {
		p.hooks.OnStart()
	}

	start := time.Now()
	err := p.runTask(j.task)

	if p.hooks.OnFinish != nil {
		p.hooks.OnFinish(time.Since(start), err)
	}

	if err != nil {
		atomic.AddInt64(&p.failed, 1)
		if p.hooks.OnError != nil {
			p.hooks.OnError(err)
		}
		if j.tracker == nil {
			// Nobody is waiting on a detached task; log and keep going.
			p.logger.Errorf("pool %s: detached task failed: %v", p.id, err)
		}
	} else {
		atomic.AddInt64(&p.completed, 1)
	}

	if j.tracker != nil {
		j.tracker.settle(err)
	}
}

// runTask invokes the task, converting a panic into a *PanicError so a
// misbehaving task never takes its worker down.
func (p *defaultPool) runTask(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	task()
	return nil
}

// Detach implements Pool interface
func (p *defaultPool) Detach(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if !p.queue.push(job{task: task}) {
		return ErrPoolClosed
	}
	p.noteSubmitted(1)
	return nil
}

// DetachMany implements Pool interface
func (p *defaultPool) DetachMany(tasks []Task) error {
	for _, t := range tasks {
		if t == nil {
			return ErrNilTask
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	jobs := make([]job, len(tasks))
	for i, t := range tasks {
		jobs[i] = job{task: t}
	}
	if !p.queue.pushBatch(jobs) {
		return ErrPoolClosed
	}
	p.noteSubmitted(len(tasks))
	return nil
}

func (p *defaultPool) noteSubmitted(n int) {
	atomic.AddInt64(&p.submitted, int64(n))
	if p.hooks.OnSubmit != nil {
		p.hooks.OnSubmit(n)
	}
}

// Resize implements Pool interface. Growing appends workers running the
// same dispatch loop; a request below the current count fails with
// ErrShrink and changes nothing.
func (p *defaultPool) Resize(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolClosed
	}
	if n < p.workers {
		return ErrShrink
	}

	for i := p.workers; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.workers = n
	return nil
}

// Size implements Pool interface
func (p *defaultPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// IsRunning implements Pool interface
func (p *defaultPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.stopped
}

// Stats implements Pool interface
func (p *defaultPool) Stats() Stats {
	p.mu.Lock()
	workers := p.workers
	running := !p.stopped
	p.mu.Unlock()

	return Stats{
		PoolID:     p.id,
		Workers:    workers,
		QueueDepth: p.queue.depth(),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Batches:    atomic.LoadInt64(&p.batches),
		Completed:  atomic.LoadInt64(&p.completed),
		Failed:     atomic.LoadInt64(&p.failed),
		Dropped:    atomic.LoadInt64(&p.dropped),
		Running:    running,
	}
}

// Stop implements Pool interface. Workers finish their in-flight task and
// exit; queued jobs that never started are discarded. Discarded batch
// members settle their tracker with ErrPoolClosed so no Run caller stays
// blocked. ctx bounds only the join wait.
func (p *defaultPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	drained := p.queue.close()
	for _, j := range drained {
		if j.tracker != nil {
			j.tracker.settle(ErrPoolClosed)
		}
	}
	if n := len(drained); n > 0 {
		atomic.AddInt64(&p.dropped, int64(n))
		if p.hooks.OnDrop != nil {
			p.hooks.OnDrop(n)
		}
		p.logger.Warnf("pool %s: dropped %d queued tasks at shutdown", p.id, n)
	}

	// Wait for workers to finish or timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop timeout: %w", ctx.Err())
	}
}
