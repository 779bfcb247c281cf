package pool

import (
	"sync"

	"github.com/eapache/queue"
)

// taskQueue is the pool's FIFO job queue. A single mutex guards both the
// ring buffer and the running flag; idle workers suspend on the condition
// variable instead of polling. The ring grows without bound, so enqueueing
// never blocks producers.
type taskQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   *queue.Queue
	running bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{
		items:   queue.New(),
		running: true,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends one job and wakes a single waiting worker.
// It reports false once close has run, so submitters can reject the task.
func (q *taskQueue) push(j job) bool {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return false
	}
	q.items.Add(j)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// pushBatch appends all jobs inside one critical section, so a concurrent
// push can never land between two members of the batch, then wakes every
// waiting worker at once.
func (q *taskQueue) pushBatch(jobs []job) bool {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return false
	}
	for _, j := range jobs {
		q.items.Add(j)
	}
	q.mu.Unlock()
	q.cond.Broadcast()
	return true
}

// pop blocks until a job is available or the queue is closed. Closure wins
// over remaining queued work: after close, every waiter sees ok=false and
// the drained jobs are accounted for by close itself.
func (q *taskQueue) pop() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Length() == 0 && q.running {
		q.cond.Wait()
	}
	if !q.running {
		return job{}, false
	}
	return q.items.Remove().(job), true
}

// close marks the queue stopped and drains it, returning every job still
// queued. Suspended workers wake to observe the flag and exit. Safe to
// call more than once.
func (q *taskQueue) close() []job {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	drained := make([]job, 0, q.items.Length())
	for q.items.Length() > 0 {
		drained = append(drained, q.items.Remove().(job))
	}
	q.mu.Unlock()
	q.cond.Broadcast()
	return drained
}

// depth reports the number of jobs currently queued.
func (q *taskQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
