package pool

import (
	"sync"
	"testing"
	"time"
)

func TestTaskQueue_PushPop(t *testing.T) {
	q := newTaskQueue()

	ran := false
	if !q.push(job{task: func() { ran = true }}) {
		t.Fatal("push() on a running queue should succeed")
	}

	j, ok := q.pop()
	if !ok {
		t.Fatal("pop() should return a job after push()")
	}
	j.task()
	if !ran {
		t.Error("pop() should return the pushed job")
	}
	if q.depth() != 0 {
		t.Errorf("depth() = %d, want 0", q.depth())
	}
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	var order []int
	for i := 0; i < 10; i++ {
		idx := i
		q.push(job{task: func() { order = append(order, idx) }})
	}

	for i := 0; i < 10; i++ {
		j, ok := q.pop()
		if !ok {
			t.Fatalf("pop() %d should succeed", i)
		}
		j.task()
	}

	for i, got := range order {
		if got != i {
			t.Errorf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestTaskQueue_PopBlocksUntilPush(t *testing.T) {
	q := newTaskQueue()

	popped := make(chan job)
	go func() {
		j, ok := q.pop()
		if ok {
			popped <- j
		}
	}()

	// The popper should be suspended on the condition variable.
	select {
	case <-popped:
		t.Fatal("pop() should block on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	q.push(job{task: func() {}})

	select {
	case <-popped:
	case <-time.After(1 * time.Second):
		t.Fatal("push() should wake the blocked pop()")
	}
}

func TestTaskQueue_CloseWakesWaiters(t *testing.T) {
	q := newTaskQueue()

	const waiters = 4
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			if _, ok := q.pop(); ok {
				t.Error("pop() after close() should report ok=false")
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	q.close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("close() should wake every blocked pop()")
	}
}

func TestTaskQueue_CloseDrains(t *testing.T) {
	q := newTaskQueue()

	for i := 0; i < 3; i++ {
		q.push(job{task: func() {}})
	}

	drained := q.close()
	if len(drained) != 3 {
		t.Errorf("close() drained %d jobs, want 3", len(drained))
	}
	if q.depth() != 0 {
		t.Errorf("depth() after close() = %d, want 0", q.depth())
	}

	if q.push(job{task: func() {}}) {
		t.Error("push() after close() should report false")
	}
	if q.pushBatch([]job{{task: func() {}}}) {
		t.Error("pushBatch() after close() should report false")
	}
	if drained := q.close(); drained != nil {
		t.Errorf("second close() drained %d jobs, want none", len(drained))
	}
}

func TestTaskQueue_BatchStaysContiguous(t *testing.T) {
	q := newTaskQueue()

	// Interleave single pushes with batch pushes from another goroutine,
	// then verify no single ever landed between two members of a batch.
	tracker := newBatchTracker(0)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				q.push(job{task: func() {}})
			}
		}
	}()

	for i := 0; i < 100; i++ {
		batch := make([]job, 10)
		for k := range batch {
			batch[k] = job{task: func() {}, tracker: tracker}
		}
		q.pushBatch(batch)
	}
	close(stop)
	wg.Wait()

	drained := q.close()
	inBatch := false
	seen := 0
	for _, j := range drained {
		if j.tracker == tracker {
			seen++
			if !inBatch && seen%10 != 1 {
				t.Fatal("batch members interleaved with a concurrent push")
			}
			inBatch = seen%10 != 0
		} else if inBatch {
			t.Fatal("single push landed inside a batch")
		}
	}
	if seen != 1000 {
		t.Errorf("drained %d batch members, want 1000", seen)
	}
}
