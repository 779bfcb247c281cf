package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned when submitting to or resizing a stopped
	// pool. Batch members still queued when Stop runs settle with it too.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrShrink is returned by Resize when the requested count is below
	// the current worker count
	ErrShrink = errors.New("pool cannot shrink")

	// ErrNilTask is returned when a nil task is submitted
	ErrNilTask = errors.New("task is nil")
)

// PanicError carries a panic recovered from a task, so blocking callers
// receive it as an ordinary error instead of losing the worker.
type PanicError struct {
	Value interface{} // the recovered panic value
	Stack []byte      // stack captured at the recovery point
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
