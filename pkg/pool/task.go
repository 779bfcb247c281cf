package pool

// Task is one opaque unit of work. A task carries everything it needs in
// its closure and reports results only through whatever that closure
// captures; the pool never inspects it.
type Task func()

// job is a queued element: the task plus the completion tracker installed
// by blocking submission. Detached jobs carry a nil tracker.
type job struct {
	task    Task
	tracker *batchTracker
}
