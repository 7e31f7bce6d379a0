package canvas

import (
	"sync"

	"github.com/matzehuels/patchcanvas/pkg/patch"
)

// TaskQueue carries work from runtime goroutines to the UI goroutine.
// Runtime callbacks post; the UI goroutine drains. Work targeting a unit is
// revalidated when it runs, so a unit deleted in between is skipped.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []task
	ready chan struct{}
}

type task struct {
	event   *patch.Event
	handle  patch.Handle
	run     func()
	checked bool
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{ready: make(chan struct{}, 1)}
}

// Ready is signalled whenever work is posted to an empty queue.
func (q *TaskQueue) Ready() <-chan struct{} { return q.ready }

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// PostEvent queues a runtime notification. A pending notification of the
// same kind for the same unit absorbs it; messages are never coalesced.
func (q *TaskQueue) PostEvent(ev patch.Event) {
	q.mu.Lock()
	if ev.Coalescable() {
		for _, t := range q.tasks {
			if t.event != nil && t.event.Kind == ev.Kind && t.event.Handle == ev.Handle {
				q.mu.Unlock()
				return
			}
		}
	}
	q.tasks = append(q.tasks, task{event: &ev, handle: ev.Handle})
	q.mu.Unlock()
	q.signal()
}

// Post queues fn.
func (q *TaskQueue) Post(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task{run: fn})
	q.mu.Unlock()
	q.signal()
}

// PostFor queues fn to run only if h still names a live unit when the task
// is drained.
func (q *TaskQueue) PostFor(h patch.Handle, fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task{run: fn, handle: h, checked: true})
	q.mu.Unlock()
	q.signal()
}

func (q *TaskQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// take removes and returns everything queued so far. Work posted while the
// batch runs waits for the next drain.
func (q *TaskQueue) take() []task {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}
