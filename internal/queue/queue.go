package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/studylens/studylens/internal/port"
)

// DefaultCapacity bounds how many tasks may wait behind the worker.
const DefaultCapacity = 256

// TaskFunc is the unit of work a caller submits. It receives a context
// detached from the submitter: abandoning the result does not cancel
// the work.
type TaskFunc func(ctx context.Context) (string, error)

// Result resolves a submitted task, successfully or not.
type Result struct {
	Value string
	Err   error
}

// Stats is a point-in-time snapshot of queue state.
type Stats struct {
	Pending   int    `json:"pending"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Running   string `json:"running_kind,omitempty"`
}

type task struct {
	id         string
	kind       string
	fn         TaskFunc
	enqueuedAt time.Time
	result     chan Result
}

// Queue serializes every call to the capacity-one generation backend.
// Exactly one worker exists for the queue's lifetime; tasks start in
// strict submission order, and a task's failure resolves only its own
// result. Construct one Queue at process startup and hand it to every
// caller.
type Queue struct {
	tasks chan *task
	delay time.Duration
	done  chan struct{}

	closeOnce sync.Once
	submits   sync.WaitGroup // submissions in flight, so drain never misses one
	processed atomic.Uint64
	failed    atomic.Uint64
	running   atomic.Value // string, kind of the in-flight task
}

// New creates the queue and starts its single worker. delay is an
// optional pause between tasks to avoid saturating the backend.
func New(capacity int, delay time.Duration) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		tasks: make(chan *task, capacity),
		delay: delay,
		done:  make(chan struct{}),
	}
	q.running.Store("")
	go q.work()
	return q
}

// Submit appends a task and returns the channel its Result will arrive
// on. The channel is buffered: a caller that stops waiting leaks
// nothing, and the task still runs to completion.
func (q *Queue) Submit(ctx context.Context, kind string, fn TaskFunc) (<-chan Result, error) {
	q.submits.Add(1)
	defer q.submits.Done()

	t := &task{
		id:         uuid.NewString(),
		kind:       kind,
		fn:         fn,
		enqueuedAt: time.Now(),
		result:     make(chan Result, 1),
	}
	select {
	case <-q.done:
		return nil, port.ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- t:
		return t.result, nil
	case <-q.done:
		return nil, port.ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do submits a task and waits for its result. Cancelling ctx stops the
// wait, not the work.
func (q *Queue) Do(ctx context.Context, kind string, fn TaskFunc) (string, error) {
	res, err := q.Submit(ctx, kind, fn)
	if err != nil {
		return "", err
	}
	select {
	case r := <-res:
		return r.Value, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Stats returns a snapshot of queue state.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.tasks),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Running:   q.running.Load().(string),
	}
}

// Close stops the worker after the in-flight task finishes. Pending
// tasks resolve with ErrQueueClosed. Intended for process shutdown
// only; the queue is not restartable.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

func (q *Queue) work() {
	for {
		select {
		case <-q.done:
			// A Submit racing with Close may still win its channel send
			// after done is observed here; wait those out so drain sees
			// every accepted task and no result channel is left hanging.
			q.submits.Wait()
			q.drain()
			return
		case t := <-q.tasks:
			q.run(t)
			if q.delay > 0 {
				time.Sleep(q.delay)
			}
		}
	}
}

func (q *Queue) run(t *task) {
	q.running.Store(t.kind)
	defer q.running.Store("")

	wait := time.Since(t.enqueuedAt)
	// The task must not inherit the submitter's deadline: the worker,
	// not the caller, owns the in-flight call.
	value, err := t.fn(context.Background())
	if err != nil {
		q.failed.Add(1)
		slog.Error("inference task failed", "task_id", t.id, "kind", t.kind, "waited", wait, "error", err)
	} else {
		q.processed.Add(1)
		slog.Info("inference task done", "task_id", t.id, "kind", t.kind, "waited", wait)
	}
	t.result <- Result{Value: value, Err: err}
}

func (q *Queue) drain() {
	for {
		select {
		case t := <-q.tasks:
			t.result <- Result{Err: port.ErrQueueClosed}
		default:
			return
		}
	}
}
