// Package pool runs inspection work on a fixed number of workers with a
// bounded submission queue.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Atiyakh/dyright/internal/log"
)

// ErrStopped is returned by Submit after the pool has been stopped.
var ErrStopped = errors.New("worker pool is stopped")

// Result is the outcome of one task.
type Result struct {
	Value string
	Err   error
}

// Task is a handle to submitted work. The caller selects on Done with its
// own deadline; abandoning a task does not stop the worker running it.
type Task struct {
	done chan Result
}

// Done returns a channel that receives exactly one Result: the task's
// outcome, or a Result carrying ErrStopped when the pool is stopped before
// the task ever runs.
func (t *Task) Done() <-chan Result {
	return t.done
}

// Pool is a fixed-size worker pool with a bounded queue. Queued tasks wait
// for a free worker; that wait is part of whatever deadline the submitter
// enforces.
type Pool struct {
	tasks   chan *queued
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	logger  *slog.Logger
}

type queued struct {
	fn   func() (string, error)
	task *Task
}

// New creates a pool with the given worker count and queue depth and starts
// its workers.
func New(workers, queueDepth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}

	p := &Pool{
		tasks:  make(chan *queued, queueDepth),
		stop:   make(chan struct{}),
		logger: log.WithComponent("pool"),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case q := <-p.tasks:
			p.run(q)
		}
	}
}

func (p *Pool) run(q *queued) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "panic", r)
			q.task.done <- Result{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	value, err := q.fn()
	q.task.done <- Result{Value: value, Err: err}
}

// Submit enqueues fn for execution. It blocks while the queue is full; if
// ctx expires first the submission is abandoned and ctx's error returned.
func (p *Pool) Submit(ctx context.Context, fn func() (string, error)) (*Task, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrStopped
	}
	p.mu.Unlock()

	t := &Task{done: make(chan Result, 1)}
	select {
	case p.tasks <- &queued{fn: fn, task: t}:
		return t, nil
	case <-p.stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts the pool down. New submissions are rejected, idle workers
// exit, and tasks still waiting in the queue complete with ErrStopped;
// in-flight tasks are not waited for.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	p.mu.Unlock()

	for {
		select {
		case q := <-p.tasks:
			q.task.done <- Result{Err: ErrStopped}
		default:
			return
		}
	}
}
