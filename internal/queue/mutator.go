// Package queue provides the serialized mutator: a FIFO single-flight gate
// that runs mutating work items strictly one at a time in enqueue order.
//
// Plan and record mutations for a given scope (a month) funnel through one
// mutator. This is what prevents duplicate plan creation and double-started
// tracking when several concurrent callers race: get-or-create work enqueued
// twice runs twice, but serially, so the second run sees the first run's
// rows.
package queue

import (
	"context"
	"sync"
)

const defaultBuffer = 64

// task is one enqueued unit of work.
type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Mutator executes enqueued functions strictly one at a time, in enqueue
// order. Once a function starts it always runs to completion, even if the
// caller's context is cancelled: cancelling a mutation mid-transaction could
// leave plans and record state inconsistent. Only queued-but-not-started
// work is dropped on cancellation.
type Mutator struct {
	tasks chan *task

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMutator creates a mutator and starts its worker.
func NewMutator() *Mutator {
	m := &Mutator{
		tasks:  make(chan *task, defaultBuffer),
		closed: make(chan struct{}),
	}
	go m.run()
	return m
}

// Do enqueues fn and blocks until it has run, returning its error. Work is
// executed in strict enqueue order, one item at a time. If ctx is cancelled
// before fn starts, fn never runs and ctx.Err() is returned; once started,
// fn runs to completion with a context detached from the caller's
// cancellation.
func (m *Mutator) Do(ctx context.Context, fn func(context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case <-m.closed:
		return ErrClosed
	default:
	}

	select {
	case m.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.closed:
		return ErrClosed
	}

	// The done channel is buffered: the worker never blocks on an
	// abandoned caller, and the work's result is delivered even when the
	// caller gave up waiting.
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after the current item finishes. Queued items that
// have not started are failed with ErrClosed.
func (m *Mutator) Close() {
	m.closeOnce.Do(func() { close(m.closed) })
}

func (m *Mutator) run() {
	for {
		select {
		case <-m.closed:
			m.drain()
			return
		case t := <-m.tasks:
			m.execute(t)
		}
	}
}

func (m *Mutator) execute(t *task) {
	// Drop work whose caller went away before it started.
	if err := t.ctx.Err(); err != nil {
		t.done <- err
		return
	}
	t.done <- t.fn(context.WithoutCancel(t.ctx))
}

func (m *Mutator) drain() {
	for {
		select {
		case t := <-m.tasks:
			t.done <- ErrClosed
		default:
			return
		}
	}
}

// Group hands out one mutator per scope key, creating them lazily. The
// planning engine keys scopes by month label.
type Group struct {
	mu       sync.Mutex
	mutators map[string]*Mutator
}

// NewGroup creates an empty mutator group.
func NewGroup() *Group {
	return &Group{mutators: make(map[string]*Mutator)}
}

// For returns the mutator for the given scope key, creating it on first use.
func (g *Group) For(key string) *Mutator {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.mutators[key]
	if !ok {
		m = NewMutator()
		g.mutators[key] = m
	}
	return m
}

// Close stops every mutator in the group.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, m := range g.mutators {
		m.Close()
	}
}
