package threads

import (
	"fmt"

	"github.com/matt-g-everett/ledmotion/gen"
)

// Runner drives a root task and every thread it spawns. Each call to Next
// performs (part of) one pass over all live threads:
//
//   - threads are taken from the end of the pass queue
//   - a spawned child is queued after its parent so it runs first
//   - an awaited value makes Next return so the caller can resolve it
//   - a suspended thread advances its clock and waits for the next pass
//
// When the last thread finishes the Runner reports Done.
type Runner struct {
	timing  Timing
	root    *Thread
	queue   []*Thread
	pending []*Thread
	waiting *Thread
	dt      float64
	closed  bool
	err     error
}

// New creates a Runner for the task built by factory. onCreated, if set,
// receives the root thread before it first runs.
func New(factory func() gen.Task, timing Timing, onCreated func(*Thread)) *Runner {
	root := NewThread(factory(), timing)
	root.Name = "root"
	if onCreated != nil {
		onCreated(root)
	}
	return &Runner{
		timing:  timing,
		root:    root,
		pending: []*Thread{root},
	}
}

// Root returns the root thread.
func (r *Runner) Root() *Thread {
	return r.root
}

// Next continues the current pass or starts a new one. value is injected
// into the thread whose Await step was returned last; it is ignored
// otherwise. A failing thread closes the Runner and its error is returned
// wrapped with the thread name.
func (r *Runner) Next(value any) (gen.Step, error) {
	if r.closed {
		return gen.Step{Kind: gen.Done}, r.err
	}

	if r.waiting != nil {
		r.waiting.value = value
		r.queue = append(r.queue, r.waiting)
		r.waiting = nil
	} else {
		r.queue = r.live(r.pending)
		r.pending = nil
		if len(r.queue) == 0 {
			r.Close()
			return gen.Step{Kind: gen.Done}, nil
		}
		r.dt = r.timing.DeltaTime()
	}

	for len(r.queue) > 0 {
		n := len(r.queue) - 1
		thread := r.queue[n]
		r.queue[n] = nil
		r.queue = r.queue[:n]
		if thread.Canceled() {
			thread.release()
			continue
		}

		step, err := thread.Next()
		if err != nil {
			r.err = fmt.Errorf("thread %s: %w", thread.Name, err)
			r.Close()
			return gen.Step{Kind: gen.Done}, r.err
		}

		switch step.Kind {
		case gen.Done:
			thread.Cancel()
		case gen.Spawn:
			child := NewThread(step.Child, r.timing)
			thread.value = child
			thread.Add(child)
			r.queue = append(r.queue, thread, child)
		case gen.Await:
			r.waiting = thread
			return step, nil
		default:
			thread.Update(r.dt)
			r.pending = append([]*Thread{thread}, r.pending...)
		}
	}

	r.pending = r.live(r.pending)
	if len(r.pending) == 0 {
		r.Close()
		return gen.Step{Kind: gen.Done}, nil
	}
	return gen.Step{Kind: gen.Suspend}, nil
}

// live filters out canceled threads, releasing them.
func (r *Runner) live(threads []*Thread) []*Thread {
	out := threads[:0]
	for _, t := range threads {
		if t.Canceled() {
			t.release()
			continue
		}
		out = append(out, t)
	}
	return out
}

// Close cancels every thread. It is safe to call more than once.
func (r *Runner) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, t := range r.queue {
		t.release()
	}
	for _, t := range r.pending {
		t.release()
	}
	if r.waiting != nil {
		r.waiting.release()
	}
	r.root.release()
	r.root.canceled = true
	r.queue, r.pending, r.waiting = nil, nil, nil
}

// Closed reports whether the Runner finished, failed or was closed.
func (r *Runner) Closed() bool {
	return r.closed
}
