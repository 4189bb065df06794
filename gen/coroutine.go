// Package gen provides the resumable tasks that animation threads are made of.
//
// A Task is an ordinary function that receives a *Co. Every call on the Co
// that hands control back to the driver (Suspend, Spawn, Await) parks the task
// until the driver resumes its Coroutine again, so a task reads top to bottom
// like a script while the scheduler interleaves many of them frame by frame.
package gen

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
)

// Kind identifies what a task handed back to its driver.
type Kind int

const (
	// Suspend parks the task until the next frame.
	Suspend Kind = iota
	// Spawn asks the driver to start Step.Child as a concurrent task.
	Spawn
	// Await asks the driver to resolve Step.Await and inject the result.
	Await
	// Done means the task returned.
	Done
)

func (k Kind) String() string {
	switch k {
	case Suspend:
		return "suspend"
	case Spawn:
		return "spawn"
	case Await:
		return "await"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Task is the body of a coroutine. Returning ends it.
type Task func(co *Co) error

// Step is the result of resuming a Coroutine once.
type Step struct {
	Kind  Kind
	Child Task
	Await Awaitable
}

// Awaitable is an external value a task can wait on. The driving loop calls
// Wait and feeds the outcome back into the task as a Resolution.
type Awaitable interface {
	Wait(ctx context.Context) (any, error)
}

// AwaitFunc adapts a function to the Awaitable interface.
type AwaitFunc func(ctx context.Context) (any, error)

// Wait calls f.
func (f AwaitFunc) Wait(ctx context.Context) (any, error) {
	return f(ctx)
}

// Resolution is what a driver injects after resolving an Awaitable.
type Resolution struct {
	Value any
	Err   error
}

// Clock is the virtual time source of the thread running a task.
type Clock interface {
	// Time is the thread-local time in seconds.
	Time() float64
	// SetTime moves the thread-local time without touching fixed time.
	SetTime(t float64)
	// Fixed is the frame-quantized time in seconds.
	Fixed() float64
	// FrameDuration is the length of one frame in seconds at speed 1.
	FrameDuration() float64
}

// Handle is a running task's thread as seen by other tasks.
type Handle interface {
	Clock
	Canceled() bool
	Cancel()
}

var errStopped = errors.New("gen: coroutine stopped")

// PanicError is returned when a task panics. It keeps the recovered value
// and the stack of the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error, so errors.Is and
// errors.As see through a panicking signal read.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Co is the handle a task uses to cooperate with its driver.
type Co struct {
	yield  func(Step) bool
	in     any
	thread Handle
}

func (c *Co) step(s Step) any {
	if !c.yield(s) {
		panic(errStopped)
	}
	v := c.in
	c.in = nil
	return v
}

// Suspend parks the task until the next frame.
func (c *Co) Suspend() {
	c.step(Step{Kind: Suspend})
}

// Spawn starts task as a child thread. The child runs to its first
// suspension point before Spawn returns.
func (c *Co) Spawn(task Task) Handle {
	h, _ := c.step(Step{Kind: Spawn, Child: task}).(Handle)
	return h
}

// Await hands a to the driver and returns what the driver resolved it to.
func (c *Co) Await(a Awaitable) (any, error) {
	switch v := c.step(Step{Kind: Await, Await: a}).(type) {
	case Resolution:
		return v.Value, v.Err
	case *Resolution:
		return v.Value, v.Err
	default:
		return v, nil
	}
}

// Run executes task inline on the calling thread.
func (c *Co) Run(task Task) error {
	return task(c)
}

// Thread returns the thread currently running the task, or nil when the
// coroutine is driven outside of a scheduler.
func (c *Co) Thread() Handle {
	return c.thread
}

// Coroutine drives a single Task step by step.
type Coroutine struct {
	co      *Co
	next    func() (Step, bool)
	stop    func()
	err     error
	done    bool
	running bool
	release bool
}

// New creates a Coroutine for task. Nothing runs until the first Resume.
func New(task Task) *Coroutine {
	c := new(Coroutine)
	c.co = new(Co)
	seq := func(yield func(Step) bool) {
		c.co.yield = yield
		defer func() {
			if r := recover(); r != nil {
				if r == errStopped {
					return
				}
				c.err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		c.err = task(c.co)
	}
	c.next, c.stop = iter.Pull(seq)
	return c
}

// Bind attaches the thread that owns the coroutine.
func (c *Coroutine) Bind(h Handle) {
	c.co.thread = h
}

// Resume continues the task with value injected as the result of its
// pending Spawn or Await call.
func (c *Coroutine) Resume(value any) (Step, error) {
	if c.done {
		return Step{Kind: Done}, nil
	}
	c.co.in = value
	c.running = true
	step, ok := c.next()
	c.running = false
	if !ok {
		c.done = true
		return Step{Kind: Done}, c.err
	}
	if c.release {
		c.Stop()
	}
	return step, nil
}

// Stop abandons the task, running its deferred calls. Stopping a coroutine
// from inside its own step is deferred until the step yields.
func (c *Coroutine) Stop() {
	if c.done {
		return
	}
	if c.running {
		c.release = true
		return
	}
	c.done = true
	c.stop()
}

// Done reports whether the task returned or was stopped.
func (c *Coroutine) Done() bool {
	return c.done
}

// Err returns the error the task returned with, if any.
func (c *Coroutine) Err() error {
	return c.err
}
