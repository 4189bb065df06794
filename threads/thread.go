// Package threads schedules animation tasks as a tree of cooperative
// threads that advance together one frame at a time.
package threads

import (
	"fmt"

	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/signals"
)

// Timing tells the scheduler how far virtual time moves per frame.
type Timing interface {
	// DeltaTime is the time one frame advances threads by, speed included.
	DeltaTime() float64
	// FrameDuration is the length of one frame at speed 1.
	FrameDuration() float64
}

// FixedTiming is a Timing with a constant frame rate and speed.
type FixedTiming struct {
	FPS   float64
	Speed float64
}

func (f FixedTiming) DeltaTime() float64 {
	speed := f.Speed
	if speed == 0 {
		speed = 1
	}
	return speed / f.FPS
}

func (f FixedTiming) FrameDuration() float64 {
	return 1 / f.FPS
}

// Thread is one task in the tree together with its own clock.
type Thread struct {
	Name     string
	Children []*Thread
	// LocalTime is the thread's time in seconds. It is a signal so that
	// computed values can depend on it.
	LocalTime *signals.Signal[float64]

	runner   *gen.Coroutine
	value    any
	parent   *Thread
	fixed    float64
	canceled bool
	paused   bool
	timing   Timing
}

// NewThread wraps task in a thread. The task does not run until the thread
// is stepped by a Runner.
func NewThread(task gen.Task, timing Timing) *Thread {
	t := &Thread{runner: gen.New(task), timing: timing}
	t.LocalTime = signals.Number(0, signals.WithOwner[float64](t))
	t.runner.Bind(t)
	return t
}

// From returns the thread a task is running on, or nil.
func From(co *gen.Co) *Thread {
	t, _ := co.Thread().(*Thread)
	return t
}

func (t *Thread) Time() float64 {
	return t.LocalTime.Get()
}

func (t *Thread) SetTime(v float64) {
	t.LocalTime.Set(v)
}

// Fixed is the time the thread has accumulated in whole frames. Unlike
// LocalTime it is never moved by SetTime.
func (t *Thread) Fixed() float64 {
	return t.fixed
}

func (t *Thread) FrameDuration() float64 {
	return t.timing.FrameDuration()
}

// Parent returns the thread that spawned t, or nil.
func (t *Thread) Parent() *Thread {
	return t.parent
}

// Canceled reports whether t or any of its ancestors was canceled.
func (t *Thread) Canceled() bool {
	return t.canceled || (t.parent != nil && t.parent.Canceled())
}

// Paused reports whether t or any of its ancestors is paused.
func (t *Thread) Paused() bool {
	return t.paused || (t.parent != nil && t.parent.Paused())
}

// Pause stops or resumes t and everything it spawned.
func (t *Thread) Pause(paused bool) {
	t.paused = paused
}

// Cancel ends the thread. Its deferred calls run once it is no longer
// executing.
func (t *Thread) Cancel() {
	t.canceled = true
	t.parent = nil
	t.runner.Stop()
}

// Add makes child a child of t, starting its clock at t's current time.
func (t *Thread) Add(child *Thread) {
	if old := child.parent; old != nil && old != t {
		old.remove(child)
	}
	child.parent = t
	child.canceled = false
	child.LocalTime.Set(t.Time())
	child.fixed = t.fixed
	t.Children = append(t.Children, child)
	child.Name = fmt.Sprintf("%s.%d", t.Name, len(t.Children))
}

func (t *Thread) remove(child *Thread) {
	for i, c := range t.Children {
		if c == child {
			t.Children = append(t.Children[:i], t.Children[i+1:]...)
			return
		}
	}
}

// Next resumes the task once. A paused thread reports a suspension without
// running.
func (t *Thread) Next() (gen.Step, error) {
	if t.Paused() {
		return gen.Step{Kind: gen.Suspend}, nil
	}
	value := t.value
	t.value = nil
	return t.runner.Resume(value)
}

// Update advances the clocks by dt unless paused and forgets canceled
// children.
func (t *Thread) Update(dt float64) {
	if !t.Paused() {
		t.SetTime(t.Time() + dt)
		t.fixed += dt
	}
	live := t.Children[:0]
	for _, c := range t.Children {
		if !c.Canceled() {
			live = append(live, c)
		}
	}
	for i := len(live); i < len(t.Children); i++ {
		t.Children[i] = nil
	}
	t.Children = live
}

// release stops the coroutines of t and all its descendants.
func (t *Thread) release() {
	for _, c := range t.Children {
		c.release()
	}
	t.runner.Stop()
}
