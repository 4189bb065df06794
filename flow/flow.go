// Package flow contains the building blocks animation tasks are composed
// of: waiting, tweening and running tasks concurrently or in sequence.
package flow

import (
	"errors"
	"math"

	"github.com/matt-g-everett/ledmotion/gen"
)

// ErrNoThread is returned when a timed helper runs outside of a thread.
var ErrNoThread = errors.New("flow: task is not running on a thread")

func thread(co *gen.Co) (gen.Handle, error) {
	t := co.Thread()
	if t == nil {
		return nil, ErrNoThread
	}
	return t, nil
}

// WaitFor suspends the task for the given number of seconds of thread time.
// The thread time is moved to the exact target afterwards so that
// fractional frames are not lost across consecutive waits.
func WaitFor(co *gen.Co, seconds float64) error {
	t, err := thread(co)
	if err != nil {
		return err
	}
	step := t.FrameDuration()
	target := t.Time() + seconds
	for target-step > t.Fixed() {
		co.Suspend()
	}
	t.SetTime(target)
	return nil
}

// WaitFrames suspends the task for exactly n frames.
func WaitFrames(co *gen.Co, n int) {
	for i := 0; i < n; i++ {
		co.Suspend()
	}
}

// Tween calls onProgress with linear progress in [0, 1] every frame for the
// given number of seconds. The last call always reports 1.
func Tween(co *gen.Co, seconds float64, onProgress func(value, time float64)) error {
	t, err := thread(co)
	if err != nil {
		return err
	}
	start := t.Time()
	end := start + seconds

	onProgress(0, 0)
	for end > t.Fixed() {
		elapsed := t.Fixed() - start
		if elapsed > 0 {
			onProgress(elapsed/seconds, elapsed)
		}
		co.Suspend()
	}
	t.SetTime(end)
	onProgress(1, seconds)
	return nil
}

// Join waits for the given threads. With all set it waits until every one
// of them finished, otherwise until the first one did. The calling thread's
// time is advanced to the matching child time.
func Join(co *gen.Co, all bool, handles ...gen.Handle) error {
	parent, err := thread(co)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return nil
	}
	start := parent.Time()

	var childTime float64
	if all {
		for anyAlive(handles) {
			co.Suspend()
		}
		childTime = math.Inf(-1)
		for _, h := range handles {
			childTime = math.Max(childTime, h.Time())
		}
	} else {
		for !anyCanceled(handles) {
			co.Suspend()
		}
		childTime = math.Inf(1)
		for _, h := range handles {
			if h.Canceled() {
				childTime = math.Min(childTime, h.Time())
			}
		}
	}
	parent.SetTime(math.Max(start, childTime))
	return nil
}

func anyAlive(handles []gen.Handle) bool {
	for _, h := range handles {
		if !h.Canceled() {
			return true
		}
	}
	return false
}

func anyCanceled(handles []gen.Handle) bool {
	for _, h := range handles {
		if h.Canceled() {
			return true
		}
	}
	return false
}

func spawnAll(co *gen.Co, tasks []gen.Task) []gen.Handle {
	handles := make([]gen.Handle, 0, len(tasks))
	for _, task := range tasks {
		if h := co.Spawn(task); h != nil {
			handles = append(handles, h)
		}
	}
	return handles
}

// All runs tasks concurrently and finishes when all of them did.
func All(tasks ...gen.Task) gen.Task {
	return func(co *gen.Co) error {
		return Join(co, true, spawnAll(co, tasks)...)
	}
}

// Any runs tasks concurrently and finishes when the first one did.
func Any(tasks ...gen.Task) gen.Task {
	return func(co *gen.Co) error {
		return Join(co, false, spawnAll(co, tasks)...)
	}
}

// Chain runs tasks one after another.
func Chain(tasks ...gen.Task) gen.Task {
	return func(co *gen.Co) error {
		for _, task := range tasks {
			if err := task(co); err != nil {
				return err
			}
		}
		return nil
	}
}

// Delay runs task after waiting for the given number of seconds.
func Delay(seconds float64, task gen.Task) gen.Task {
	return func(co *gen.Co) error {
		if err := WaitFor(co, seconds); err != nil {
			return err
		}
		if task == nil {
			return nil
		}
		return task(co)
	}
}

// Sequence starts tasks one by one, each delay seconds after the previous
// one, and finishes when all of them did.
func Sequence(delay float64, tasks ...gen.Task) gen.Task {
	return func(co *gen.Co) error {
		handles := make([]gen.Handle, 0, len(tasks))
		for _, task := range tasks {
			if h := co.Spawn(task); h != nil {
				handles = append(handles, h)
			}
			if err := WaitFor(co, delay); err != nil {
				return err
			}
		}
		return Join(co, true, handles...)
	}
}

// Every calls callback every seconds of thread time until the thread is
// canceled. tick counts the calls starting at 1. Intervals shorter than a
// frame fire at most once per frame.
func Every(seconds float64, callback func(tick int)) gen.Task {
	return func(co *gen.Co) error {
		t, err := thread(co)
		if err != nil {
			return err
		}
		last := math.Inf(-1)
		for tick := 1; ; tick++ {
			if err := WaitFor(co, seconds); err != nil {
				return err
			}
			if t.Fixed() == last {
				co.Suspend()
			}
			last = t.Fixed()
			callback(tick)
		}
	}
}

// Loop runs the task returned by factory n times in a row. A negative n
// loops forever. A nil task still consumes one frame so the loop cannot
// spin without yielding.
func Loop(n int, factory func(i int) gen.Task) gen.Task {
	return func(co *gen.Co) error {
		for i := 0; n < 0 || i < n; i++ {
			task := factory(i)
			if task == nil {
				co.Suspend()
				continue
			}
			if err := task(co); err != nil {
				return err
			}
		}
		return nil
	}
}
