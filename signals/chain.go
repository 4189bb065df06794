package signals

import (
	"github.com/matt-g-everett/ledmotion/flow"
	"github.com/matt-g-everett/ledmotion/gen"
)

// Chain is a queue of animation steps on one signal that plays as a single
// task. Each builder method appends a step and returns the chain.
type Chain[T any] struct {
	signal  *Signal[T]
	initial T
	queue   []gen.Task
	timing  TimingFunction
	interp  Interpolation[T]
}

// To tweens towards v using the timing and interpolation of the previous
// step.
func (c *Chain[T]) To(v T, seconds float64) *Chain[T] {
	return c.ToWith(v, seconds, c.timing, c.interp)
}

// ToWith tweens towards v and makes timing and interp the new defaults.
func (c *Chain[T]) ToWith(v T, seconds float64, timing TimingFunction, interp Interpolation[T]) *Chain[T] {
	if timing != nil {
		c.timing = timing
	}
	if interp != nil {
		c.interp = interp
	}
	timing, interp = c.timing, c.interp
	c.queue = append(c.queue, func(co *gen.Co) error {
		return c.signal.tween(co, v, seconds, timing, interp)
	})
	return c
}

// Back tweens to the value the signal had when the chain was created.
func (c *Chain[T]) Back(seconds float64) *Chain[T] {
	return c.To(c.initial, seconds)
}

// Wait idles for the given number of seconds.
func (c *Chain[T]) Wait(seconds float64) *Chain[T] {
	c.queue = append(c.queue, func(co *gen.Co) error {
		return flow.WaitFor(co, seconds)
	})
	return c
}

// Run appends an arbitrary task.
func (c *Chain[T]) Run(task gen.Task) *Chain[T] {
	c.queue = append(c.queue, task)
	return c
}

// Do appends a callback that runs without taking any time.
func (c *Chain[T]) Do(fn func()) *Chain[T] {
	c.queue = append(c.queue, func(*gen.Co) error {
		fn()
		return nil
	})
	return c
}

// Play runs the queued steps in order on the calling thread.
func (c *Chain[T]) Play(co *gen.Co) error {
	for len(c.queue) > 0 {
		step := c.queue[0]
		c.queue = c.queue[1:]
		if err := step(co); err != nil {
			return err
		}
	}
	return nil
}

// Task returns the chain as a task that can be spawned.
func (c *Chain[T]) Task() gen.Task {
	return c.Play
}
