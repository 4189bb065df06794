package scene

import (
	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/signals"
	"github.com/matt-g-everett/ledmotion/stream"
)

// BeginSlide marks the start of slide name. While presenting, the task
// stays here until the presenter resumes it.
func (s *GeneratorScene) BeginSlide(co *gen.Co, name string) error {
	if err := s.slides.Register(name); err != nil {
		return err
	}
	co.Suspend()
	for {
		wait, err := s.slides.ShouldWait(name)
		if err != nil {
			return err
		}
		if !wait {
			return nil
		}
		co.Suspend()
	}
}

// FinishScene lets the next scene start while this one keeps running
// underneath it.
func (s *GeneratorScene) FinishScene() {
	s.EnterCanTransitionOut()
}

// UseTransition starts a transition from the previous scene drawn by fn.
// Calling the returned function ends it.
func (s *GeneratorScene) UseTransition(fn TransitionFunc) (end func()) {
	s.EnterInitial()
	s.transition = fn
	return func() {
		s.transition = nil
		s.previous = nil
		s.EnterAfterTransitionIn()
	}
}

// FadeTransition cross-fades from the previous scene over the given number
// of seconds.
func (s *GeneratorScene) FadeTransition(co *gen.Co, seconds float64) error {
	progress := signals.Number(0)
	end := s.UseTransition(func(current, previous, out *stream.Frame) {
		_ = out.Blend(previous, current, progress.Get())
	})
	if err := progress.Tween(1, seconds).Play(co); err != nil {
		return err
	}
	end()
	return nil
}
