package scene

import (
	"fmt"
	"runtime/debug"

	"github.com/matt-g-everett/ledmotion/util"
)

// Slides keeps track of the slides of one scene and decides whether the
// scene should wait at them.
type Slides struct {
	scene  Scene
	status Status
	logger util.Logger

	lookup     map[string]*Slide
	order      []*Slide
	collisions map[string]bool
	current    *Slide
	canResume  bool
	waitsFor   string
	target     string
}

// NewSlides creates the slide controller of scene.
func NewSlides(scene Scene, status Status, logger util.Logger) *Slides {
	return &Slides{
		scene:      scene,
		status:     status,
		logger:     logger,
		lookup:     make(map[string]*Slide),
		collisions: make(map[string]bool),
	}
}

func (s *Slides) id(name string) string {
	return s.scene.Name() + ":" + name
}

func (s *Slides) Current() *Slide {
	return s.current
}

func (s *Slides) IsWaiting() bool {
	return s.waitsFor != ""
}

func (s *Slides) IsWaitingFor(id string) bool {
	return s.waitsFor != "" && s.waitsFor == id
}

func (s *Slides) SetTarget(id string) {
	s.target = id
}

func (s *Slides) Resume() {
	s.canResume = true
}

// DidHappen reports whether the slide id comes at or before the current
// one.
func (s *Slides) DidHappen(id string) bool {
	if s.current == nil {
		return false
	}
	for _, slide := range s.order {
		if slide.ID == id {
			return true
		}
		if slide.ID == s.current.ID {
			return false
		}
	}
	return false
}

func (s *Slides) List() []*Slide {
	return append([]*Slide(nil), s.order...)
}

// Register marks that the scene reached the slide name. Slides are only
// recorded while not presenting, so presenting relies on an earlier
// recalculation.
func (s *Slides) Register(name string) error {
	if s.waitsFor != "" {
		return fmt.Errorf("the animation already waits for a slide: %s", s.waitsFor)
	}
	id := s.id(name)
	if !s.status.Presenting() {
		if _, ok := s.lookup[id]; !ok {
			slide := &Slide{
				ID:    id,
				Name:  name,
				Time:  s.status.Frame(),
				Scene: s.scene,
				Stack: debug.Stack(),
			}
			s.lookup[id] = slide
			s.order = append(s.order, slide)
		}
	}
	if s.collisions[name] {
		s.logger.Warn("A slide with this name already exists", util.F("slide", id))
	} else {
		s.collisions[name] = true
	}

	s.waitsFor = id
	s.current = s.lookup[id]
	s.canResume = false
	return nil
}

// ShouldWait reports whether the scene has to stay at slide name. While a
// target is set, every slide but the target is passed through; outside of
// presenting, only the target stops the scene.
func (s *Slides) ShouldWait(name string) (bool, error) {
	id := s.id(name)
	if s.waitsFor != id {
		return false, fmt.Errorf("the animation waits for a different slide: %s", s.waitsFor)
	}
	if _, ok := s.lookup[id]; !ok {
		return false, fmt.Errorf("could not find the %q slide", name)
	}

	canResume := s.canResume
	if s.target != "" || !s.status.Presenting() {
		canResume = s.target != id
	}
	if canResume {
		s.waitsFor = ""
	}
	return !canResume, nil
}

// reset forgets the progress of the previous run but keeps the measured
// slides and the target.
func (s *Slides) reset() {
	s.current = nil
	s.waitsFor = ""
	s.canResume = false
	clear(s.collisions)
}

// forget drops the measured slides and the target.
func (s *Slides) forget() {
	s.reset()
	clear(s.lookup)
	s.order = nil
	s.target = ""
}
