// Package scene contains the units the playback manager sequences. A
// GeneratorScene runs one root task on a thread tree and draws its layers
// onto LED frames.
package scene

import (
	"context"

	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/threads"
)

// Status is what a scene needs to know about the playback driving it.
type Status interface {
	threads.Timing
	// Frame is the current absolute playback frame.
	Frame() float64
	// Presenting reports whether slides wait for the presenter.
	Presenting() bool
}

// Scene is a self-contained animation driven one frame at a time.
type Scene interface {
	Name() string
	// Next advances the scene by one frame.
	Next(ctx context.Context) error
	// Reset restarts the scene. previous is the outgoing scene, if any, so
	// the scene can transition from it.
	Reset(ctx context.Context, previous Scene) error
	IsFinished() bool
	CanTransitionOut() bool
	IsAfterTransitionIn() bool
	IsCached() bool
	FirstFrame() float64
	LastFrame() float64
	Cache() Cache
	Slides() SlidesController
	// Recalculate plays the scene through to measure it. setFrame moves the
	// playback frame forward while it does.
	Recalculate(ctx context.Context, setFrame func(frame float64)) error
	// Render draws the current state of the scene.
	Render(f *stream.Frame)
	// Close releases the running tasks of the scene. It must be reset
	// before it runs again.
	Close()
}

// SlidesController is the slide bookkeeping of one scene.
type SlidesController interface {
	// Current returns the slide reached last, or nil.
	Current() *Slide
	IsWaiting() bool
	IsWaitingFor(id string) bool
	// SetTarget makes the scene run through every slide up to id and stop
	// there. An empty id clears the target.
	SetTarget(id string)
	DidHappen(id string) bool
	Resume()
	// List returns the slides measured by the last recalculation, in order.
	List() []*Slide
}

// Slide is a named checkpoint in a scene.
type Slide struct {
	ID   string
	Name string
	// Time is the absolute playback frame the slide begins at.
	Time  float64
	Scene Scene
	Stack []byte
}

// State is the lifecycle stage of a GeneratorScene.
type State int

const (
	// Initial is a scene still transitioning in.
	Initial State = iota
	// AfterTransitionIn is a scene that finished its entrance.
	AfterTransitionIn
	// CanTransitionOut is a scene that allows the next one to start.
	CanTransitionOut
	// Finished is a scene whose root task returned.
	Finished
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case AfterTransitionIn:
		return "afterTransitionIn"
	case CanTransitionOut:
		return "canTransitionOut"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Cache is the timing measured by Recalculate, in frames.
type Cache struct {
	FirstFrame         float64
	LastFrame          float64
	Duration           float64
	TransitionDuration float64
}
