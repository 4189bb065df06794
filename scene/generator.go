package scene

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/signals"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/threads"
	"github.com/matt-g-everett/ledmotion/util"
)

// ErrNotReset is returned when a scene is stepped before its first Reset.
var ErrNotReset = errors.New("scene: stepped before reset")

// Builder creates the root task of a scene. It runs on every reset, so
// layers and signals it creates start fresh each time.
type Builder func(s *GeneratorScene) gen.Task

// TransitionFunc draws a transition into out from the frames of the
// incoming and outgoing scenes.
type TransitionFunc func(current, previous, out *stream.Frame)

// Option configures a GeneratorScene.
type Option func(s *GeneratorScene)

// WithSeed sets the seed of the scene's random source.
func WithSeed(seed int64) Option {
	return func(s *GeneratorScene) { s.seed = seed }
}

// GeneratorScene is a Scene whose timeline is a task.
type GeneratorScene struct {
	name   string
	status Status
	logger util.Logger
	build  Builder
	seed   int64

	runner     *threads.Runner
	root       *threads.Thread
	state      State
	previous   Scene
	slides     *Slides
	cache      Cache
	cached     bool
	layers     stream.Layers
	transition TransitionFunc
	rng        *rand.Rand
}

// New creates a scene called name. status is usually the playback manager
// that will drive it.
func New(name string, status Status, logger util.Logger, build Builder, opts ...Option) *GeneratorScene {
	s := &GeneratorScene{
		name:   name,
		status: status,
		logger: logger,
		build:  build,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slides = NewSlides(s, status, logger)
	s.rng = rand.New(rand.NewSource(s.seed))
	return s
}

func (s *GeneratorScene) Name() string {
	return s.name
}

// Status returns the playback status the scene runs under.
func (s *GeneratorScene) Status() Status {
	return s.status
}

// Logger returns the scene's logger.
func (s *GeneratorScene) Logger() util.Logger {
	return s.logger
}

// Rand returns the scene's random source. It is reseeded on every reset so
// replays draw the same numbers.
func (s *GeneratorScene) Rand() *rand.Rand {
	return s.rng
}

// Thread returns the root thread of the current run.
func (s *GeneratorScene) Thread() *threads.Thread {
	return s.root
}

// State returns the lifecycle stage.
func (s *GeneratorScene) State() State {
	return s.state
}

// Previous returns the scene being transitioned from, if any.
func (s *GeneratorScene) Previous() Scene {
	return s.previous
}

// Add appends layers to the scene, on top of the existing ones.
func (s *GeneratorScene) Add(layers ...stream.Layer) {
	s.layers = append(s.layers, layers...)
}

func (s *GeneratorScene) Slides() SlidesController {
	return s.slides
}

func (s *GeneratorScene) Cache() Cache {
	return s.cache
}

func (s *GeneratorScene) FirstFrame() float64 {
	return s.cache.FirstFrame
}

func (s *GeneratorScene) LastFrame() float64 {
	return s.cache.LastFrame
}

func (s *GeneratorScene) IsCached() bool {
	return s.cached
}

// Invalidate drops the measured timing so the next Recalculate replays the
// scene.
func (s *GeneratorScene) Invalidate() {
	s.cached = false
}

func (s *GeneratorScene) IsFinished() bool {
	return s.state == Finished
}

func (s *GeneratorScene) CanTransitionOut() bool {
	return s.state == CanTransitionOut || s.state == Finished
}

func (s *GeneratorScene) IsAfterTransitionIn() bool {
	return s.state == AfterTransitionIn
}

// EnterInitial marks the scene as transitioning in.
func (s *GeneratorScene) EnterInitial() {
	if s.state != AfterTransitionIn {
		s.logger.Warn("Scene entered initial in an unexpected state", util.F("scene", s.name), util.F("state", s.state))
		return
	}
	s.state = Initial
}

// EnterAfterTransitionIn marks the end of the entrance.
func (s *GeneratorScene) EnterAfterTransitionIn() {
	if s.state != Initial {
		s.logger.Warn("Scene transitioned in an unexpected state", util.F("scene", s.name), util.F("state", s.state))
		return
	}
	s.state = AfterTransitionIn
}

// EnterCanTransitionOut lets the next scene start.
func (s *GeneratorScene) EnterCanTransitionOut() {
	if s.state != AfterTransitionIn && s.state != Initial {
		s.logger.Warn("Scene was finished in an unexpected state", util.F("scene", s.name), util.F("state", s.state))
		return
	}
	s.state = CanTransitionOut
}

// Reset starts a new run of the scene and plays its first frame.
func (s *GeneratorScene) Reset(ctx context.Context, previous Scene) error {
	if s.runner != nil {
		s.runner.Close()
	}
	s.previous = previous
	s.layers = nil
	s.transition = nil
	s.root = nil
	s.rng = rand.New(rand.NewSource(s.seed))
	s.slides.reset()
	s.runner = threads.New(func() gen.Task { return s.build(s) }, s.status, func(t *threads.Thread) {
		s.root = t
	})
	s.state = AfterTransitionIn
	return s.Next(ctx)
}

// Next advances the scene by one frame, resolving whatever the scene
// awaits on the way.
func (s *GeneratorScene) Next(ctx context.Context) error {
	if s.runner == nil {
		return ErrNotReset
	}

	var value any
	for {
		step, err := s.runner.Next(value)
		if err != nil {
			return fmt.Errorf("scene %s: %w", s.name, err)
		}
		if step.Kind == gen.Done {
			s.state = Finished
		}
		if step.Kind != gen.Await {
			break
		}
		v, err := step.Await.Wait(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		value = gen.Resolution{Value: v, Err: err}
	}

	if signals.HasPromises() {
		promises, err := signals.ConsumePromises(ctx)
		if err != nil {
			return err
		}
		for _, p := range promises {
			s.logger.Error("Tried to access an asynchronous value before it was ready",
				util.F("scene", s.name), util.F("owner", p.Owner), util.F("error", p.Err))
		}
	}
	return nil
}

// Recalculate measures the scene. A cached scene only moves to its new
// first frame; otherwise the scene is replayed at the current speed until
// it can transition out.
func (s *GeneratorScene) Recalculate(ctx context.Context, setFrame func(frame float64)) error {
	cache := s.cache
	cache.FirstFrame = s.status.Frame()
	cache.LastFrame = cache.FirstFrame + cache.Duration
	if s.cached {
		s.cache = cache
		setFrame(cache.LastFrame)
		return nil
	}

	s.slides.forget()
	cache.TransitionDuration = -1
	if err := s.Reset(ctx, nil); err != nil {
		return err
	}
	for !s.CanTransitionOut() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cache.TransitionDuration < 0 && s.state == AfterTransitionIn {
			cache.TransitionDuration = s.status.Frame() - cache.FirstFrame
		}
		setFrame(s.status.Frame() + 1)
		if err := s.Next(ctx); err != nil {
			return err
		}
	}
	if cache.TransitionDuration < 0 {
		cache.TransitionDuration = s.status.Frame() - cache.FirstFrame
	}
	cache.LastFrame = s.status.Frame()
	cache.Duration = cache.LastFrame - cache.FirstFrame

	s.cache = cache
	s.cached = true
	return nil
}

// Render draws the layers of the scene and, during a transition, mixes in
// the outgoing scene.
func (s *GeneratorScene) Render(f *stream.Frame) {
	s.layers.Draw(f)
	if s.transition == nil || s.previous == nil {
		return
	}
	previous := stream.NewFrame(f.Len())
	s.previous.Render(previous)
	s.transition(f.Clone(), previous, f)
}

// Close releases the coroutines of the current run.
func (s *GeneratorScene) Close() {
	if s.runner != nil {
		s.runner.Close()
		s.runner = nil
	}
}
