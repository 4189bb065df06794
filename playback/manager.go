// Package playback sequences scenes on a virtual frame clock. The Manager
// is driven one frame at a time by a player, renderer or presenter and
// knows how to seek by replaying scenes from their first frame.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/matt-g-everett/ledmotion/scene"
	"github.com/matt-g-everett/ledmotion/util"
)

// ErrNoScenes is returned when the manager is driven without scenes.
var ErrNoScenes = errors.New("playback: no scenes")

// Slide is a named checkpoint of a scene.
type Slide = scene.Slide

// State is set by the component driving the manager. It decides whether
// slides wait for the presenter.
type State int

const (
	Paused State = iota
	Playing
	Rendering
	Presenting
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	case Rendering:
		return "rendering"
	case Presenting:
		return "presenting"
	default:
		return "unknown"
	}
}

// Manager advances the scenes of an animation frame by frame.
type Manager struct {
	logger util.Logger

	frame    float64
	speed    float64
	fps      float64
	duration float64
	finished bool
	state    State

	scenes   []scene.Scene
	slides   []*Slide
	previous scene.Scene
	current  scene.Scene

	lastSlide      *Slide
	onSceneChanged func(scene.Scene)
	onSlideChanged func(*Slide)
}

// NewManager creates a paused manager running at fps frames per second.
func NewManager(fps float64, logger util.Logger) *Manager {
	return &Manager{
		logger: logger,
		speed:  1,
		fps:    fps,
		state:  Paused,
	}
}

// DeltaTime is the number of seconds a thread advances per frame.
func (m *Manager) DeltaTime() float64 {
	return m.speed / m.fps
}

// FrameDuration is the length of a single frame in seconds.
func (m *Manager) FrameDuration() float64 {
	return 1 / m.fps
}

func (m *Manager) Frame() float64 {
	return m.frame
}

func (m *Manager) Presenting() bool {
	return m.state == Presenting
}

// FramesToSeconds converts a frame number to seconds.
func (m *Manager) FramesToSeconds(frames float64) float64 {
	return frames / m.fps
}

// SecondsToFrames converts seconds to the first frame at or after them.
func (m *Manager) SecondsToFrames(seconds float64) float64 {
	return math.Ceil(seconds * m.fps)
}

func (m *Manager) Speed() float64 {
	return m.speed
}

// SetSpeed changes the number of frames advanced per call to Progress.
func (m *Manager) SetSpeed(speed float64) {
	m.speed = speed
}

func (m *Manager) FPS() float64 {
	return m.fps
}

// Duration is the total number of frames measured by Recalculate.
func (m *Manager) Duration() float64 {
	return m.duration
}

func (m *Manager) Finished() bool {
	return m.finished
}

func (m *Manager) State() State {
	return m.state
}

func (m *Manager) SetState(state State) {
	m.state = state
}

func (m *Manager) Scenes() []scene.Scene {
	return m.scenes
}

// Slides returns every slide of every scene in playback order.
func (m *Manager) Slides() []*Slide {
	return m.slides
}

func (m *Manager) CurrentScene() scene.Scene {
	return m.current
}

// PreviousScene is the scene being transitioned out of, if any.
func (m *Manager) PreviousScene() scene.Scene {
	return m.previous
}

// OnSceneChanged registers a callback run whenever the current scene
// changes.
func (m *Manager) OnSceneChanged(fn func(scene.Scene)) {
	m.onSceneChanged = fn
}

// OnSlideChanged registers a callback run whenever playback reaches a
// different slide.
func (m *Manager) OnSlideChanged(fn func(*Slide)) {
	m.onSlideChanged = fn
}

// Setup installs the scenes and closes the ones they replace. It does not
// measure them; call Recalculate before seeking.
func (m *Manager) Setup(scenes []scene.Scene) error {
	if len(scenes) == 0 {
		return ErrNoScenes
	}
	for _, old := range m.scenes {
		if !contains(scenes, old) {
			old.Close()
		}
	}
	m.scenes = scenes
	m.slides = nil
	m.previous = nil
	m.lastSlide = nil
	m.setCurrent(scenes[0])
	return nil
}

// Close releases the coroutines of every scene. The manager must be set up
// again before it is driven.
func (m *Manager) Close() {
	for _, s := range m.scenes {
		s.Close()
	}
	m.previous = nil
	m.lastSlide = nil
}

// Recalculate replays every scene at speed 1 to measure its frames and
// collect its slides. The speed and state are restored afterwards, even
// when a scene fails.
func (m *Manager) Recalculate(ctx context.Context) error {
	if len(m.scenes) == 0 {
		return ErrNoScenes
	}

	speed, state := m.speed, m.state
	defer func() {
		m.speed = speed
		m.state = state
	}()
	m.speed = 1
	if m.state == Presenting {
		m.state = Paused
	}

	m.previous = nil
	m.lastSlide = nil
	m.frame = 0
	m.slides = nil
	setFrame := func(frame float64) { m.frame = frame }
	for _, s := range m.scenes {
		if err := s.Recalculate(ctx, setFrame); err != nil {
			return fmt.Errorf("recalculating %s: %w", s.Name(), err)
		}
		m.slides = append(m.slides, s.Slides().List()...)
	}
	m.duration = m.frame
	m.logger.Debug("Recalculated", util.F("duration", m.duration), util.F("slides", len(m.slides)))
	return nil
}

// Progress advances playback by one frame and reports whether it finished.
func (m *Manager) Progress(ctx context.Context) (bool, error) {
	finished, err := m.next(ctx)
	if err != nil {
		return false, err
	}
	m.finished = finished
	return finished, nil
}

func (m *Manager) next(ctx context.Context) (bool, error) {
	if m.current == nil {
		return false, ErrNoScenes
	}

	if m.previous != nil {
		if err := m.previous.Next(ctx); err != nil {
			return false, err
		}
		if m.previous.IsFinished() {
			m.previous = nil
		}
	}

	m.frame += m.speed

	if m.current.IsFinished() {
		return true, nil
	}
	if err := m.current.Next(ctx); err != nil {
		return false, err
	}
	if m.previous != nil && m.current.IsAfterTransitionIn() {
		m.previous = nil
	}

	if m.current.CanTransitionOut() {
		m.previous = m.current
		following := m.following(m.previous)
		if following != nil {
			m.setCurrent(following)
			if err := following.Reset(ctx, m.previous); err != nil {
				return false, err
			}
		}
		if following == nil || m.current.IsAfterTransitionIn() {
			m.previous = nil
		}
	}

	m.checkSlide()
	return m.current.IsFinished(), nil
}

// Seek moves playback to frame. Seeking backwards, or past the end of a
// measured scene, restarts the best matching scene and replays it, so the
// cost grows with the distance from that scene's first frame.
func (m *Manager) Seek(ctx context.Context, frame float64) (bool, error) {
	if m.current == nil {
		return false, ErrNoScenes
	}

	if frame <= m.frame || (m.current.IsCached() && m.current.LastFrame() < frame) {
		best := m.FindBestScene(frame)
		if best != m.current || m.frame >= frame {
			if err := m.rewind(ctx, best); err != nil {
				return false, err
			}
		}
	}

	m.finished = false
	for m.frame < frame && !m.finished {
		finished, err := m.next(ctx)
		if err != nil {
			return false, err
		}
		m.finished = finished
	}
	return m.finished, nil
}

// FindBestScene returns the scene that contains frame: the first one that
// is not measured yet or ends after it. The last scene is used when frame
// lies past the end.
func (m *Manager) FindBestScene(frame float64) scene.Scene {
	if len(m.scenes) == 0 {
		return nil
	}
	for _, s := range m.scenes {
		if !s.IsCached() || s.LastFrame() > frame {
			return s
		}
	}
	return m.scenes[len(m.scenes)-1]
}

// Reset restarts playback from the first frame of the first scene.
func (m *Manager) Reset(ctx context.Context) error {
	if len(m.scenes) == 0 {
		return ErrNoScenes
	}
	m.finished = false
	return m.rewind(ctx, m.scenes[0])
}

// Reload replaces the scenes, measures them again and returns to the
// frame playback was at, as far as the new scenes reach.
func (m *Manager) Reload(ctx context.Context, scenes []scene.Scene) error {
	frame := m.frame
	if err := m.Setup(scenes); err != nil {
		return err
	}
	if err := m.Recalculate(ctx); err != nil {
		return err
	}
	if err := m.Reset(ctx); err != nil {
		return err
	}
	_, err := m.Seek(ctx, math.Min(frame, m.duration))
	return err
}

// GoBack returns to the start of the current slide or, when playback
// already waits there, to the slide before it. Without a slide to return
// to it goes to the first slide.
func (m *Manager) GoBack(ctx context.Context) error {
	if m.current == nil || len(m.slides) == 0 {
		return nil
	}
	target := m.current.Slides().Current()
	if target != nil && m.current.Slides().IsWaiting() {
		i := m.slideIndex(target.ID)
		target = nil
		if i > 0 {
			target = m.slides[i-1]
		}
	}
	if target == nil {
		target = m.slides[0]
	}
	return m.seekSlide(ctx, target)
}

// GoForward moves to the first slide after the current frame.
func (m *Manager) GoForward(ctx context.Context) error {
	for _, slide := range m.slides {
		if slide.Time > m.frame {
			return m.seekSlide(ctx, slide)
		}
	}
	return nil
}

// GoTo moves to the slide with the given id. Unknown ids are ignored.
func (m *Manager) GoTo(ctx context.Context, id string) error {
	i := m.slideIndex(id)
	if i < 0 {
		m.logger.Warn("Unknown slide", util.F("slide", id))
		return nil
	}
	return m.seekSlide(ctx, m.slides[i])
}

func (m *Manager) seekSlide(ctx context.Context, slide *Slide) error {
	s := slide.Scene
	if s == nil || !m.hasScene(s) {
		return nil
	}

	if m.current != s || s.Slides().DidHappen(slide.ID) {
		s.Slides().SetTarget(slide.ID)
		if err := m.rewind(ctx, s); err != nil {
			s.Slides().SetTarget("")
			return err
		}
	}

	m.finished = false
	s.Slides().SetTarget(slide.ID)
	defer s.Slides().SetTarget("")
	for !m.current.Slides().IsWaitingFor(slide.ID) && !m.finished {
		finished, err := m.next(ctx)
		if err != nil {
			return err
		}
		m.finished = finished
	}
	return nil
}

// rewind restarts s from its first frame.
func (m *Manager) rewind(ctx context.Context, s scene.Scene) error {
	m.previous = nil
	m.lastSlide = nil
	m.setCurrent(s)
	m.frame = s.FirstFrame()
	return s.Reset(ctx, nil)
}

func contains(scenes []scene.Scene, s scene.Scene) bool {
	for _, candidate := range scenes {
		if candidate == s {
			return true
		}
	}
	return false
}

func (m *Manager) following(s scene.Scene) scene.Scene {
	for i, candidate := range m.scenes {
		if candidate == s && i+1 < len(m.scenes) {
			return m.scenes[i+1]
		}
	}
	return nil
}

func (m *Manager) hasScene(s scene.Scene) bool {
	return contains(m.scenes, s)
}

func (m *Manager) slideIndex(id string) int {
	for i, slide := range m.slides {
		if slide.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) setCurrent(s scene.Scene) {
	if m.current == s {
		return
	}
	m.current = s
	m.logger.Debug("Scene changed", util.F("scene", s.Name()), util.F("frame", m.frame))
	if m.onSceneChanged != nil {
		m.onSceneChanged(s)
	}
}

func (m *Manager) checkSlide() {
	slide := m.current.Slides().Current()
	if slide == nil || slide == m.lastSlide {
		return
	}
	m.lastSlide = slide
	if m.onSlideChanged != nil {
		m.onSlideChanged(slide)
	}
}
