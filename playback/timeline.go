package playback

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Timeline describes the measured scenes and slides of an animation.
type Timeline struct {
	FPS      float64         `yaml:"fps"`
	Duration float64         `yaml:"duration"` // Total duration in frames
	Seconds  float64         `yaml:"seconds"`
	Scenes   []TimelineScene `yaml:"scenes"`
	Slides   []TimelineSlide `yaml:"slides"`
}

// TimelineScene is the measured timing of one scene, in frames.
type TimelineScene struct {
	Name               string  `yaml:"name"`
	FirstFrame         float64 `yaml:"first_frame"`
	LastFrame          float64 `yaml:"last_frame"`
	TransitionDuration float64 `yaml:"transition_duration"`
}

// TimelineSlide is a slide and the frame it begins at.
type TimelineSlide struct {
	ID      string  `yaml:"id"`
	Scene   string  `yaml:"scene"`
	Name    string  `yaml:"name"`
	Frame   float64 `yaml:"frame"`
	Seconds float64 `yaml:"seconds"`
}

// Timeline returns the timing measured by the last Recalculate.
func (m *Manager) Timeline() Timeline {
	t := Timeline{
		FPS:      m.fps,
		Duration: m.duration,
		Seconds:  m.FramesToSeconds(m.duration),
	}
	for _, s := range m.scenes {
		cache := s.Cache()
		t.Scenes = append(t.Scenes, TimelineScene{
			Name:               s.Name(),
			FirstFrame:         cache.FirstFrame,
			LastFrame:          cache.LastFrame,
			TransitionDuration: cache.TransitionDuration,
		})
	}
	for _, slide := range m.slides {
		ts := TimelineSlide{
			ID:      slide.ID,
			Name:    slide.Name,
			Frame:   slide.Time,
			Seconds: m.FramesToSeconds(slide.Time),
		}
		if slide.Scene != nil {
			ts.Scene = slide.Scene.Name()
		}
		t.Slides = append(t.Slides, ts)
	}
	return t
}

// WriteTimeline writes the timeline of the manager to a YAML file.
func (m *Manager) WriteTimeline(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := EncodeTimeline(f, m.Timeline()); err != nil {
		return err
	}
	return f.Close()
}

// EncodeTimeline writes t as YAML.
func EncodeTimeline(w io.Writer, t Timeline) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}

// ReadTimeline reads a timeline from a YAML file.
func ReadTimeline(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t Timeline
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
