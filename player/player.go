// Package player contains the drivers of a playback.Manager: a real-time
// Player, a headless Renderer and a live Presenter. Every driver turns
// the current frame into pixels and hands them to an Exporter.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/matt-g-everett/ledmotion/playback"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/util"
)

// Options are shared by every driver.
type Options struct {
	// Pixels is the length of the frames handed to the exporter.
	Pixels  int
	Metrics *Metrics
	Logger  util.Logger
}

// Status is a snapshot of a driver.
type Status struct {
	State    string  `json:"state"`
	Frame    float64 `json:"frame"`
	Duration float64 `json:"duration"`
	Seconds  float64 `json:"seconds"`
	Speed    float64 `json:"speed"`
	Scene    string  `json:"scene"`
	Slide    string  `json:"slide,omitempty"`
	Waiting  bool    `json:"waiting"`
	Finished bool    `json:"finished"`
}

// driver holds what the drivers share. lock serializes changes to the
// manager against drawing a frame.
type driver struct {
	mode     string
	manager  *playback.Manager
	exporter Exporter
	metrics  *Metrics
	logger   util.Logger
	pixels   int
	lock     *semaphore.Weighted
	index    int
}

func newDriver(mode string, manager *playback.Manager, exporter Exporter, opts Options) driver {
	if opts.Pixels <= 0 {
		opts.Pixels = stream.DefaultPixels
	}
	if opts.Logger == nil {
		opts.Logger = util.NewNoOpLogger()
	}
	return driver{
		mode:     mode,
		manager:  manager,
		exporter: exporter,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		pixels:   opts.Pixels,
		lock:     semaphore.NewWeighted(1),
	}
}

func (d *driver) withLock(ctx context.Context, fn func() error) error {
	if err := d.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.lock.Release(1)
	return fn()
}

func (d *driver) interval() time.Duration {
	return time.Duration(float64(time.Second) / d.manager.FPS())
}

// draw renders the current scene into a new frame.
func (d *driver) draw() *stream.Frame {
	f := stream.NewFrame(d.pixels)
	if s := d.manager.CurrentScene(); s != nil {
		s.Render(f)
	}
	return f
}

// export draws the current frame and hands it to the exporter.
func (d *driver) export(ctx context.Context) error {
	index := d.index
	d.index++
	if err := d.exporter.HandleFrame(ctx, d.draw(), index); err != nil {
		d.metrics.RecordExportError(d.mode)
		return fmt.Errorf("exporting frame %v: %w", d.manager.Frame(), err)
	}
	return nil
}

func (d *driver) status() Status {
	m := d.manager
	st := Status{
		State:    m.State().String(),
		Frame:    m.Frame(),
		Duration: m.Duration(),
		Seconds:  m.FramesToSeconds(m.Frame()),
		Speed:    m.Speed(),
		Finished: m.Finished(),
	}
	if s := m.CurrentScene(); s != nil {
		st.Scene = s.Name()
		if slide := s.Slides().Current(); slide != nil {
			st.Slide = slide.ID
		}
		st.Waiting = s.Slides().IsWaiting()
	}
	return st
}

// Status returns a snapshot of the playback.
func (d *driver) Status(ctx context.Context) (Status, error) {
	var st Status
	err := d.withLock(ctx, func() error {
		st = d.status()
		return nil
	})
	return st, err
}

// Settings control real-time playback. Start and End are in seconds; an
// End of 0 plays to the end.
type Settings struct {
	Speed float64 `json:"speed"`
	Loop  bool    `json:"loop"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Validate reports settings a Player cannot play.
func (s Settings) Validate() error {
	if s.Speed < 0 {
		return fmt.Errorf("speed must not be negative, got %v", s.Speed)
	}
	if s.Start < 0 {
		return fmt.Errorf("start must not be negative, got %v", s.Start)
	}
	if s.End != 0 && s.End < s.Start {
		return fmt.Errorf("end (%v) is before start (%v)", s.End, s.Start)
	}
	return nil
}

// SettingsFromConfig converts the playback section of the config file.
func SettingsFromConfig(c stream.PlaybackConfig) Settings {
	return Settings{Speed: c.Speed, Loop: c.Loop, Start: c.Start, End: c.End}
}

// Player plays the animation in real time.
type Player struct {
	driver
	settings Settings
	ended    bool

	mu      sync.Mutex
	pending *Settings
}

// NewPlayer creates a Player.
func NewPlayer(manager *playback.Manager, exporter Exporter, settings Settings, opts Options) *Player {
	if settings.Speed == 0 {
		settings.Speed = 1
	}
	return &Player{
		driver:   newDriver("play", manager, exporter, opts),
		settings: settings,
	}
}

// Configure queues settings that are applied before the next frame.
func (p *Player) Configure(s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &s
}

// Prepare measures the animation and moves to the start of the range.
func (p *Player) Prepare(ctx context.Context) error {
	return p.withLock(ctx, func() error {
		p.manager.SetState(playback.Playing)
		p.manager.SetSpeed(p.settings.Speed)
		if err := p.manager.Recalculate(ctx); err != nil {
			return err
		}
		if err := p.manager.Reset(ctx); err != nil {
			return err
		}
		return p.restart(ctx)
	})
}

// Run plays until the animation ends or ctx is canceled. A looping Player
// only stops with ctx.
func (p *Player) Run(ctx context.Context) error {
	if err := p.exporter.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := p.exporter.Stop(context.WithoutCancel(ctx)); err != nil {
			p.logger.Warn("Failed to stop exporter", util.F("error", err))
		}
	}()

	if err := p.Prepare(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			done, err := p.Tick(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Error("Playback failed", util.F("frame", p.manager.Frame()), util.F("error", err))
				return err
			}
			if done {
				p.logger.Info("Playback finished", util.F("frames", p.index))
				return nil
			}
		}
	}
}

// Tick exports the current frame and advances playback by one frame. It
// reports true once the last frame was exported.
func (p *Player) Tick(ctx context.Context) (bool, error) {
	var done bool
	err := p.withLock(ctx, func() error {
		start := time.Now()
		if err := p.applyPending(ctx); err != nil {
			return err
		}
		if err := p.export(ctx); err != nil {
			return err
		}
		if p.ended {
			done = true
			return nil
		}

		finished, err := p.manager.Progress(ctx)
		if err != nil {
			return err
		}
		if finished || p.pastEnd() {
			if p.settings.Loop {
				if err := p.restart(ctx); err != nil {
					return err
				}
			} else {
				p.ended = true
			}
		}

		elapsed := time.Since(start)
		p.metrics.RecordFrame(p.mode, p.manager.Frame(), elapsed)
		if elapsed > p.interval() {
			p.metrics.RecordDroppedTick(p.mode)
		}
		return nil
	})
	return done, err
}

func (p *Player) applyPending(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	if pending == nil {
		return nil
	}

	if pending.Speed == 0 {
		pending.Speed = 1
	}
	rangeChanged := pending.Start != p.settings.Start || pending.End != p.settings.End
	p.settings = *pending
	p.manager.SetSpeed(p.settings.Speed)
	p.logger.Debug("Applied settings", util.F("settings", p.settings))
	if rangeChanged || (p.ended && p.settings.Loop) {
		return p.restart(ctx)
	}
	return nil
}

func (p *Player) restart(ctx context.Context) error {
	p.ended = false
	_, err := p.manager.Seek(ctx, p.manager.SecondsToFrames(p.settings.Start))
	return err
}

func (p *Player) pastEnd() bool {
	if p.settings.End <= 0 {
		return false
	}
	return p.manager.Frame() >= p.manager.SecondsToFrames(p.settings.End)
}
