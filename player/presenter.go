package player

import (
	"context"
	"fmt"
	"time"

	"github.com/matt-g-everett/ledmotion/playback"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/util"
)

// Presenter plays the animation slide by slide. Playback holds at every
// slide until Next is called.
type Presenter struct {
	driver
}

// NewPresenter creates a Presenter.
func NewPresenter(manager *playback.Manager, exporter Exporter, opts Options) *Presenter {
	return &Presenter{driver: newDriver("present", manager, exporter, opts)}
}

// Prepare measures the animation and moves to its first frame.
func (p *Presenter) Prepare(ctx context.Context) error {
	return p.withLock(ctx, func() error {
		p.manager.SetState(playback.Presenting)
		if err := p.manager.Recalculate(ctx); err != nil {
			return err
		}
		return p.manager.Reset(ctx)
	})
}

// Run presents until ctx is canceled.
func (p *Presenter) Run(ctx context.Context) error {
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
			if err := p.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Error("Presentation failed", util.F("frame", p.manager.Frame()), util.F("error", err))
				return err
			}
		}
	}
}

// Tick advances the animation by one frame unless it waits at a slide or
// finished, and exports the current frame.
func (p *Presenter) Tick(ctx context.Context) error {
	return p.withLock(ctx, func() error {
		start := time.Now()
		if !p.waiting() && !p.manager.Finished() {
			if _, err := p.manager.Progress(ctx); err != nil {
				return err
			}
		}
		if err := p.export(ctx); err != nil {
			return err
		}
		p.metrics.RecordFrame(p.mode, p.manager.Frame(), time.Since(start))
		return nil
	})
}

func (p *Presenter) waiting() bool {
	s := p.manager.CurrentScene()
	return s != nil && s.Slides().IsWaiting()
}

// Next continues past the slide the presentation waits at, or skips to the
// next slide.
func (p *Presenter) Next(ctx context.Context) error {
	return p.withLock(ctx, func() error {
		if !p.waiting() {
			return p.manager.GoForward(ctx)
		}
		p.manager.CurrentScene().Slides().Resume()
		_, err := p.manager.Progress(ctx)
		return err
	})
}

// Prev returns to the previous slide.
func (p *Presenter) Prev(ctx context.Context) error {
	return p.withLock(ctx, func() error {
		return p.manager.GoBack(ctx)
	})
}

// GoTo jumps to the slide id. Unknown ids are ignored.
func (p *Presenter) GoTo(ctx context.Context, id string) error {
	return p.withLock(ctx, func() error {
		return p.manager.GoTo(ctx, id)
	})
}

// Handle runs a command received on the control topic.
func (p *Presenter) Handle(ctx context.Context, msg stream.ControlMessage) error {
	switch msg.Type {
	case "next":
		return p.Next(ctx)
	case "prev":
		return p.Prev(ctx)
	case "goto":
		return p.GoTo(ctx, msg.Slide)
	default:
		return fmt.Errorf("unknown command %q", msg.Type)
	}
}
