package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matt-g-everett/ledmotion/playback"
	"github.com/matt-g-everett/ledmotion/util"
)

// Renderer exports the animation as fast as it can be drawn. Frames are
// drawn in order on the calling goroutine and handed to the exporter by up
// to Workers goroutines.
type Renderer struct {
	driver
	workers int
}

// NewRenderer creates a Renderer.
func NewRenderer(manager *playback.Manager, exporter Exporter, workers int, opts Options) *Renderer {
	if workers < 1 {
		workers = 1
	}
	return &Renderer{
		driver:  newDriver("render", manager, exporter, opts),
		workers: workers,
	}
}

// Render exports every frame between start and end seconds, both
// included. An end of 0 renders to the end of the animation. It returns
// the number of frames handed to the exporter. Canceling ctx stops the
// render without an error.
func (r *Renderer) Render(ctx context.Context, start, end float64) (int, error) {
	frames := 0
	err := r.withLock(ctx, func() error {
		var err error
		frames, err = r.render(ctx, start, end)
		return err
	})
	if ctx.Err() != nil {
		r.logger.Info("Render canceled", util.F("frames", frames))
		return frames, nil
	}
	return frames, err
}

func (r *Renderer) render(ctx context.Context, start, end float64) (int, error) {
	state := r.manager.State()
	r.manager.SetState(playback.Rendering)
	defer r.manager.SetState(state)

	if err := r.manager.Recalculate(ctx); err != nil {
		return 0, err
	}
	if err := r.manager.Reset(ctx); err != nil {
		return 0, err
	}
	last := r.manager.Duration()
	if end > 0 {
		last = math.Min(last, r.manager.SecondsToFrames(end))
	}
	if _, err := r.manager.Seek(ctx, r.manager.SecondsToFrames(start)); err != nil {
		return 0, err
	}

	if err := r.exporter.Start(ctx); err != nil {
		return 0, err
	}
	r.logger.Info("Rendering", util.F("from", r.manager.Frame()), util.F("to", last), util.F("workers", r.workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	frames := 0
	var progressErr error
	for gctx.Err() == nil {
		begin := time.Now()
		f := r.draw()
		index, frame := frames, r.manager.Frame()
		g.Go(func() error {
			if err := r.exporter.HandleFrame(gctx, f, index); err != nil {
				r.metrics.RecordExportError(r.mode)
				return fmt.Errorf("exporting frame %v: %w", frame, err)
			}
			r.metrics.RecordFrame(r.mode, frame, time.Since(begin))
			return nil
		})
		frames++

		if r.manager.Finished() || r.manager.Frame() >= last {
			break
		}
		if _, err := r.manager.Progress(gctx); err != nil {
			progressErr = err
			break
		}
	}

	err := g.Wait()
	stopErr := r.exporter.Stop(context.WithoutCancel(ctx))
	if err := errors.Join(progressErr, err, stopErr); err != nil {
		return frames, err
	}
	r.logger.Info("Rendered", util.F("frames", frames))
	return frames, nil
}
