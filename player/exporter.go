package player

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/matt-g-everett/ledmotion/stream"
)

// Exporter receives the frames produced by a driver. HandleFrame may be
// called from several goroutines by the Renderer.
type Exporter interface {
	Start(ctx context.Context) error
	HandleFrame(ctx context.Context, f *stream.Frame, index int) error
	Stop(ctx context.Context) error
}

// PNGExporter writes every frame to its own PNG file. The strip is drawn
// as a single row, scaled up by Scale in both directions.
type PNGExporter struct {
	Dir   string
	Scale int
}

// NewPNGExporter creates a PNGExporter writing to dir.
func NewPNGExporter(dir string, scale int) *PNGExporter {
	if scale < 1 {
		scale = 1
	}
	return &PNGExporter{Dir: dir, Scale: scale}
}

func (e *PNGExporter) Start(context.Context) error {
	return os.MkdirAll(e.Dir, 0755)
}

// Path returns the file frame index is written to.
func (e *PNGExporter) Path(index int) string {
	return filepath.Join(e.Dir, fmt.Sprintf("frame_%06d.png", index))
}

func (e *PNGExporter) HandleFrame(ctx context.Context, f *stream.Frame, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img := e.Image(f)

	out, err := os.Create(e.Path(index))
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encoding frame %d: %w", index, err)
	}
	return out.Close()
}

// Image draws f as a scaled image.
func (e *PNGExporter) Image(f *stream.Frame) *image.RGBA {
	strip := image.NewRGBA(image.Rect(0, 0, f.Len(), 1))
	for i := 0; i < f.Len(); i++ {
		strip.Set(i, 0, f.At(i).Clamped())
	}
	if e.Scale <= 1 {
		return strip
	}
	scaled := image.NewRGBA(image.Rect(0, 0, f.Len()*e.Scale, e.Scale))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), strip, strip.Bounds(), draw.Src, nil)
	return scaled
}

func (e *PNGExporter) Stop(context.Context) error {
	return nil
}

// MQTTExporter streams frames to the strip as they are produced.
type MQTTExporter struct {
	streamer *stream.Streamer
	pixels   int
}

// NewMQTTExporter creates an exporter publishing through streamer to a
// strip of the given length.
func NewMQTTExporter(streamer *stream.Streamer, pixels int) *MQTTExporter {
	return &MQTTExporter{streamer: streamer, pixels: pixels}
}

func (e *MQTTExporter) Start(context.Context) error {
	return nil
}

func (e *MQTTExporter) HandleFrame(ctx context.Context, f *stream.Frame, _ int) error {
	return e.streamer.SendFrame(ctx, f)
}

// Stop blanks the strip.
func (e *MQTTExporter) Stop(ctx context.Context) error {
	return e.streamer.SendFrame(ctx, stream.NewFrame(e.pixels))
}
