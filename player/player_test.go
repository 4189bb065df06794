package player

import (
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/playback"
	"github.com/matt-g-everett/ledmotion/scene"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/stream/streamtest"
	"github.com/matt-g-everett/ledmotion/util"
)

var errExport = errors.New("export failed")

type memoryExporter struct {
	mu      sync.Mutex
	frames  map[int]*stream.Frame
	started int
	stopped int
	failAt  int
}

func newMemoryExporter() *memoryExporter {
	return &memoryExporter{frames: make(map[int]*stream.Frame), failAt: -1}
}

func (e *memoryExporter) Start(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started++
	return nil
}

func (e *memoryExporter) HandleFrame(_ context.Context, f *stream.Frame, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index == e.failAt {
		return errExport
	}
	e.frames[index] = f
	return nil
}

func (e *memoryExporter) Stop(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped++
	return nil
}

func (e *memoryExporter) red(index int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames[index].At(0).R
}

func (e *memoryExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.frames)
}

// ramp is red at frame/frames on every frame.
func ramp(m *playback.Manager, frames int) scene.Scene {
	return scene.New("ramp", m, util.NewNoOpLogger(), func(s *scene.GeneratorScene) gen.Task {
		fill := stream.NewFill(colorful.Color{})
		s.Add(fill)
		return func(co *gen.Co) error {
			for i := 1; i <= frames; i++ {
				co.Suspend()
				fill.Color.Set(colorful.Color{R: float64(i) / float64(frames)})
			}
			return nil
		}
	})
}

// slides waits at A on frame 10 and at B on frame 40.
func slides(m *playback.Manager) scene.Scene {
	return scene.New("main", m, util.NewNoOpLogger(), func(s *scene.GeneratorScene) gen.Task {
		return func(co *gen.Co) error {
			for _, step := range []struct {
				frames int
				slide  string
			}{{10, "A"}, {29, "B"}} {
				for i := 0; i < step.frames; i++ {
					co.Suspend()
				}
				if err := s.BeginSlide(co, step.slide); err != nil {
					return err
				}
			}
			for i := 0; i < 5; i++ {
				co.Suspend()
			}
			return nil
		}
	})
}

func newManager(t *testing.T, build func(m *playback.Manager) scene.Scene) *playback.Manager {
	t.Helper()
	m := playback.NewManager(4, util.NewNoOpLogger())
	require.NoError(t, m.Setup([]scene.Scene{build(m)}))
	return m
}

func TestRenderExportsEveryFrame(t *testing.T) {
	metrics, err := NewMetrics("test", prom.NewRegistry())
	require.NoError(t, err)
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 8) })
	exporter := newMemoryExporter()
	r := NewRenderer(m, exporter, 3, Options{Pixels: 2, Metrics: metrics})

	frames, err := r.Render(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 9, frames)
	require.Equal(t, 9, exporter.count())
	for i := 0; i < 9; i++ {
		assert.Equal(t, float64(i)/8, exporter.red(i), "frame %d", i)
	}
	assert.Equal(t, 1, exporter.started)
	assert.Equal(t, 1, exporter.stopped)
	assert.Equal(t, playback.Paused, m.State())
	assert.Equal(t, 9.0, testutil.ToFloat64(metrics.framesTotal.WithLabelValues("render")))
}

func TestRenderRange(t *testing.T) {
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 8) })
	exporter := newMemoryExporter()
	r := NewRenderer(m, exporter, 1, Options{Pixels: 1})

	frames, err := r.Render(context.Background(), 0.5, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, frames)
	assert.Equal(t, 2.0/8, exporter.red(0))
	assert.Equal(t, 4.0/8, exporter.red(2))
}

func TestRenderStopsOnExportError(t *testing.T) {
	metrics, err := NewMetrics("test", prom.NewRegistry())
	require.NoError(t, err)
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 8) })
	exporter := newMemoryExporter()
	exporter.failAt = 3
	r := NewRenderer(m, exporter, 2, Options{Pixels: 1, Metrics: metrics})

	_, err = r.Render(context.Background(), 0, 0)
	assert.ErrorIs(t, err, errExport)
	assert.Equal(t, 1, exporter.stopped)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exportErrorsTotal.WithLabelValues("render")))
}

func TestRenderCanceledIsNotAnError(t *testing.T) {
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 8) })
	r := NewRenderer(m, newMemoryExporter(), 1, Options{Pixels: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, 0, 0)
	assert.NoError(t, err)
}

func TestPlayerStopsAtEnd(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 3) })
	exporter := newMemoryExporter()
	p := NewPlayer(m, exporter, Settings{}, Options{Pixels: 1})
	require.NoError(t, p.Prepare(ctx))
	assert.Equal(t, playback.Playing, m.State())

	var ticks int
	for ticks = 1; ticks < 100; ticks++ {
		done, err := p.Tick(ctx)
		require.NoError(t, err)
		if done {
			break
		}
	}
	assert.Equal(t, 4, ticks)
	assert.Equal(t, 4, exporter.count())
	assert.Equal(t, 1.0, exporter.red(3))
}

func TestPlayerLoops(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 3) })
	exporter := newMemoryExporter()
	p := NewPlayer(m, exporter, Settings{Loop: true}, Options{Pixels: 1})
	require.NoError(t, p.Prepare(ctx))

	for i := 0; i < 3; i++ {
		done, err := p.Tick(ctx)
		require.NoError(t, err)
		assert.False(t, done)
	}
	assert.Equal(t, 0.0, m.Frame())

	done, err := p.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 0.0, exporter.red(3))
}

func TestPlayerAppliesSettingsBeforeFrame(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, func(m *playback.Manager) scene.Scene { return ramp(m, 8) })
	p := NewPlayer(m, newMemoryExporter(), Settings{}, Options{Pixels: 1})
	require.NoError(t, p.Prepare(ctx))

	p.Configure(Settings{Speed: 2})
	_, err := p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, m.Speed())
	assert.Equal(t, 2.0, m.Frame())

	p.Configure(Settings{Speed: 1, Start: 1})
	_, err = p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Frame())

	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "playing", st.State)
	assert.Equal(t, "ramp", st.Scene)
	assert.Equal(t, 5.0, st.Frame)
	assert.Equal(t, 8.0, st.Duration)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{Speed: 1.5, Start: 2, End: 4}.Validate())
	assert.NoError(t, Settings{Start: 2}.Validate(), "end 0 plays to the end")
	assert.EqualError(t, Settings{Speed: -1}.Validate(), "speed must not be negative, got -1")
	assert.EqualError(t, Settings{Start: -1}.Validate(), "start must not be negative, got -1")
	assert.EqualError(t, Settings{Start: 3, End: 2}.Validate(), "end (2) is before start (3)")
}

func TestPresenterHoldsAtSlides(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, slides)
	exporter := newMemoryExporter()
	p := NewPresenter(m, exporter, Options{Pixels: 1})
	require.NoError(t, p.Prepare(ctx))

	for i := 0; i < 15; i++ {
		require.NoError(t, p.Tick(ctx))
	}
	assert.Equal(t, 10.0, m.Frame())
	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main:A", st.Slide)
	assert.True(t, st.Waiting)
	assert.Equal(t, "presenting", st.State)

	require.NoError(t, p.Next(ctx))
	assert.Equal(t, 11.0, m.Frame())
	assert.False(t, m.CurrentScene().Slides().IsWaiting())
	require.NoError(t, p.Tick(ctx))
	require.NoError(t, p.Tick(ctx))
	assert.Equal(t, 13.0, m.Frame())

	require.NoError(t, p.Next(ctx), "skips to the next slide")
	assert.Equal(t, 40.0, m.Frame())
	assert.True(t, m.CurrentScene().Slides().IsWaitingFor("main:B"))

	require.NoError(t, p.Handle(ctx, stream.ControlMessage{Type: "prev"}))
	assert.Equal(t, 10.0, m.Frame())

	require.NoError(t, p.Handle(ctx, stream.ControlMessage{Type: "goto", Slide: "main:B"}))
	assert.Equal(t, 40.0, m.Frame())

	require.NoError(t, p.Handle(ctx, stream.ControlMessage{Type: "goto", Slide: "main:nope"}))
	assert.Equal(t, 40.0, m.Frame())

	assert.Error(t, p.Handle(ctx, stream.ControlMessage{Type: "jump"}))
	assert.Equal(t, 17, exporter.count())
}

func TestMetricsAreReusedOnRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetrics("test", reg)
	require.NoError(t, err)
	second, err := NewMetrics("test", reg)
	require.NoError(t, err)

	first.RecordDroppedTick("play")
	second.RecordDroppedTick("play")
	assert.Equal(t, 2.0, testutil.ToFloat64(first.droppedTicksTotal.WithLabelValues("play")))

	var none *Metrics
	none.RecordFrame("play", 1, 0)
	none.RecordExportError("")
}

func TestPNGExporter(t *testing.T) {
	ctx := context.Background()
	e := NewPNGExporter(t.TempDir()+"/frames", 2)
	require.NoError(t, e.Start(ctx))

	f := stream.NewFrame(3)
	f.Set(2, colorful.Color{R: 1})
	require.NoError(t, e.HandleFrame(ctx, f, 7))

	file, err := os.Open(e.Path(7))
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, color.RGBAModel.Convert(img.At(5, 1)))
	assert.Equal(t, color.RGBA{A: 255}, color.RGBAModel.Convert(img.At(0, 0)))
}

func TestMQTTExporter(t *testing.T) {
	ctx := context.Background()
	client := streamtest.NewClient()
	config := stream.DefaultConfig()
	e := NewMQTTExporter(stream.NewStreamer(config, client, util.NewNoOpLogger()), 3)

	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.HandleFrame(ctx, stream.NewFrame(3), 0))
	require.NoError(t, e.Stop(ctx))

	published := client.Published()
	require.Len(t, published, 2)
	for _, p := range published {
		assert.Equal(t, config.Mqtt.Topics.Stream, p.Topic)
		assert.Len(t, p.Payload, 11)
	}
}
