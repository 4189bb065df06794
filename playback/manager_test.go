package playback_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/playback"
	"github.com/matt-g-everett/ledmotion/scene"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/util"
)

func suspends(n int) gen.Task {
	return func(co *gen.Co) error {
		for i := 0; i < n; i++ {
			co.Suspend()
		}
		return nil
	}
}

func counted(m *playback.Manager, name string, frames int) *scene.GeneratorScene {
	return scene.New(name, m, util.NewNoOpLogger(), func(*scene.GeneratorScene) gen.Task {
		return suspends(frames)
	})
}

// slides reaches slide A at frame 10 and slide B at frame 40.
func slides(m *playback.Manager) *scene.GeneratorScene {
	return scene.New("main", m, util.NewNoOpLogger(), func(s *scene.GeneratorScene) gen.Task {
		return func(co *gen.Co) error {
			if err := suspends(10)(co); err != nil {
				return err
			}
			if err := s.BeginSlide(co, "A"); err != nil {
				return err
			}
			if err := suspends(29)(co); err != nil {
				return err
			}
			if err := s.BeginSlide(co, "B"); err != nil {
				return err
			}
			return suspends(5)(co)
		}
	})
}

func setup(t *testing.T, m *playback.Manager, scenes ...scene.Scene) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.Setup(scenes))
	require.NoError(t, m.Recalculate(ctx))
	require.NoError(t, m.Reset(ctx))
}

func TestRecalculateMeasuresScenes(t *testing.T) {
	m := playback.NewManager(30, util.NewNoOpLogger())
	a, b, c := counted(m, "a", 30), counted(m, "b", 45), counted(m, "c", 20)
	setup(t, m, a, b, c)

	assert.Equal(t, 95.0, m.Duration())
	assert.Equal(t, 0.0, m.Frame())
	assert.Same(t, a, m.CurrentScene())
	assert.Equal(t, 30.0, b.FirstFrame())
	assert.Equal(t, 75.0, b.LastFrame())
	assert.Equal(t, 95.0, c.LastFrame())
}

func TestSeekLandsInSecondScene(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	a, b, c := counted(m, "a", 30), counted(m, "b", 45), counted(m, "c", 20)
	setup(t, m, a, b, c)

	var changes []string
	m.OnSceneChanged(func(s scene.Scene) { changes = append(changes, s.Name()) })

	finished, err := m.Seek(ctx, 50)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Same(t, b, m.CurrentScene())
	assert.Equal(t, 30.0, m.CurrentScene().FirstFrame())
	assert.Equal(t, 50.0, m.Frame())

	finished, err = m.Seek(ctx, 10)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Same(t, a, m.CurrentScene())
	assert.Equal(t, 10.0, m.Frame())

	finished, err = m.Seek(ctx, 1000)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.True(t, m.Finished())
	assert.Same(t, c, m.CurrentScene())
	assert.Equal(t, 95.0, m.Frame())

	assert.Equal(t, []string{"b", "a", "c"}, changes)
}

func TestSeekIsDeterministic(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(4, util.NewNoOpLogger())
	var times []float64
	s := scene.New("clock", m, util.NewNoOpLogger(), func(s *scene.GeneratorScene) gen.Task {
		return func(co *gen.Co) error {
			for i := 0; i < 20; i++ {
				times = append(times, s.Thread().Time())
				co.Suspend()
			}
			return nil
		}
	})
	setup(t, m, s)

	times = nil
	_, err := m.Seek(ctx, 12)
	require.NoError(t, err)
	first := append([]float64(nil), times...)
	require.Len(t, first, 12)
	assert.Equal(t, 3.0, first[11])

	_, err = m.Seek(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, m.Reset(ctx))
	times = nil
	_, err = m.Seek(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, first, times)
}

func TestGoToSlide(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	m.SetState(playback.Presenting)
	s := slides(m)
	setup(t, m, s)
	assert.Equal(t, playback.Presenting, m.State())

	list := m.Slides()
	require.Len(t, list, 2)
	assert.Equal(t, "main:A", list[0].ID)
	assert.Equal(t, 10.0, list[0].Time)
	assert.Equal(t, "main:B", list[1].ID)
	assert.Equal(t, 40.0, list[1].Time)

	var reached []string
	m.OnSlideChanged(func(slide *playback.Slide) { reached = append(reached, slide.ID) })

	require.NoError(t, m.GoTo(ctx, "main:B"))
	assert.Equal(t, 40.0, m.Frame())
	assert.True(t, s.Slides().IsWaitingFor("main:B"))
	assert.Equal(t, []string{"main:A", "main:B"}, reached)

	for i := 0; i < 3; i++ {
		_, err := m.Progress(ctx)
		require.NoError(t, err)
		assert.True(t, s.Slides().IsWaitingFor("main:B"), "waits until resumed")
	}

	s.Slides().Resume()
	_, err := m.Progress(ctx)
	require.NoError(t, err)
	assert.False(t, s.Slides().IsWaiting())
}

func TestSlideNavigation(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	m.SetState(playback.Presenting)
	s := slides(m)
	setup(t, m, s)

	require.NoError(t, m.GoBack(ctx), "no slide reached yet goes to the first")
	assert.Equal(t, 10.0, m.Frame())
	assert.True(t, s.Slides().IsWaitingFor("main:A"))

	require.NoError(t, m.Reset(ctx))
	require.NoError(t, m.GoForward(ctx))
	assert.Equal(t, 10.0, m.Frame())
	assert.True(t, s.Slides().IsWaitingFor("main:A"))

	require.NoError(t, m.GoForward(ctx))
	assert.Equal(t, 40.0, m.Frame())
	assert.True(t, s.Slides().IsWaitingFor("main:B"))

	require.NoError(t, m.GoForward(ctx), "no slide after the last one")
	assert.Equal(t, 40.0, m.Frame())

	require.NoError(t, m.GoBack(ctx))
	assert.Equal(t, 10.0, m.Frame())
	assert.True(t, s.Slides().IsWaitingFor("main:A"))

	require.NoError(t, m.GoBack(ctx), "no slide before the first one")
	assert.Equal(t, 10.0, m.Frame())
	assert.True(t, s.Slides().IsWaitingFor("main:A"))

	require.NoError(t, m.GoTo(ctx, "main:missing"))
	assert.Equal(t, 10.0, m.Frame())
}

func TestTransitionOverlap(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	a := scene.New("a", m, util.NewNoOpLogger(), func(s *scene.GeneratorScene) gen.Task {
		return func(co *gen.Co) error {
			if err := suspends(100)(co); err != nil {
				return err
			}
			s.FinishScene()
			return suspends(15)(co)
		}
	})
	b := scene.New("b", m, util.NewNoOpLogger(), func(s *scene.GeneratorScene) gen.Task {
		return func(co *gen.Co) error {
			end := s.UseTransition(func(current, previous, out *stream.Frame) {})
			if err := suspends(15)(co); err != nil {
				return err
			}
			end()
			return suspends(10)(co)
		}
	})
	setup(t, m, a, b)
	assert.Equal(t, 100.0, b.FirstFrame())
	assert.Equal(t, 15.0, b.Cache().TransitionDuration)

	var overlap []float64
	for i := 0; i < 1000; i++ {
		finished, err := m.Progress(ctx)
		require.NoError(t, err)
		if m.PreviousScene() != nil {
			assert.Same(t, a, m.PreviousScene())
			assert.Same(t, b, m.CurrentScene())
			overlap = append(overlap, m.Frame())
		}
		if finished {
			break
		}
	}
	require.Len(t, overlap, 15)
	assert.Equal(t, 100.0, overlap[0])
	assert.Equal(t, 114.0, overlap[len(overlap)-1])
	assert.Nil(t, m.PreviousScene())
	assert.Equal(t, m.Duration(), m.Frame())
}

func TestRecalculateRestoresSpeedOnFailure(t *testing.T) {
	boom := errors.New("boom")
	m := playback.NewManager(30, util.NewNoOpLogger())
	m.SetSpeed(2)
	m.SetState(playback.Presenting)
	broken := scene.New("broken", m, util.NewNoOpLogger(), func(*scene.GeneratorScene) gen.Task {
		return func(co *gen.Co) error {
			co.Suspend()
			return boom
		}
	})
	require.NoError(t, m.Setup([]scene.Scene{broken}))

	err := m.Recalculate(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2.0, m.Speed())
	assert.Equal(t, playback.Presenting, m.State())
}

func TestNoScenes(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	assert.ErrorIs(t, m.Setup(nil), playback.ErrNoScenes)
	assert.ErrorIs(t, m.Recalculate(ctx), playback.ErrNoScenes)
	_, err := m.Progress(ctx)
	assert.ErrorIs(t, err, playback.ErrNoScenes)
	_, err = m.Seek(ctx, 10)
	assert.ErrorIs(t, err, playback.ErrNoScenes)
	assert.NoError(t, m.GoBack(ctx))
	assert.NoError(t, m.GoTo(ctx, "x:y"))
	assert.Nil(t, m.FindBestScene(0))
}

func TestReloadReturnsToFrame(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	setup(t, m, counted(m, "old", 30))
	_, err := m.Seek(ctx, 20)
	require.NoError(t, err)

	short, long := counted(m, "short", 10), counted(m, "long", 40)
	require.NoError(t, m.Reload(ctx, []scene.Scene{short, long}))
	assert.Equal(t, 50.0, m.Duration())
	assert.Equal(t, 20.0, m.Frame())
	assert.Same(t, long, m.CurrentScene())
}

func TestReloadClosesReplacedScenes(t *testing.T) {
	ctx := context.Background()
	base := runtime.NumGoroutine()

	m := playback.NewManager(30, util.NewNoOpLogger())
	setup(t, m, counted(m, "a", 30), counted(m, "b", 30))
	_, err := m.Seek(ctx, 20)
	require.NoError(t, err)
	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		require.NoError(t, m.Reload(ctx, []scene.Scene{counted(m, "a", 30), counted(m, "b", 30)}))
		require.Equal(t, 20.0, m.Frame())
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond, "goroutines before=%d after=%d", before, runtime.NumGoroutine())

	m.Close()
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= base
	}, time.Second, 10*time.Millisecond)
	_, err = m.Progress(ctx)
	assert.ErrorIs(t, err, scene.ErrNotReset)
}

func TestSetupKeepsScenesItIsGivenAgain(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	a := counted(m, "a", 30)
	setup(t, m, a)
	_, err := m.Seek(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, m.Setup([]scene.Scene{a, counted(m, "b", 5)}))
	_, err = m.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11.0, m.Frame())
}

func TestSlideChangeFiresAgainAfterRewind(t *testing.T) {
	ctx := context.Background()
	m := playback.NewManager(30, util.NewNoOpLogger())
	m.SetState(playback.Playing)
	setup(t, m, slides(m))

	var reached []string
	m.OnSlideChanged(func(slide *playback.Slide) { reached = append(reached, slide.ID) })

	_, err := m.Seek(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"main:A"}, reached)

	_, err = m.Seek(ctx, 5)
	require.NoError(t, err)
	_, err = m.Seek(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"main:A", "main:A"}, reached)

	require.NoError(t, m.Reset(ctx))
	_, err = m.Seek(ctx, 45)
	require.NoError(t, err)
	assert.Equal(t, []string{"main:A", "main:A", "main:A", "main:B"}, reached)
}

func TestStatusConversions(t *testing.T) {
	m := playback.NewManager(4, util.NewNoOpLogger())
	assert.Equal(t, 0.25, m.DeltaTime())
	m.SetSpeed(2)
	assert.Equal(t, 0.5, m.DeltaTime())
	assert.Equal(t, 0.25, m.FrameDuration())
	assert.Equal(t, 2.5, m.FramesToSeconds(10))
	assert.Equal(t, 3.0, m.SecondsToFrames(0.6))
	assert.False(t, m.Presenting())
	m.SetState(playback.Presenting)
	assert.True(t, m.Presenting())
	assert.Equal(t, "presenting", m.State().String())
	assert.Equal(t, "unknown", playback.State(42).String())
}

func TestTimelineRoundTrip(t *testing.T) {
	m := playback.NewManager(4, util.NewNoOpLogger())
	setup(t, m, slides(m), counted(m, "outro", 8))

	timeline := m.Timeline()
	assert.Equal(t, 54.0, timeline.Duration)
	assert.Equal(t, 13.5, timeline.Seconds)
	require.Len(t, timeline.Scenes, 2)
	assert.Equal(t, playback.TimelineScene{Name: "outro", FirstFrame: 46, LastFrame: 54}, timeline.Scenes[1])
	require.Len(t, timeline.Slides, 2)
	assert.Equal(t, playback.TimelineSlide{ID: "main:B", Scene: "main", Name: "B", Frame: 40, Seconds: 10}, timeline.Slides[1])

	var buf bytes.Buffer
	require.NoError(t, playback.EncodeTimeline(&buf, timeline))
	assert.Contains(t, buf.String(), "first_frame: 46")

	path := filepath.Join(t.TempDir(), "timeline.yaml")
	require.NoError(t, m.WriteTimeline(path))
	read, err := playback.ReadTimeline(path)
	require.NoError(t, err)
	assert.Equal(t, timeline, *read)
}
