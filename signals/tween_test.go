package signals_test

import (
	"testing"

	"github.com/fogleman/ease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/signals"
	"github.com/matt-g-everett/ledmotion/threads"
)

func play(t *testing.T, fps float64, task gen.Task, onFrame func()) int {
	t.Helper()
	r := threads.New(func() gen.Task { return task }, threads.FixedTiming{FPS: fps}, nil)
	frames := 0
	for i := 0; i < 10000; i++ {
		step, err := r.Next(nil)
		require.NoError(t, err)
		if step.Kind == gen.Done {
			return frames
		}
		frames++
		if onFrame != nil {
			onFrame()
		}
	}
	t.Fatal("tween did not finish")
	return frames
}

func TestTweenIsMonotonicAndLandsOnTarget(t *testing.T) {
	s := signals.Number(0)
	var seen []float64
	frames := play(t, 32, func(co *gen.Co) error {
		return s.Tween(10, 1).Play(co)
	}, func() { seen = append(seen, s.Get()) })

	assert.Equal(t, 32, frames)
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 10.0, s.Get())
	assert.False(t, s.IsTweening())
}

func TestTweenMarksTweening(t *testing.T) {
	s := signals.Number(0)
	tweening := false
	play(t, 4, func(co *gen.Co) error {
		return s.TweenWith(1, 1, ease.Linear, nil).Play(co)
	}, func() { tweening = tweening || s.IsTweening() })
	assert.True(t, tweening)
}

func TestChainSteps(t *testing.T) {
	s := signals.Number(2)
	var log []float64
	play(t, 4, func(co *gen.Co) error {
		return s.TweenWith(6, 0.5, ease.Linear, nil).
			Do(func() { log = append(log, s.Get()) }).
			Wait(0.5).
			Back(0.5).
			Do(func() { log = append(log, s.Get()) }).
			Play(co)
	}, nil)
	assert.Equal(t, []float64{6, 2}, log)
}

func TestLinearTweenValues(t *testing.T) {
	s := signals.Number(0)
	var seen []float64
	play(t, 4, func(co *gen.Co) error {
		return s.TweenWith(4, 1, ease.Linear, nil).Play(co)
	}, func() { seen = append(seen, s.Get()) })
	assert.Equal(t, []float64{0, 1, 2, 3}, seen)
	assert.Equal(t, 4.0, s.Get())
}

func TestComputedFollowsTween(t *testing.T) {
	s := signals.Number(0)
	double := signals.NewFunc(func() float64 { return s.Get() * 2 })
	play(t, 4, func(co *gen.Co) error {
		return s.TweenWith(3, 1, ease.Linear, nil).Play(co)
	}, nil)
	assert.Equal(t, 6.0, double.Get())
}

func TestVectorTween(t *testing.T) {
	v := signals.NewVector2(signals.Vector2{})
	play(t, 4, func(co *gen.Co) error {
		return v.TweenWith(signals.Vector2{X: 4, Y: -4}, 1, ease.Linear, nil).Play(co)
	}, nil)
	assert.Equal(t, signals.Vector2{X: 4, Y: -4}, v.Get())
	assert.Equal(t, 4.0, v.X.Get())
}

func TestThreadTimeIsASignal(t *testing.T) {
	var th *threads.Thread
	var seconds *signals.Signal[float64]
	play(t, 4, func(co *gen.Co) error {
		th = threads.From(co)
		seconds = signals.NewFunc(func() float64 { return th.Time() })
		for i := 0; i < 2; i++ {
			co.Suspend()
		}
		return nil
	}, nil)
	assert.Equal(t, 0.5, seconds.Get())
}
