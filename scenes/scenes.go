// Package scenes holds the animations shipped with ledmotion.
package scenes

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/flow"
	"github.com/matt-g-everett/ledmotion/gen"
	"github.com/matt-g-everett/ledmotion/scene"
	"github.com/matt-g-everett/ledmotion/stream"
	"github.com/matt-g-everett/ledmotion/stream/stripe"
	"github.com/matt-g-everett/ledmotion/threads"
	"github.com/matt-g-everett/ledmotion/util"
)

// Options configure the shipped scenes.
type Options struct {
	Pixels int
	Seed   int64
	// Timing names the timing function of the stripe scroll, see
	// util.TimingNames.
	Timing string
}

// Show returns the default show: a rainbow, twinkles, stripes and the
// calibration pattern, each ending in a slide.
func Show(status scene.Status, logger util.Logger, opts Options) ([]scene.Scene, error) {
	if opts.Pixels <= 0 {
		opts.Pixels = stream.DefaultPixels
	}
	if opts.Timing == "" {
		opts.Timing = "inOutSine"
	}
	stripes, err := Stripes(status, logger, opts)
	if err != nil {
		return nil, err
	}
	return []scene.Scene{
		Rainbow(status, logger, opts),
		Sparkle(status, logger, opts),
		stripes,
		Calibration(status, logger, opts),
	}, nil
}

// Rainbow scrolls the rainbow gradient along the strip and speeds it up.
func Rainbow(status scene.Status, logger util.Logger, opts Options) *scene.GeneratorScene {
	return scene.New("rainbow", status, logger, func(s *scene.GeneratorScene) gen.Task {
		trail := stream.NewGradientTrail(stream.Rainbow, 100)
		trail.Luminance.Set(0)
		s.Add(trail)

		return func(co *gen.Co) error {
			if err := trail.Luminance.Tween(0.05, 1).Play(co); err != nil {
				return err
			}
			if err := s.BeginSlide(co, "scroll"); err != nil {
				return err
			}
			err := flow.All(
				trail.Offset.Tween(200, 8).Task(),
				trail.Saturation.Tween(0.6, 4).To(1, 4).Task(),
			)(co)
			if err != nil {
				return err
			}
			s.FinishScene()
			return trail.Luminance.Tween(0, 1).Play(co)
		}
	}, scene.WithSeed(opts.Seed))
}

// Sparkle fades in from the previous scene and twinkles, with streaks
// running down the strip.
func Sparkle(status scene.Status, logger util.Logger, opts Options) *scene.GeneratorScene {
	white := colorful.Color{R: 0.3, G: 0.3, B: 0.3}
	blue := colorful.Color{B: 0.02}

	return scene.New("sparkle", status, logger, func(s *scene.GeneratorScene) gen.Task {
		twinkle := stream.NewTwinkle(s.Rand(), opts.Pixels, opts.Pixels/10, white, blue)
		streak := stream.NewStreak(colorful.Color{R: 0.4, G: 0.2}, 12)
		streak.Gain.Set(0)
		s.Add(twinkle, streak)

		return func(co *gen.Co) error {
			clock := threads.From(co)
			twinkle.Time.SetFunc(func() float64 { return clock.Time() })

			if err := s.FadeTransition(co, 1); err != nil {
				return err
			}
			if err := s.BeginSlide(co, "twinkle"); err != nil {
				return err
			}

			length := float64(opts.Pixels)
			run := func(int) gen.Task {
				return func(co *gen.Co) error {
					streak.Position.Set(-streak.Length.Get())
					streak.Gain.Set(1)
					if err := streak.Position.Tween(length, 2).Play(co); err != nil {
						return err
					}
					streak.Gain.Set(0)
					return flow.WaitFor(co, 0.5)
				}
			}
			err := flow.All(
				flow.Loop(3, run),
				twinkle.Rate.Tween(2, 5).Back(2).Task(),
			)(co)
			if err != nil {
				return err
			}

			if err := s.BeginSlide(co, "calm"); err != nil {
				return err
			}
			s.FinishScene()
			return twinkle.Fore.Tween(blue, 1).Play(co)
		}
	}, scene.WithSeed(opts.Seed))
}

// Stripes scrolls random stripes along the strip.
func Stripes(status scene.Status, logger util.Logger, opts Options) (*scene.GeneratorScene, error) {
	timing, err := util.Timing(opts.Timing)
	if err != nil {
		return nil, err
	}
	palette := []colorful.Color{
		{R: 0.2},
		{G: 0.2},
		{R: 0.15, G: 0.1},
		{B: 0.2},
	}

	return scene.New("stripes", status, logger, func(s *scene.GeneratorScene) gen.Task {
		generator := stripe.NewRandomStripeGenerator(s.Rand(), palette)
		generator.SetLengths(20, 60)
		stripes := stripe.NewInfinityStripe(generator)
		stripes.Adjusted = true
		s.Add(stripes)

		return func(co *gen.Co) error {
			if err := s.FadeTransition(co, 0.5); err != nil {
				return err
			}
			for i := 1; i <= 3; i++ {
				if err := s.BeginSlide(co, fmt.Sprintf("stripes-%d", i)); err != nil {
					return err
				}
				target := stripes.Offset.Get() + 300
				if err := stripes.Offset.TweenWith(target, 3, timing, nil).Play(co); err != nil {
					return err
				}
			}
			return nil
		}
	}, scene.WithSeed(opts.Seed)), nil
}

// Calibration steps through the bits of every pixel index, one slide per
// bit, so a camera can locate each LED.
func Calibration(status scene.Status, logger util.Logger, opts Options) *scene.GeneratorScene {
	return scene.New("calibration", status, logger, func(s *scene.GeneratorScene) gen.Task {
		calibrate := stream.NewCalibrate(opts.Pixels)
		s.Add(calibrate)

		return func(co *gen.Co) error {
			for bit := stream.BitsFor(opts.Pixels) - 1; bit >= 0; bit-- {
				calibrate.Bit.Set(bit)
				if err := s.BeginSlide(co, fmt.Sprintf("bit-%d", bit)); err != nil {
					return err
				}
				if err := flow.WaitFor(co, 1); err != nil {
					return err
				}
			}
			return nil
		}
	}, scene.WithSeed(opts.Seed))
}
