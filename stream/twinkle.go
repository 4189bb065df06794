package stream

import (
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/signals"
	"github.com/matt-g-everett/ledmotion/util"
)

const twinkleLutLength = 64

type twinkleParticle struct {
	pixel int
	phase float64
}

// A Twinkle is a Layer that twinkles random particles over a background.
// Each particle pulses along an eased brightness curve; Time drives the
// pulse and is usually bound to a thread's clock.
type Twinkle struct {
	Fore *signals.Signal[colorful.Color]
	Back *signals.Signal[colorful.Color]
	// Rate is the number of pulses per second.
	Rate *signals.Signal[float64]
	Time *signals.Signal[float64]

	lut       []float64
	particles []twinkleParticle
}

// NewTwinkle creates a Twinkle with numParticles particles scattered over
// numPixels pixels by rng.
func NewTwinkle(rng *rand.Rand, numPixels, numParticles int, fore, back colorful.Color) *Twinkle {
	t := new(Twinkle)
	t.Fore = signals.NewColor(fore, signals.WithOwner[colorful.Color](t))
	t.Back = signals.NewColor(back, signals.WithOwner[colorful.Color](t))
	t.Rate = signals.Number(0.5, signals.WithOwner[float64](t))
	t.Time = signals.Number(0, signals.WithOwner[float64](t))
	t.lut = util.GenerateLut(twinkleLutLength)

	taken := make(map[int]bool)
	for i := 0; i < numParticles && len(taken) < numPixels; i++ {
		p := rng.Intn(numPixels)
		if taken[p] {
			i--
			continue
		}
		taken[p] = true
		t.particles = append(t.particles, twinkleParticle{pixel: p, phase: rng.Float64()})
	}
	return t
}

// Brightness returns the pulse level in [0, 1] of a particle with the given
// phase at the current time.
func (t *Twinkle) Brightness(phase float64) float64 {
	pos := t.Time.Get()*t.Rate.Get() + phase
	pos -= math.Floor(pos)
	return t.lut[int(pos*float64(len(t.lut)))%len(t.lut)]
}

// Draw paints the background and the particles.
func (t *Twinkle) Draw(f *Frame) {
	back := t.Back.Get()
	fore := t.Fore.Get()
	f.Fill(back)
	for _, p := range t.particles {
		if p.pixel < f.Len() {
			f.pixels[p.pixel] = back.BlendHcl(fore, t.Brightness(p.phase)).Clamped()
		}
	}
}
