package stream

import (
	"math"

	"github.com/matt-g-everett/ledmotion/signals"
)

// A GradientTrail is a Layer that lays a gradient along the strip,
// repeating every TrailLength pixels. Tweening Offset scrolls it.
type GradientTrail struct {
	Gradient    GradientTable
	TrailLength int

	Offset     *signals.Signal[float64]
	Saturation *signals.Signal[float64]
	Luminance  *signals.Signal[float64]
}

// NewGradientTrail creates an instance of a GradientTrail object.
func NewGradientTrail(gradient GradientTable, trailLength int) *GradientTrail {
	g := new(GradientTrail)
	g.Gradient = gradient
	g.TrailLength = trailLength
	g.Offset = signals.Number(0, signals.WithOwner[float64](g))
	g.Saturation = signals.Number(1.0, signals.WithOwner[float64](g))
	g.Luminance = signals.Number(0.05, signals.WithOwner[float64](g))
	return g
}

// Draw paints the gradient.
func (g *GradientTrail) Draw(f *Frame) {
	if g.TrailLength <= 0 {
		return
	}
	saturation := g.Saturation.Get()
	luminance := g.Luminance.Get()
	trail := float64(g.TrailLength)
	current := math.Mod(g.Offset.Get(), trail)
	if current < 0 {
		current += trail
	}
	numPixels := f.Len()
	for i := 0; i < numPixels; i++ {
		t := math.Mod(float64(i+numPixels)-current+trail, trail) / trail
		f.pixels[i] = g.Gradient.GetColor(t, saturation, luminance)
	}
}
