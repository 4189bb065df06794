// Package stripe draws endless bands of colour scrolling along the strip.
package stripe

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// Stripe is one band of colour.
type Stripe struct {
	Colour colorful.Color
	Length int32
}

// RandomStripeGenerator creates stripes of random length, picking colours
// from a palette without repeating the previous one.
type RandomStripeGenerator struct {
	rng       *rand.Rand
	palette   []colorful.Color
	current   int
	stripeMin int32
	stripeMax int32
}

// NewRandomStripeGenerator creates a generator. A nil palette picks random
// hues instead.
func NewRandomStripeGenerator(rng *rand.Rand, palette []colorful.Color) *RandomStripeGenerator {
	g := new(RandomStripeGenerator)
	g.rng = rng
	g.palette = palette
	g.current = -1
	g.stripeMax = 400
	g.stripeMin = 150
	return g
}

// SetLengths changes the range stripe lengths are drawn from.
func (g *RandomStripeGenerator) SetLengths(min, max int32) {
	if max <= min {
		max = min + 1
	}
	g.stripeMin, g.stripeMax = min, max
}

func (g *RandomStripeGenerator) CreateStripe() Stripe {
	var colour colorful.Color
	switch len(g.palette) {
	case 0:
		colour = colorful.Hsl(g.rng.Float64()*360.0, 1.0, 0.2)
	case 1:
		colour = g.palette[0]
	default:
		// Choose a new colour that's different from the previous colour
		for {
			newCurrent := g.rng.Intn(len(g.palette))
			if newCurrent != g.current {
				g.current = newCurrent
				break
			}
		}
		colour = g.palette[g.current]
	}

	stripeLength := g.rng.Int31n(g.stripeMax-g.stripeMin) + g.stripeMin
	return Stripe{colour, stripeLength}
}
