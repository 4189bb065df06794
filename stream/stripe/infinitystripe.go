package stripe

import (
	"sort"

	"github.com/matt-g-everett/ledmotion/signals"
	"github.com/matt-g-everett/ledmotion/stream"
)

// InfinityStripe is a layer of back to back stripes. Offset is the distance
// in pixels the stripes have travelled; stripes are generated on demand so
// any offset, including one reached by seeking backwards, draws the same.
type InfinityStripe struct {
	Offset *signals.Signal[float64]
	// Adjusted stretches the far end of the strip, which on a cone shaped
	// tree makes the bands look level.
	Adjusted bool

	generator *RandomStripeGenerator
	stripes   []Stripe
	ends      []float64
}

// NewInfinityStripe creates an instance of a InfinityStripe object.
func NewInfinityStripe(generator *RandomStripeGenerator) *InfinityStripe {
	s := new(InfinityStripe)
	s.generator = generator
	s.Offset = signals.Number(0, signals.WithOwner[float64](s))
	return s
}

// stripeAt returns the stripe covering the given distance.
func (s *InfinityStripe) stripeAt(offset float64) Stripe {
	if offset < 0 {
		offset = 0
	}
	for len(s.ends) == 0 || s.ends[len(s.ends)-1] <= offset {
		stripe := s.generator.CreateStripe()
		end := float64(stripe.Length)
		if len(s.ends) > 0 {
			end += s.ends[len(s.ends)-1]
		}
		s.stripes = append(s.stripes, stripe)
		s.ends = append(s.ends, end)
	}
	i := sort.Search(len(s.ends), func(i int) bool { return s.ends[i] > offset })
	return s.stripes[i]
}

// Draw paints the stripes.
func (s *InfinityStripe) Draw(f *stream.Frame) {
	numPixels := f.Len()
	current := s.Offset.Get()
	for i := 0; i < numPixels; i++ {
		adjustmentFactor := 1.0
		if s.Adjusted {
			adjustmentFactor = 1.0 + 1.4*(float64(i)/float64(numPixels))
		}
		f.Set(i, s.stripeAt(adjustmentFactor*float64(i)+current).Colour)
	}
}
