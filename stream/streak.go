package stream

import (
	"math"

	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/signals"
)

// A Streak is a Layer that draws a short bright band blended over what is
// below it. Position moves the band, Gain fades it.
type Streak struct {
	Colour   *signals.Signal[colorful.Color]
	Position *signals.Signal[float64]
	Length   *signals.Signal[float64]
	Gain     *signals.Signal[float64]
}

// NewStreak creates a streak of the given colour and length at position 0.
func NewStreak(colour colorful.Color, length float64) *Streak {
	s := new(Streak)
	s.Colour = signals.NewColor(colour, signals.WithOwner[colorful.Color](s))
	s.Position = signals.Number(0, signals.WithOwner[float64](s))
	s.Length = signals.Number(length, signals.WithOwner[float64](s))
	s.Gain = signals.Number(1, signals.WithOwner[float64](s))
	return s
}

// Draw blends the streak into f. Both ends are feathered with an
// in-out quad so the band has no hard edges.
func (s *Streak) Draw(f *Frame) {
	gain := math.Max(0, math.Min(1, s.Gain.Get()))
	length := s.Length.Get()
	if gain == 0 || length <= 0 {
		return
	}
	colour := s.Colour.Get()
	current := s.Position.Get()
	start := int(math.Ceil(current))
	end := int(math.Floor(current + length))
	for i := max(start, 0); i <= end && i < f.Len(); i++ {
		edge := math.Min(float64(i)-current, current+length-float64(i)) / (length / 2)
		bias := gain * ease.InOutQuad(math.Max(0, math.Min(1, edge)))
		f.pixels[i] = f.pixels[i].BlendHcl(colour, bias).Clamped()
	}
}
