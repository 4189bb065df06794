package stream

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/signals"
)

// Fill is a Layer that paints a solid colour, optionally only over
// [Start, End) of the strip.
type Fill struct {
	Color *signals.Signal[colorful.Color]
	Start *signals.Signal[float64]
	End   *signals.Signal[float64]
}

// NewFill creates a full-strip fill of c.
func NewFill(c colorful.Color) *Fill {
	fl := new(Fill)
	fl.Color = signals.NewColor(c, signals.WithOwner[colorful.Color](fl))
	fl.Start = signals.Number(0, signals.WithOwner[float64](fl))
	fl.End = signals.Number(-1, signals.WithOwner[float64](fl))
	return fl
}

// Draw paints the fill. A negative End means the end of the strip.
func (fl *Fill) Draw(f *Frame) {
	c := fl.Color.Get()
	start := int(fl.Start.Get())
	end := int(fl.End.Get())
	if end < 0 || end > f.Len() {
		end = f.Len()
	}
	for i := max(start, 0); i < end; i++ {
		f.pixels[i] = c
	}
}
