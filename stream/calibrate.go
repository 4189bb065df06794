package stream

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledmotion/signals"
)

// Calibrate is a Layer showing the binary pattern used to locate LEDs with
// a camera: with Bit set to b, pixel i is lit when bit b of i is clear.
// Stepping Bit from BitsFor(n)-1 down to 0 gives every pixel a unique
// on/off sequence.
type Calibrate struct {
	Bit *signals.Signal[int]
	On  colorful.Color
	Off colorful.Color
}

// NewCalibrate creates a calibration layer starting at the highest bit
// needed for numPixels.
func NewCalibrate(numPixels int) *Calibrate {
	c := new(Calibrate)
	c.Bit = signals.New(BitsFor(numPixels)-1, signals.WithOwner[int](c), signals.WithEquality[int](signals.Equal[int]))
	c.On, _ = colorful.Hex("#404040")
	c.Off, _ = colorful.Hex("#000000")
	return c
}

// BitsFor returns how many bits are needed to address n pixels.
func BitsFor(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

// Draw paints the pattern.
func (c *Calibrate) Draw(f *Frame) {
	bit := max(c.Bit.Get(), 0)
	for i := 0; i < f.Len(); i++ {
		if (i>>bit)%2 < 1 {
			f.pixels[i] = c.On
		} else {
			f.pixels[i] = c.Off
		}
	}
}
