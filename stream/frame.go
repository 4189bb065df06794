package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPixels is the length of the strip on an ledrx device.
const DefaultPixels = 500

// ErrFrameSize is returned when two frames of different lengths are mixed.
var ErrFrameSize = errors.New("stream: frame sizes differ")

// Frame represents a frame of RGB pixels to display on an ledrx device.
type Frame struct {
	pixels []colorful.Color
}

// NewFrame creates a black frame of n pixels.
func NewFrame(n int) *Frame {
	f := new(Frame)
	f.pixels = make([]colorful.Color, n)
	return f
}

// Len returns the number of pixels.
func (f *Frame) Len() int {
	return len(f.pixels)
}

// At returns pixel i.
func (f *Frame) At(i int) colorful.Color {
	return f.pixels[i]
}

// Set sets pixel i. Out of range indices are ignored so layers can draw
// shapes that run off the strip.
func (f *Frame) Set(i int, c colorful.Color) {
	if i >= 0 && i < len(f.pixels) {
		f.pixels[i] = c
	}
}

// Fill paints every pixel with c.
func (f *Frame) Fill(c colorful.Color) {
	for i := range f.pixels {
		f.pixels[i] = c
	}
}

// Clone returns a copy of f.
func (f *Frame) Clone() *Frame {
	out := NewFrame(len(f.pixels))
	copy(out.pixels, f.pixels)
	return out
}

// CopyFrom overwrites f with the pixels of src.
func (f *Frame) CopyFrom(src *Frame) error {
	if len(src.pixels) != len(f.pixels) {
		return fmt.Errorf("%w: %d != %d", ErrFrameSize, len(src.pixels), len(f.pixels))
	}
	copy(f.pixels, src.pixels)
	return nil
}

// Blend writes the HCL blend of a and b at transitionPoint into f.
func (f *Frame) Blend(a, b *Frame, transitionPoint float64) error {
	if len(a.pixels) != len(f.pixels) || len(b.pixels) != len(f.pixels) {
		return ErrFrameSize
	}
	t := math.Max(0, math.Min(1, transitionPoint))
	for i := range f.pixels {
		f.pixels[i] = a.pixels[i].BlendHcl(b.pixels[i], t).Clamped()
	}
	return nil
}

// InterpolateFrame merges two frames into a new one.
func (f *Frame) InterpolateFrame(f2 *Frame, transitionPoint float64) (*Frame, error) {
	out := NewFrame(len(f.pixels))
	if err := out.Blend(f, f2, transitionPoint); err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalBinary converts a Frame into binary data: a little endian pixel
// count followed by one RGB triplet per pixel.
func (f *Frame) MarshalBinary() (data []byte, err error) {
	if len(f.pixels) > math.MaxUint16 {
		return nil, fmt.Errorf("stream: frame of %d pixels does not fit the wire format", len(f.pixels))
	}
	data = make([]byte, 2, (len(f.pixels)*3)+2)
	binary.LittleEndian.PutUint16(data, uint16(len(f.pixels)))
	for _, p := range f.pixels {
		r, g, b := p.Clamped().RGB255()
		data = append(data, r, g, b)
	}

	return data, nil
}

// UnmarshalBinary decodes the format written by MarshalBinary.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return errors.New("stream: frame header missing")
	}
	n := int(binary.LittleEndian.Uint16(data))
	if len(data) != 2+n*3 {
		return fmt.Errorf("stream: frame of %d pixels needs %d bytes, got %d", n, 2+n*3, len(data))
	}
	f.pixels = make([]colorful.Color, n)
	for i := 0; i < n; i++ {
		o := 2 + i*3
		f.pixels[i] = colorful.Color{
			R: float64(data[o]) / 255,
			G: float64(data[o+1]) / 255,
			B: float64(data[o+2]) / 255,
		}
	}
	return nil
}
