package util

import (
	"math/rand"

	"github.com/fogleman/ease"
)

// RandomiseSaturation picks a saturation in [min, max).
func RandomiseSaturation(rng *rand.Rand, min float64, max float64) float64 {
	return rng.Float64()*(max-min) + min
}

// GenerateLut builds a symmetric brightness curve of the given length that
// eases in to 1 at the middle and back out to 0.
func GenerateLut(length int) []float64 {
	lut := make([]float64, length)
	half := length / 2
	if half == 0 {
		return lut
	}
	increment := 1.0 / float64(half)
	for i, j := 0, length-1; i < half; i, j = i+1, j-1 {
		value := ease.InOutQuad(float64(i) * increment)
		lut[i] = value
		lut[j] = value
	}
	if length%2 == 1 {
		lut[half] = 1
	}
	return lut
}
