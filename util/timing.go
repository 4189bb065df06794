package util

import (
	"fmt"
	"sort"

	"github.com/fogleman/ease"
)

var timings = map[string]func(float64) float64{
	"linear":       ease.Linear,
	"inQuad":       ease.InQuad,
	"outQuad":      ease.OutQuad,
	"inOutQuad":    ease.InOutQuad,
	"inCubic":      ease.InCubic,
	"outCubic":     ease.OutCubic,
	"inOutCubic":   ease.InOutCubic,
	"inSine":       ease.InSine,
	"outSine":      ease.OutSine,
	"inOutSine":    ease.InOutSine,
	"inExpo":       ease.InExpo,
	"outExpo":      ease.OutExpo,
	"inOutExpo":    ease.InOutExpo,
	"inBack":       ease.InBack,
	"outBack":      ease.OutBack,
	"inOutBack":    ease.InOutBack,
	"outBounce":    ease.OutBounce,
	"inOutBounce":  ease.InOutBounce,
	"outElastic":   ease.OutElastic,
	"inOutElastic": ease.InOutElastic,
}

// Timing looks up a timing function by name, e.g. "inOutCubic".
func Timing(name string) (func(float64) float64, error) {
	fn, ok := timings[name]
	if !ok {
		return nil, fmt.Errorf("unknown timing function %q", name)
	}
	return fn, nil
}

// TimingNames lists the registered timing functions.
func TimingNames() []string {
	names := make([]string, 0, len(timings))
	for name := range timings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
