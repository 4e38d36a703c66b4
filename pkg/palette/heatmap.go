package palette

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/eqgraph/pkg/errors"
)

// Stop anchors a color at a position on a heat ramp.
type Stop struct {
	At    float64
	Color Color
}

// DefaultHeatStops runs black → purple → blue → cyan → yellow → red → pink → white.
var DefaultHeatStops = []Stop{
	{0, RGB(0, 0, 0)},
	{1.5, RGB(64, 0, 96)},
	{2, RGB(0, 0, 192)},
	{3.0, RGB(0, 255, 255)},
	{3.3, RGB(255, 255, 0)},
	{4.2, RGB(255, 0, 0)},
	{4.5, RGB(255, 128, 128)},
	{5.5, RGB(255, 255, 255)},
	{6, RGB(255, 255, 255)},
}

// Heatmap samples n evenly spaced colors over [0, last stop] and returns
// them as a palette indexed 0..n-1. Between two stops each channel is
// interpolated linearly and truncated toward zero; past the last stop the
// final segment is extrapolated.
func Heatmap(stops []Stop, n int) (Palette, error) {
	if len(stops) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "heatmap needs at least 2 stops, got %d", len(stops))
	}
	if n < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "heatmap needs at least 1 color, got %d", n)
	}

	sorted := slices.SortedFunc(slices.Values(stops), func(a, b Stop) int { return cmp.Compare(a.At, b.At) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].At == sorted[i-1].At {
			return nil, errors.New(errors.ErrCodeInvalidInput, "heatmap has duplicate stop at %g", sorted[i].At)
		}
	}

	top := sorted[len(sorted)-1].At
	p := make(Palette, n)
	for i := 0; i < n; i++ {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1) * top
		}
		p[i] = intensity(sorted, x)
	}
	return p, nil
}

func intensity(stops []Stop, x float64) Color {
	lo, hi := stops[len(stops)-2], stops[len(stops)-1]
	for i := 0; i < len(stops)-1; i++ {
		if stops[i+1].At > x {
			lo, hi = stops[i], stops[i+1]
			break
		}
	}
	t := (x - lo.At) / (hi.At - lo.At)
	channel := func(a, b uint8) uint8 {
		v := math.Trunc(float64(a) + t*(float64(b)-float64(a)))
		return uint8(min(max(v, 0), 255))
	}
	return RGB(
		channel(lo.Color.R(), hi.Color.R()),
		channel(lo.Color.G(), hi.Color.G()),
		channel(lo.Color.B(), hi.Color.B()),
	)
}
