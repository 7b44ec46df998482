package extrema

import (
	"github.com/markcheno/go-talib"
)

// SmoothingKind selects how a signal is averaged before extrema detection.
type SmoothingKind string

const (
	// SmoothingSimple is a trailing simple moving average.
	SmoothingSimple SmoothingKind = "simple"
	// SmoothingWindowed is a centred moving average.
	SmoothingWindowed SmoothingKind = "windowed"
)

// Valid reports whether k is a known smoothing kind.
func (k SmoothingKind) Valid() bool {
	return k == SmoothingSimple || k == SmoothingWindowed
}

// Smooth averages signal over width points. Positions the average cannot
// cover repeat the nearest covered value, so the padding stays flat and never
// produces extrema. A width of 1 or less returns a copy of the signal.
func Smooth(signal []float64, width int, kind SmoothingKind) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if width <= 1 || n == 0 {
		copy(out, signal)
		return out
	}
	if n < width {
		var sum float64
		for _, v := range signal {
			sum += v
		}
		for i := range out {
			out[i] = sum / float64(n)
		}
		return out
	}

	sma := talib.Sma(signal, width)

	shift := 0
	if kind == SmoothingWindowed {
		shift = width / 2
	}
	first := width - 1 - shift
	last := n - 1 - shift
	for i := 0; i < n; i++ {
		switch {
		case i < first:
			out[i] = sma[width-1]
		case i > last:
			out[i] = sma[n-1]
		default:
			out[i] = sma[i+shift]
		}
	}
	return out
}
