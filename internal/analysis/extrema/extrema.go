// Package extrema finds local peaks and troughs in price signals.
package extrema

import (
	"sort"
)

// Point is a candidate local minimum or maximum on a signal.
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Set holds maxima and minima found on one signal.
type Set struct {
	Max []Point `json:"max"`
	Min []Point `json:"min"`
}

// Len returns the total number of points in the set.
func (s Set) Len() int {
	return len(s.Max) + len(s.Min)
}

// Sorted returns a copy of the set with both lists ordered by index.
func (s Set) Sorted() Set {
	return Set{Max: sortByIndex(s.Max), Min: sortByIndex(s.Min)}
}

// Merge concatenates the maxima and minima of several sets.
func Merge(sets ...Set) Set {
	var out Set
	for _, s := range sets {
		out.Max = append(out.Max, s.Max...)
		out.Min = append(out.Min, s.Min...)
	}
	return out
}

func sortByIndex(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out
}

// direction is the state of the extrema scan.
type direction int

const (
	undetermined direction = iota
	rising
	falling
)

// Find scans signal for direction changes and returns the indexes of local
// maxima and minima, each strictly increasing. A value only flips the
// direction on a strict change, so plateaus never yield duplicate extrema
// and a monotonic signal yields none.
func Find(signal []float64) (maxima, minima []int) {
	dir := undetermined
	for i := 1; i < len(signal); i++ {
		prev, cur := signal[i-1], signal[i]
		switch {
		case cur > prev:
			if dir == falling {
				minima = append(minima, i-1)
			}
			dir = rising
		case cur < prev:
			if dir == rising {
				maxima = append(maxima, i-1)
			}
			dir = falling
		}
	}
	return maxima, minima
}

// Reconstruct maps extrema found on a smoothed signal back onto the original
// signal. Smoothing lags (simple) or spreads (windowed) the signal, so each
// index is replaced by the true extreme of original within the lookback the
// smoothing covered. Ties resolve to the earliest index.
//
// The returned lists keep the input order; use Set.Sorted before relying on
// index order.
func Reconstruct(maxima, minima []int, original []float64, width int, kind SmoothingKind) Set {
	out := Set{
		Max: make([]Point, 0, len(maxima)),
		Min: make([]Point, 0, len(minima)),
	}
	for _, i := range maxima {
		lo, hi := searchBounds(i, len(original), width, kind)
		idx := argExtreme(original, lo, hi, func(a, b float64) bool { return a > b })
		out.Max = append(out.Max, Point{Index: idx, Value: original[idx]})
	}
	for _, i := range minima {
		lo, hi := searchBounds(i, len(original), width, kind)
		idx := argExtreme(original, lo, hi, func(a, b float64) bool { return a < b })
		out.Min = append(out.Min, Point{Index: idx, Value: original[idx]})
	}
	return out
}

// FindOn runs Smooth, Find and Reconstruct for one smoothing width.
func FindOn(original []float64, width int, kind SmoothingKind) Set {
	smoothed := Smooth(original, width, kind)
	maxima, minima := Find(smoothed)
	return Reconstruct(maxima, minima, original, width, kind)
}

// searchBounds returns the inclusive window of the original signal that
// index i on the smoothed signal may have come from.
func searchBounds(i, n, width int, kind SmoothingKind) (int, int) {
	if width <= 1 {
		return i, i
	}
	var lo, hi int
	switch kind {
	case SmoothingWindowed:
		lo, hi = i-width/2, i+width/2
	default:
		lo, hi = i-width, i
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// argExtreme returns the first index in [lo, hi] for which better holds
// against every earlier candidate.
func argExtreme(values []float64, lo, hi int, better func(a, b float64) bool) int {
	idx := lo
	for j := lo + 1; j <= hi; j++ {
		if better(values[j], values[idx]) {
			idx = j
		}
	}
	return idx
}
