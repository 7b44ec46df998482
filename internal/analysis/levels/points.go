package levels

import (
	"sort"

	"trendscope/internal/analysis/extrema"
)

// FindPoints returns the lowest close (support candidate) and highest close
// (resistance candidate) of every window over closes. Ties resolve to the
// earliest index. Both lists are ordered by index.
func FindPoints(closes []float64, window int, variant Variant) (supports, resistances []extrema.Point) {
	n := len(closes)
	if n == 0 || window < 1 {
		return nil, nil
	}
	if window > n {
		window = n
	}

	switch variant {
	case VariantConvolution:
		seenLow := make(map[int]bool)
		seenHigh := make(map[int]bool)
		for start := 0; start+window <= n; start++ {
			lo, hi := windowExtremes(closes, start, start+window)
			if !seenLow[lo] {
				seenLow[lo] = true
				supports = append(supports, extrema.Point{Index: lo, Value: closes[lo]})
			}
			if !seenHigh[hi] {
				seenHigh[hi] = true
				resistances = append(resistances, extrema.Point{Index: hi, Value: closes[hi]})
			}
		}
		sortPoints(supports)
		sortPoints(resistances)
	default:
		for start := 0; start < n; start += window {
			end := start + window
			if end > n {
				end = n
			}
			lo, hi := windowExtremes(closes, start, end)
			supports = append(supports, extrema.Point{Index: lo, Value: closes[lo]})
			resistances = append(resistances, extrema.Point{Index: hi, Value: closes[hi]})
		}
	}
	return supports, resistances
}

// windowExtremes returns the indexes of the min and max of closes[start:end].
func windowExtremes(closes []float64, start, end int) (lo, hi int) {
	lo, hi = start, start
	for i := start + 1; i < end; i++ {
		if closes[i] < closes[lo] {
			lo = i
		}
		if closes[i] > closes[hi] {
			hi = i
		}
	}
	return lo, hi
}

func sortPoints(points []extrema.Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Index < points[j].Index
	})
}
