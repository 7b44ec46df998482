package extrema

import (
	"math"
)

// DedupPolicy selects how near-duplicate extrema are collapsed.
type DedupPolicy string

const (
	// DedupThreshold drops points that share an index with the last kept
	// point or whose value is within a relative threshold of their list
	// neighbour.
	DedupThreshold DedupPolicy = "threshold"
	// DedupPoint only drops repeated indexes.
	DedupPoint DedupPolicy = "point"
)

// Valid reports whether p is a known policy.
func (p DedupPolicy) Valid() bool {
	return p == DedupThreshold || p == DedupPoint
}

// DedupOptions configures Dedupe.
type DedupOptions struct {
	Policy    DedupPolicy
	Threshold float64 // relative, 0.01 = 1%

	// CompareToKept measures the value difference against the last kept
	// point instead of the previous list entry. The list-neighbour
	// comparison can keep a point whose nearest kept neighbour is within
	// the threshold, which makes a second pass remove more points.
	CompareToKept bool
}

// DefaultDedupOptions returns the threshold policy at 1%.
func DefaultDedupOptions() DedupOptions {
	return DedupOptions{
		Policy:    DedupThreshold,
		Threshold: 0.01,
	}
}

// Dedupe filters the maxima and minima lists independently, walking each in
// its existing order.
func Dedupe(set Set, opts DedupOptions) Set {
	return Set{
		Max: dedupeList(set.Max, opts),
		Min: dedupeList(set.Min, opts),
	}
}

func dedupeList(points []Point, opts DedupOptions) []Point {
	kept := make([]Point, 0, len(points))
	for i, p := range points {
		if i == 0 {
			kept = append(kept, p)
			continue
		}
		switch opts.Policy {
		case DedupPoint:
			if p.Index != points[i-1].Index {
				kept = append(kept, p)
			}
		default:
			last := kept[len(kept)-1]
			if p.Index == last.Index {
				continue
			}
			ref := points[i-1]
			if opts.CompareToKept {
				ref = last
			}
			if relativeDiff(p.Value, ref.Value) > opts.Threshold {
				kept = append(kept, p)
			}
		}
	}
	return kept
}

func relativeDiff(v, ref float64) float64 {
	if ref == 0 {
		if v == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(v-ref) / math.Abs(ref)
}
