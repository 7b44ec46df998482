package trendlines

import (
	"math"
	"sort"

	"trendscope/internal/analysis/extrema"
	"trendscope/internal/analysis/regression"
)

// merged is a line built from one group of near-duplicate candidates.
type merged struct {
	Line    regression.Line
	Angle   float64
	Term    Term
	Periods []int
	Start   int
	End     int
	Near    []int
	Anchors []extrema.Point
	Members int
}

type angledCandidate struct {
	Candidate
	angle float64
}

// aspectRatio scales slopes so that one unit of price range spans as much as
// the whole index range, the proportions of a chart of the series.
func aspectRatio(closes []float64) float64 {
	if len(closes) == 0 {
		return 1
	}
	lo, hi := closes[0], closes[0]
	for _, c := range closes[1:] {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	if hi == lo {
		return 1
	}
	return float64(len(closes)) / (hi - lo)
}

// lineAngle returns the visual angle of a slope in degrees.
func lineAngle(slope, aspect float64) float64 {
	return math.Atan(slope*aspect) * 180 / math.Pi
}

// consolidate merges candidates that would draw as the same line. Candidates
// are sorted by angle and grouped greedily: a candidate joins the current
// group while its angle is within the angle threshold of the group's first
// member and its intercept is near the first member's. Each group becomes
// one averaged line, which survives only if enough of its span stays close
// to price.
func consolidate(closes []float64, candidates []Candidate, cfg Config) []merged {
	if len(candidates) == 0 {
		return nil
	}
	aspect := aspectRatio(closes)

	sorted := make([]angledCandidate, len(candidates))
	for i, c := range candidates {
		sorted[i] = angledCandidate{Candidate: c, angle: lineAngle(c.Line.Slope, aspect)}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].angle < sorted[j].angle
	})

	var out []merged
	for i := 0; i < len(sorted); {
		base := sorted[i]
		j := i + 1
		for j < len(sorted) &&
			math.Abs(sorted[j].angle-base.angle) <= cfg.AngleThreshold &&
			interceptNear(base.Line.Intercept, sorted[j].Line.Intercept, cfg.InterceptThreshold) {
			j++
		}
		if m, ok := mergeGroup(closes, sorted[i:j], aspect, cfg); ok {
			out = append(out, m)
		}
		i = j
	}
	return out
}

// interceptNear compares intercepts relative to the base. Intercepts of
// opposite sign never match.
func interceptNear(base, other, threshold float64) bool {
	if base == 0 {
		return other == 0
	}
	if (base < 0) != (other < 0) {
		return false
	}
	return math.Abs(other-base) <= threshold*math.Abs(base)
}

// mergeGroup averages a group and re-filters the averaged line against
// price. The merged span is trimmed to the first and last index whose close
// is within MergeDistance of the line.
func mergeGroup(closes []float64, group []angledCandidate, aspect float64, cfg Config) (merged, bool) {
	var slope, intercept float64
	start, end := group[0].Start, group[0].End
	longest := group[0].Candidate
	seenPeriod := make(map[int]bool)
	var periods []int
	var anchors []extrema.Point

	for _, c := range group {
		slope += c.Line.Slope
		intercept += c.Line.Intercept
		if c.Start < start {
			start = c.Start
		}
		if c.End > end {
			end = c.End
		}
		if c.Period > longest.Period {
			longest = c.Candidate
		}
		if !seenPeriod[c.Period] {
			seenPeriod[c.Period] = true
			periods = append(periods, c.Period)
		}
		anchors = append(anchors, c.Anchors...)
	}
	n := float64(len(group))
	line := regression.Line{Slope: slope / n, Intercept: intercept / n}

	var near []int
	for x := start; x <= end && x < len(closes); x++ {
		v := line.At(x)
		if math.IsNaN(v) {
			continue
		}
		if deviation(v, closes[x]) <= cfg.MergeDistance {
			near = append(near, x)
		}
	}
	if len(near) < cfg.MinMergedPoints {
		return merged{}, false
	}
	sort.Ints(periods)

	return merged{
		Line:    line,
		Angle:   lineAngle(line.Slope, aspect),
		Term:    longest.Term,
		Periods: periods,
		Start:   near[0],
		End:     near[len(near)-1],
		Near:    near,
		Anchors: uniqueAnchors(anchors),
		Members: len(group),
	}, true
}

// uniqueAnchors orders anchors by index and drops repeated indexes; member
// candidates from different periods often share anchors.
func uniqueAnchors(anchors []extrema.Point) []extrema.Point {
	sorted := extrema.Set{Min: anchors}.Sorted()
	return extrema.Dedupe(sorted, extrema.DedupOptions{Policy: extrema.DedupPoint}).Min
}
