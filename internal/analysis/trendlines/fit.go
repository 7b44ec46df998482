package trendlines

import (
	"math"

	"trendscope/internal/analysis/extrema"
	"trendscope/internal/analysis/regression"
)

// LineType is the direction of a trend line.
type LineType string

const (
	// Bull lines rise and are anchored on minima (support).
	Bull LineType = "bull"
	// Bear lines fall and are anchored on maxima (resistance).
	Bear LineType = "bear"
)

// TypeOf returns the line type implied by a slope.
func TypeOf(slope float64) LineType {
	if slope >= 0 {
		return Bull
	}
	return Bear
}

// accepts reports whether slope has the sign this line type requires.
func (t LineType) accepts(slope float64) bool {
	return TypeOf(slope) == t
}

// Candidate is a line fitted in one window of one lookback period, valid
// over [Start, End].
type Candidate struct {
	Line    regression.Line
	Type    LineType
	Term    Term
	Period  int
	Window  Window
	Start   int
	End     int
	Anchors []extrema.Point
}

// fitWindow fits a candidate line to the extrema inside w. The tendency of
// the window's closes picks the anchors: minima when rising, maxima when
// falling. It reports false when no line can be fitted.
func fitWindow(closes []float64, set extrema.Set, w Window, maxIter int) (Candidate, bool) {
	if w.Len() < 2 {
		return Candidate{}, false
	}
	tendency, err := regression.SeriesSlope(closes[w.Start:w.End])
	if err != nil || math.IsNaN(tendency) {
		return Candidate{}, false
	}

	lineType := TypeOf(tendency)
	source := set.Min
	if lineType == Bear {
		source = set.Max
	}

	var anchors []extrema.Point
	for _, p := range source {
		if w.Contains(p.Index) {
			anchors = append(anchors, p)
		}
	}

	line, kept, ok := fitAnchors(anchors, lineType, maxIter)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		Line:    line,
		Type:    lineType,
		Window:  w,
		Start:   w.Start,
		End:     w.Last(),
		Anchors: kept,
	}, true
}

// fitAnchors is an iteratively trimmed least squares fit. Each pass drops
// the anchors on the wrong side of the fitted line: above it for a bull
// line, below it for a bear line, so the result bounds the anchors from the
// side price should respect. Trimming stops when it would leave fewer than
// two anchors. If a refit flips the slope sign, the last accepted anchor set
// is used instead.
func fitAnchors(points []extrema.Point, lineType LineType, maxIter int) (regression.Line, []extrema.Point, bool) {
	var (
		line      regression.Line
		lastValid []extrema.Point
	)
	pts := points
	for iter := 0; iter < maxIter; iter++ {
		fitted, err := fitPoints(pts)
		if err != nil {
			break
		}
		if !lineType.accepts(fitted.Slope) {
			if lastValid == nil {
				return regression.Line{}, nil, false
			}
			refit, err := fitPoints(lastValid)
			if err != nil {
				return regression.Line{}, nil, false
			}
			return refit, lastValid, true
		}
		line, lastValid = fitted, pts

		kept := keepSide(pts, fitted, lineType)
		if len(kept) == len(pts) || len(kept) < 2 {
			break
		}
		pts = kept
	}
	if len(lastValid) < 2 {
		return regression.Line{}, nil, false
	}
	return line, lastValid, true
}

// keepSide returns the points on or beyond the line on the side the line
// type bounds.
func keepSide(points []extrema.Point, line regression.Line, lineType LineType) []extrema.Point {
	kept := make([]extrema.Point, 0, len(points))
	for _, p := range points {
		v := line.At(p.Index)
		eps := 1e-9 * math.Max(1, math.Abs(v))
		switch lineType {
		case Bull:
			if p.Value <= v+eps {
				kept = append(kept, p)
			}
		default:
			if p.Value >= v-eps {
				kept = append(kept, p)
			}
		}
	}
	return kept
}

func fitPoints(points []extrema.Point) (regression.Line, error) {
	xs := make([]int, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Index
		ys[i] = p.Value
	}
	return regression.Fit(xs, ys)
}
