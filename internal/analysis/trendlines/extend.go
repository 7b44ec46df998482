package trendlines

import (
	"math"

	"trendscope/internal/analysis/regression"
)

// extendLine validates a candidate against every close in its window and,
// if it holds, provisionally extends it to the last index of the series.
// A bull line fails when a close drops more than tolerance below it, a bear
// line when a close rises more than tolerance above it.
func extendLine(closes []float64, c Candidate, tolerance float64) (Candidate, bool) {
	for x := c.Window.Start; x < c.Window.End; x++ {
		v := c.Line.At(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Candidate{}, false
		}
		switch c.Type {
		case Bull:
			if closes[x] < v*(1-tolerance) {
				return Candidate{}, false
			}
		default:
			if closes[x] > v*(1+tolerance) {
				return Candidate{}, false
			}
		}
	}
	c.Start = c.Window.Start
	c.End = len(closes) - 1
	return c, true
}

// reduceLine walks back from lastX while the projected line deviates from
// the close by more than tolerance, and returns the new end index. It never
// goes below start.
func reduceLine(closes []float64, start, lastX int, line regression.Line, tolerance float64) int {
	x := lastX
	for x > start && deviation(line.At(x), closes[x]) > tolerance {
		x--
	}
	return x
}

// deviation is the relative distance of a line value from a close.
func deviation(lineValue, price float64) float64 {
	if price == 0 {
		return math.Inf(1)
	}
	return math.Abs(lineValue-price) / math.Abs(price)
}
