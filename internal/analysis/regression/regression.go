// Package regression provides ordinary least squares line fitting.
package regression

import (
	"math"

	"github.com/markcheno/go-talib"

	apperrors "trendscope/internal/errors"
)

// Line is y = Slope*x + Intercept with x a candle index.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At returns the line value at index x.
func (l Line) At(x int) float64 {
	return l.Slope*float64(x) + l.Intercept
}

// Rising reports whether the slope is non-negative.
func (l Line) Rising() bool {
	return l.Slope >= 0
}

// Fit computes the OLS line through (xs[i], ys[i]). It returns
// ErrInsufficientData when fewer than two distinct x values are given.
func Fit(xs []int, ys []float64) (Line, error) {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return Line{}, apperrors.ErrInsufficientData
	}

	var sumX, sumY float64
	distinct := false
	for i := 0; i < n; i++ {
		sumX += float64(xs[i])
		sumY += ys[i]
		if xs[i] != xs[0] {
			distinct = true
		}
	}
	if !distinct {
		return Line{}, apperrors.ErrInsufficientData
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := float64(xs[i]) - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}

	slope := sxy / sxx
	line := Line{Slope: slope, Intercept: meanY - slope*meanX}
	if math.IsNaN(line.Slope) || math.IsNaN(line.Intercept) {
		return Line{}, apperrors.ErrInsufficientData
	}
	return line, nil
}

// SeriesSlope returns the OLS slope of values against their position, the
// tendency of a window of closes.
func SeriesSlope(values []float64) (float64, error) {
	n := len(values)
	if n < 2 {
		return 0, apperrors.ErrInsufficientData
	}
	slopes := talib.LinearRegSlope(values, n)
	return slopes[n-1], nil
}
