// Package models provides domain models for price history analysis.
package models

import (
	"math"
	"time"

	apperrors "trendscope/internal/errors"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// PriceSeries is the daily history of one symbol, oldest first.
// Algorithms use the candle index as a proxy for time.
type PriceSeries struct {
	Symbol  string
	Candles []Candle
}

// NewPriceSeries creates a price series for symbol.
func NewPriceSeries(symbol string, candles []Candle) PriceSeries {
	return PriceSeries{Symbol: symbol, Candles: candles}
}

// Len returns the number of candles.
func (p PriceSeries) Len() int {
	return len(p.Candles)
}

// Closes extracts close prices.
func (p PriceSeries) Closes() []float64 {
	prices := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		prices[i] = c.Close
	}
	return prices
}

// Dates extracts candle timestamps.
func (p PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(p.Candles))
	for i, c := range p.Candles {
		dates[i] = c.Timestamp
	}
	return dates
}

// DateAt returns the timestamp at index i, or the zero time when out of range.
func (p PriceSeries) DateAt(i int) time.Time {
	if i < 0 || i >= len(p.Candles) {
		return time.Time{}
	}
	return p.Candles[i].Timestamp
}

// Last returns the most recent candle.
func (p PriceSeries) Last() (Candle, bool) {
	if len(p.Candles) == 0 {
		return Candle{}, false
	}
	return p.Candles[len(p.Candles)-1], true
}

// Validate checks the invariants the analyzers rely on: strictly increasing
// timestamps and finite, positive closes.
func (p PriceSeries) Validate() error {
	for i, c := range p.Candles {
		if math.IsNaN(c.Close) || math.IsInf(c.Close, 0) || c.Close <= 0 {
			return apperrors.NewDataError("candles", p.Symbol, "non-positive or non-finite close", apperrors.ErrInvalidSeries)
		}
		if i > 0 && !c.Timestamp.After(p.Candles[i-1].Timestamp) {
			return apperrors.NewDataError("candles", p.Symbol, "timestamps not strictly increasing", apperrors.ErrInvalidSeries)
		}
	}
	return nil
}
