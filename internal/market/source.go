// Package market loads daily price history from remote and local sources.
package market

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
)

// Timeframe is the bar size every source returns.
const Timeframe = "1d"

// Source provides daily price history.
type Source interface {
	Name() string
	// History returns the candles of symbol dated within [from, to],
	// oldest first. A zero bound is unbounded.
	History(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol rejects empty or malformed tickers.
func ValidateSymbol(symbol string) error {
	s := NormalizeSymbol(symbol)
	if s == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}
	if len(s) > 20 {
		return apperrors.NewValidationError("symbol", symbol, "symbol too long")
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == '=':
		default:
			return apperrors.NewValidationError("symbol", symbol, "invalid character in symbol")
		}
	}
	return nil
}

// cleanCandles orders candles by time, drops rows whose close is missing or
// not positive and keeps the last row of any repeated timestamp.
func cleanCandles(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if math.IsNaN(c.Close) || math.IsInf(c.Close, 0) || c.Close <= 0 {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	deduped := out[:0]
	for _, c := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(c.Timestamp) {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}
	return deduped
}

// within filters candles to [from, to]; zero bounds are open.
func within(candles []models.Candle, from, to time.Time) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !from.IsZero() && c.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}
