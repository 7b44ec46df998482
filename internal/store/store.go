// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"encoding/json"
	"time"

	"trendscope/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error)

	// Analyses
	SaveAnalysis(ctx context.Context, record *AnalysisRecord) error
	GetAnalyses(ctx context.Context, filter AnalysisFilter) ([]AnalysisRecord, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol, listName string) error
	RemoveFromWatchlist(ctx context.Context, symbol, listName string) error
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
	GetAllWatchlists(ctx context.Context) (map[string][]string, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// AnalysisKind names the analysis a record holds.
type AnalysisKind string

const (
	AnalysisTrendlines AnalysisKind = "trendlines"
	AnalysisLevels     AnalysisKind = "levels"
)

// AnalysisRecord is a stored analysis snapshot. Payload is the JSON encoded
// result.
type AnalysisRecord struct {
	ID        int64           `json:"id"`
	Symbol    string          `json:"symbol"`
	Kind      AnalysisKind    `json:"kind"`
	RunAt     time.Time       `json:"run_at"`
	Candles   int             `json:"candles"`
	LastClose float64         `json:"last_close"`
	Found     int             `json:"found"`
	Payload   json.RawMessage `json:"payload"`
}

// AnalysisFilter represents filters for querying stored analyses.
type AnalysisFilter struct {
	Symbol    string
	Kind      AnalysisKind
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// SyncKey returns the sync status key of a symbol's candles.
func SyncKey(symbol, timeframe string) string {
	return "candles:" + symbol + ":" + timeframe
}
