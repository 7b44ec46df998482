// Package levels finds horizontal support and resistance levels by
// clustering the window lows and highs of a price series.
package levels

import (
	"time"

	"github.com/rs/zerolog"

	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
)

// Analyzer identifies support and resistance levels. It is safe for
// concurrent use.
type Analyzer struct {
	cfg    Config
	logger zerolog.Logger
}

// NewAnalyzer validates cfg and creates an analyzer.
func NewAnalyzer(cfg Config, logger zerolog.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		cfg:    cfg.Clone(),
		logger: logger.With().Str("analyzer", "levels").Logger(),
	}, nil
}

func (a *Analyzer) Name() string {
	return "LevelAnalyzer"
}

// Config returns a copy of the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.cfg.Clone()
}

// Result contains the levels of one series.
type Result struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	LastDate     time.Time `json:"last_date"`

	// Supports and Resistances are the nearest major levels below and at or
	// above the current price, nearest first.
	Supports    []Level `json:"supports"`
	Resistances []Level `json:"resistances"`
	// Major is every level after unioning supports with resistances.
	Major []Level `json:"major"`

	SupportClusters    []Level `json:"support_clusters"`
	ResistanceClusters []Level `json:"resistance_clusters"`
}

// Count returns the number of major levels.
func (r *Result) Count() int {
	return len(r.Major)
}

// Analyze runs point finding, clustering and unions over every configured
// window.
func (a *Analyzer) Analyze(series models.PriceSeries) (*Result, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if series.Len() < 2 {
		return nil, apperrors.NewDataError("candles", series.Symbol, "need at least 2 candles", apperrors.ErrInsufficientData)
	}

	closes := series.Closes()
	dates := series.Dates()
	last, _ := series.Last()
	lastIndex := len(closes) - 1

	result := &Result{
		Symbol:       series.Symbol,
		CurrentPrice: last.Close,
		LastDate:     last.Timestamp,
	}
	for _, w := range a.cfg.Windows {
		supports, resistances := FindPoints(closes, w, a.cfg.Variant)
		sup := Cluster(supports, a.cfg.ClusterThreshold, a.cfg.MinClusterSize, lastIndex, KindSupport)
		res := Cluster(resistances, a.cfg.ClusterThreshold, a.cfg.MinClusterSize, lastIndex, KindResistance)
		for i := range sup {
			sup[i].Windows = []int{w}
		}
		for i := range res {
			res[i].Windows = []int{w}
		}
		result.SupportClusters = append(result.SupportClusters, sup...)
		result.ResistanceClusters = append(result.ResistanceClusters, res...)

		a.logger.Debug().
			Int("window", w).
			Int("supports", len(sup)).
			Int("resistances", len(res)).
			Msg("Window clustered")
	}

	all := append(Unions(result.SupportClusters, a.cfg.UnionThreshold), Unions(result.ResistanceClusters, a.cfg.UnionThreshold)...)
	result.Major = Unions(all, a.cfg.UnionThreshold)
	result.Supports, result.Resistances = Nearest(result.Major, result.CurrentPrice, a.cfg.Nearest)

	stamp := func(levels []Level) {
		for i := range levels {
			levels[i].StartDate = dates[levels[i].StartIndex]
			levels[i].EndDate = dates[levels[i].EndIndex]
		}
	}
	stamp(result.SupportClusters)
	stamp(result.ResistanceClusters)
	stamp(result.Major)
	stamp(result.Supports)
	stamp(result.Resistances)

	a.logger.Debug().
		Str("symbol", series.Symbol).
		Int("major", len(result.Major)).
		Msg("Levels extracted")

	return result, nil
}
