// Package trendlines extracts trend lines from price history.
//
// The pipeline finds extrema at several smoothing widths, fits a trimmed
// regression line per lookback window, extends each valid line forward,
// merges lines that draw alike and classifies where price respected or broke
// each surviving line.
package trendlines

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"trendscope/internal/analysis/extrema"
	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
)

// Analyzer extracts trend lines. It holds no state between calls and is
// safe for concurrent use.
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
		logger: logger.With().Str("analyzer", "trendlines").Logger(),
	}, nil
}

func (a *Analyzer) Name() string {
	return "TrendlineAnalyzer"
}

// Config returns a copy of the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.cfg.Clone()
}

// Result is the trend line analysis of one series.
type Result struct {
	Symbol     string      `json:"symbol"`
	Trendlines []Trendline `json:"trendlines"`
	Candidates int         `json:"candidates"`
	Extrema    extrema.Set `json:"extrema"`
	LastIndex  int         `json:"last_index"`
	LastDate   time.Time   `json:"last_date"`
	LastClose  float64     `json:"last_close"`
}

// Active returns the trend lines price currently respects.
func (r *Result) Active() []Trendline {
	var out []Trendline
	for _, t := range r.Trendlines {
		if t.Active(r.LastIndex) {
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of trend lines.
func (r *Result) Count() int {
	return len(r.Trendlines)
}

// Analyze runs the full trend line pipeline on series.
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

	set := a.findExtrema(closes)
	candidates := a.findCandidates(closes, set)
	lines := consolidate(closes, candidates, a.cfg)

	result := &Result{
		Symbol:     series.Symbol,
		Candidates: len(candidates),
		Extrema:    set,
		LastIndex:  len(closes) - 1,
		LastDate:   last.Timestamp,
		LastClose:  last.Close,
		Trendlines: make([]Trendline, 0, len(lines)),
	}
	for _, m := range lines {
		lineType := TypeOf(m.Line.Slope)
		touches := analyzeTouches(closes, dates, m.Line, lineType, m.Start, m.End, a.cfg.TouchTolerance)
		result.Trendlines = append(result.Trendlines, Trendline{
			Type:          lineType,
			Term:          m.Term,
			Color:         ColorFor(lineType, m.Term),
			Slope:         m.Line.Slope,
			Intercept:     m.Line.Intercept,
			Angle:         m.Angle,
			StartIndex:    m.Start,
			EndIndex:      m.End,
			StartDate:     dates[m.Start],
			EndDate:       dates[m.End],
			Periods:       m.Periods,
			Merged:        m.Members,
			Anchors:       m.Anchors,
			Touches:       touches.Touches,
			ValidPeriods:  touches.Valid,
			BrokenPeriods: touches.Broken,
		})
	}
	sort.SliceStable(result.Trendlines, func(i, j int) bool {
		if result.Trendlines[i].StartIndex != result.Trendlines[j].StartIndex {
			return result.Trendlines[i].StartIndex < result.Trendlines[j].StartIndex
		}
		return result.Trendlines[i].EndIndex < result.Trendlines[j].EndIndex
	})

	a.logger.Debug().
		Str("symbol", series.Symbol).
		Int("extrema", set.Len()).
		Int("candidates", len(candidates)).
		Int("trendlines", len(result.Trendlines)).
		Msg("Trend lines extracted")

	return result, nil
}

// findExtrema collects extrema at every configured smoothing width, orders
// them by index and removes near duplicates.
func (a *Analyzer) findExtrema(closes []float64) extrema.Set {
	sets := make([]extrema.Set, 0, len(a.cfg.SmoothingWidths))
	for _, w := range a.cfg.SmoothingWidths {
		sets = append(sets, extrema.FindOn(closes, w, a.cfg.Smoothing))
	}
	return extrema.Dedupe(extrema.Merge(sets...).Sorted(), a.cfg.Dedup)
}

// findCandidates fits, validates and trims one candidate per window for
// every lookback period.
func (a *Analyzer) findCandidates(closes []float64, set extrema.Set) []Candidate {
	var candidates []Candidate
	for _, period := range a.cfg.Periods {
		found := 0
		for _, w := range Partition(len(closes), period.Length) {
			c, ok := fitWindow(closes, set, w, a.cfg.MaxFitIterations)
			if !ok {
				continue
			}
			c, ok = extendLine(closes, c, a.cfg.ExtendTolerance)
			if !ok {
				continue
			}
			c.End = reduceLine(closes, c.Start, c.End, c.Line, a.cfg.ReduceTolerance)
			if c.End <= c.Start {
				continue
			}
			c.Term = period.Term
			c.Period = period.Length
			candidates = append(candidates, c)
			found++
		}
		a.logger.Debug().
			Str("term", string(period.Term)).
			Int("period", period.Length).
			Int("candidates", found).
			Msg("Period fitted")
	}
	return candidates
}
