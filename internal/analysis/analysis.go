// Package analysis defines what the runner and CLI expect from an analyzer.
// The extraction engines live in the subpackages.
package analysis

import (
	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	"trendscope/internal/models"
)

// Analyzer runs one kind of analysis over a price series.
type Analyzer[R any] interface {
	Name() string
	Analyze(series models.PriceSeries) (R, error)
}

// Counter reports how many items an analysis result holds.
type Counter interface {
	Count() int
}

var (
	_ Analyzer[*trendlines.Result] = (*trendlines.Analyzer)(nil)
	_ Analyzer[*levels.Result]     = (*levels.Analyzer)(nil)
)
