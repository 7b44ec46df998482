// Package runner fetches history and runs the analyzers over a batch of
// symbols.
package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trendscope/internal/analysis"
	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	apperrors "trendscope/internal/errors"
	"trendscope/internal/logging"
	"trendscope/internal/market"
	"trendscope/internal/models"
	"trendscope/internal/store"
)

// Options selects what a run computes.
type Options struct {
	From time.Time
	To   time.Time

	Trendlines bool
	Levels     bool
	// Save persists each result as an analysis record.
	Save bool
}

// Report is the outcome for one symbol. Err is set when fetching or any
// analysis failed; results that did complete are still filled in.
type Report struct {
	Symbol     string             `json:"symbol"`
	Candles    int                `json:"candles"`
	Trendlines *trendlines.Result `json:"trendlines,omitempty"`
	Levels     *levels.Result     `json:"levels,omitempty"`
	Err        error              `json:"-"`
	Error      string             `json:"error,omitempty"`
	Duration   time.Duration      `json:"duration"`
}

// Runner analyses symbols concurrently.
type Runner struct {
	source      market.Source
	store       store.DataStore
	trend       analysis.Analyzer[*trendlines.Result]
	levels      analysis.Analyzer[*levels.Result]
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a runner. st may be nil, in which case nothing is persisted.
func New(source market.Source, st store.DataStore, trend analysis.Analyzer[*trendlines.Result], lvl analysis.Analyzer[*levels.Result], concurrency int, logger zerolog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		source:      source,
		store:       st,
		trend:       trend,
		levels:      lvl,
		concurrency: concurrency,
		logger:      logging.WithOperation(logger, "run"),
		now:         time.Now,
	}
}

// Run analyses every symbol, at most Concurrency at a time. Reports are
// returned in the order of symbols with repeats removed. A failing symbol
// does not stop the batch; only cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, symbols []string, opts Options) ([]Report, error) {
	symbols = uniqueSymbols(symbols)
	reports := make([]Report, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				reports[i] = Report{Symbol: symbol, Err: err, Error: err.Error()}
				return err
			}
			reports[i] = r.Analyze(gctx, symbol, opts)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
		}
	}
	r.logger.Info().
		Int("symbols", len(symbols)).
		Int("failed", failed).
		Msg("Batch complete")
	return reports, err
}

// Analyze fetches and analyses a single symbol.
func (r *Runner) Analyze(ctx context.Context, symbol string, opts Options) (rep Report) {
	start := time.Now()
	symbol = market.NormalizeSymbol(symbol)
	logger := logging.WithSymbol(r.logger, symbol)
	rep.Symbol = symbol
	defer func() {
		rep.Duration = time.Since(start)
	}()

	series, err := r.source.History(ctx, symbol, opts.From, opts.To)
	if err != nil {
		logger.Warn().Err(err).Msg("Fetching history failed")
		return rep.fail(err)
	}
	rep.Candles = series.Len()

	if opts.Trendlines && r.trend != nil {
		res, err := runAnalyzer(ctx, r, logger, r.trend, series, store.AnalysisTrendlines, opts.Save)
		if err != nil {
			return rep.fail(err)
		}
		rep.Trendlines = res
	}
	if opts.Levels && r.levels != nil {
		res, err := runAnalyzer(ctx, r, logger, r.levels, series, store.AnalysisLevels, opts.Save)
		if err != nil {
			return rep.fail(err)
		}
		rep.Levels = res
	}
	return rep
}

func (rep Report) fail(err error) Report {
	rep.Err = err
	rep.Error = err.Error()
	return rep
}

func runAnalyzer[R analysis.Counter](ctx context.Context, r *Runner, logger zerolog.Logger, a analysis.Analyzer[R], series models.PriceSeries, kind store.AnalysisKind, save bool) (R, error) {
	start := time.Now()
	res, err := a.Analyze(series)
	if err != nil {
		logger.Warn().Err(err).Str("analyzer", a.Name()).Msg("Analysis failed")
		return res, err
	}
	logging.LogAnalysis(logger, series.Symbol, string(kind), series.Len(), res.Count(), time.Since(start))

	if save && r.store != nil {
		if err := r.persist(ctx, series, kind, res); err != nil {
			logger.Warn().Err(err).Str("kind", string(kind)).Msg("Saving analysis failed")
		}
	}
	return res, nil
}

func (r *Runner) persist(ctx context.Context, series models.PriceSeries, kind store.AnalysisKind, res analysis.Counter) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return apperrors.Wrap(err, "encoding analysis")
	}
	last, _ := series.Last()
	return r.store.SaveAnalysis(ctx, &store.AnalysisRecord{
		Symbol:    series.Symbol,
		Kind:      kind,
		RunAt:     r.now(),
		Candles:   series.Len(),
		LastClose: last.Close,
		Found:     res.Count(),
		Payload:   payload,
	})
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = market.NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
