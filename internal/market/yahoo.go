package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"

	apperrors "trendscope/internal/errors"
	"trendscope/internal/logging"
	"trendscope/internal/models"
	"trendscope/pkg/utils"
)

// chartFunc downloads the daily bars of one symbol.
type chartFunc func(params *chart.Params) ([]*finance.ChartBar, error)

// YahooSource downloads daily history from Yahoo Finance.
type YahooSource struct {
	retry  utils.RetryConfig
	logger zerolog.Logger
	fetch  chartFunc
}

// NewYahooSource creates a Yahoo Finance source retrying transient failures
// up to maxRetries times.
func NewYahooSource(maxRetries int, logger zerolog.Logger) *YahooSource {
	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = maxRetries + 1
	retry.InitialDelay = 500 * time.Millisecond
	retry.RetryableErrors = []error{apperrors.ErrFetchFailed}

	return &YahooSource{
		retry:  retry,
		logger: logger.With().Str("source", "yahoo").Logger(),
		fetch:  getChart,
	}
}

func (y *YahooSource) Name() string {
	return "yahoo"
}

// History downloads daily candles of symbol between from and to. A zero
// to means now; a zero from means one year before to.
func (y *YahooSource) History(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return models.PriceSeries{}, err
	}
	symbol = NormalizeSymbol(symbol)
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}

	start := time.Now()
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	}

	bars, err := utils.RetryWithResult(ctx, y.retry, func() ([]*finance.ChartBar, error) {
		return y.fetch(params)
	})
	if err != nil {
		logging.LogFetch(y.logger, y.Name(), symbol, 0, time.Since(start), err)
		return models.PriceSeries{}, apperrors.NewDataError("candles", symbol, "yahoo download failed", err)
	}

	candles := make([]models.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, barToCandle(bar))
	}
	candles = within(cleanCandles(candles), from, to)
	logging.LogFetch(y.logger, y.Name(), symbol, len(candles), time.Since(start), nil)

	if len(candles) == 0 {
		return models.PriceSeries{}, apperrors.NewDataError("candles", symbol, "no bars returned", apperrors.ErrDataNotFound)
	}
	return models.NewPriceSeries(symbol, candles), nil
}

// getChart runs the chart iterator to completion.
func getChart(params *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(params)

	var bars []*finance.ChartBar
	for iter.Next() {
		bars = append(bars, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %v: %w", params.Symbol, err, apperrors.ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("%s: %v: %w", params.Symbol, err, apperrors.ErrFetchFailed)
	}
	return bars, nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no data")
}

// barToCandle converts a decimal bar to float prices. Daily bars are
// stamped at the session open; the candle keeps the calendar day in New York.
func barToCandle(bar *finance.ChartBar) models.Candle {
	ts := time.Unix(int64(bar.Timestamp), 0).In(utils.NewYorkLocation)
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

	open, _ := bar.Open.Float64()
	high, _ := bar.High.Float64()
	low, _ := bar.Low.Float64()
	closePrice, _ := bar.Close.Float64()

	return models.Candle{
		Timestamp: day,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    int64(bar.Volume),
	}
}
