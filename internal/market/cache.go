package market

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
	"trendscope/internal/store"
	"trendscope/pkg/utils"
)

// coverageSlack is how far after the requested start the first cached
// candle may fall, covering weekends and holidays.
const coverageSlack = 5 * 24 * time.Hour

// CachedSource serves history from the candle store and falls back to the
// wrapped source when the cache is stale or does not cover the request.
type CachedSource struct {
	source Source
	store  store.DataStore
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewCachedSource wraps source with the store. A ttl of zero disables reads
// from the cache; fetched candles are still stored.
func NewCachedSource(source Source, st store.DataStore, ttl time.Duration, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		store:  st,
		ttl:    ttl,
		logger: logger.With().Str("source", "cache").Logger(),
		now:    time.Now,
	}
}

func (c *CachedSource) Name() string {
	return c.source.Name() + "+cache"
}

func (c *CachedSource) History(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return models.PriceSeries{}, err
	}
	symbol = NormalizeSymbol(symbol)
	now := c.now()
	if to.IsZero() {
		to = now
	}

	cached, cacheErr := c.cached(ctx, symbol, from, to)
	if cacheErr != nil {
		c.logger.Warn().Err(cacheErr).Str("symbol", symbol).Msg("Reading candle cache failed")
	}
	if c.ttl > 0 && cacheErr == nil && c.fresh(ctx, symbol, now) && covers(cached, from) {
		c.logger.Debug().Str("symbol", symbol).Int("candles", len(cached)).Msg("Serving candles from cache")
		return models.NewPriceSeries(symbol, cached), nil
	}

	series, err := c.source.History(ctx, symbol, from, to)
	if err != nil {
		if len(cached) >= 2 && !apperrors.Is(err, apperrors.ErrSymbolNotFound) {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Fetch failed, serving stale candles")
			return models.NewPriceSeries(symbol, cached), nil
		}
		return models.PriceSeries{}, err
	}

	if err := c.store.SaveCandles(ctx, symbol, Timeframe, series.Candles); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Caching candles failed")
	} else if err := c.store.SetLastSync(store.SyncKey(symbol, Timeframe), now); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Recording sync time failed")
	}
	return series, nil
}

func (c *CachedSource) cached(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	candles, err := c.store.GetCandles(ctx, symbol, Timeframe, from, to)
	if err != nil {
		return nil, err
	}
	return cleanCandles(candles), nil
}

// fresh reports whether the cache was synced within the ttl or already holds
// the last completed session.
func (c *CachedSource) fresh(ctx context.Context, symbol string, now time.Time) bool {
	if last := c.store.GetLastSync(store.SyncKey(symbol, Timeframe)); !last.IsZero() && now.Sub(last) < c.ttl {
		return true
	}
	newest, err := c.store.GetCandlesFreshness(ctx, symbol, Timeframe)
	if err != nil || newest.IsZero() {
		return false
	}
	session := utils.LastTradingDay(now)
	return !newest.Before(time.Date(session.Year(), session.Month(), session.Day(), 0, 0, 0, 0, time.UTC))
}

func covers(candles []models.Candle, from time.Time) bool {
	if len(candles) < 2 {
		return false
	}
	return from.IsZero() || !candles[0].Timestamp.After(from.Add(coverageSlack))
}
