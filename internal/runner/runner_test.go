package runner

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
	"trendscope/internal/store"
)

func waveSeries(symbol string, n int) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		c := 100 + 10*math.Sin(float64(i)/6) + float64(i)*0.1
		candles[i] = models.Candle{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return models.NewPriceSeries(symbol, candles)
}

type fakeSource struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]error
	delay   time.Duration

	active    int32
	maxActive int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: map[string]int{}, failing: map[string]error{}}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) History(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[symbol]++
	err := f.failing[symbol]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.PriceSeries{}, ctx.Err()
		}
	}
	if err != nil {
		return models.PriceSeries{}, err
	}
	return waveSeries(symbol, 200), nil
}

func newTestRunner(t *testing.T, src *fakeSource, st store.DataStore, concurrency int) *Runner {
	t.Helper()
	trend, err := trendlines.NewAnalyzer(trendlines.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("trendlines.NewAnalyzer() error = %v", err)
	}
	lvl, err := levels.NewAnalyzer(levels.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("levels.NewAnalyzer() error = %v", err)
	}
	return New(src, st, trend, lvl, concurrency, zerolog.Nop())
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runner.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRun_ReportsPerSymbol(t *testing.T) {
	src := newFakeSource()
	src.failing["BAD"] = apperrors.ErrSymbolNotFound
	r := newTestRunner(t, src, nil, 2)

	reports, err := r.Run(context.Background(), []string{"spy", "BAD", "SPY", " qqq "}, Options{Trendlines: true, Levels: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"SPY", "BAD", "QQQ"}
	if len(reports) != len(want) {
		t.Fatalf("Run() returned %d reports, want %d", len(reports), len(want))
	}
	for i, rep := range reports {
		if rep.Symbol != want[i] {
			t.Errorf("report %d symbol = %s, want %s", i, rep.Symbol, want[i])
		}
	}

	if !errors.Is(reports[1].Err, apperrors.ErrSymbolNotFound) || reports[1].Error == "" {
		t.Errorf("BAD report error = %v", reports[1].Err)
	}
	for _, rep := range []Report{reports[0], reports[2]} {
		if rep.Err != nil {
			t.Errorf("%s error = %v", rep.Symbol, rep.Err)
		}
		if rep.Candles != 200 || rep.Trendlines == nil || rep.Levels == nil {
			t.Errorf("%s report incomplete: %+v", rep.Symbol, rep)
		}
	}
	if src.calls["SPY"] != 1 {
		t.Errorf("SPY fetched %d times, want 1", src.calls["SPY"])
	}
}

func TestRun_SelectsAnalyses(t *testing.T) {
	r := newTestRunner(t, newFakeSource(), nil, 1)

	reports, err := r.Run(context.Background(), []string{"IWM"}, Options{Levels: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reports[0].Trendlines != nil || reports[0].Levels == nil {
		t.Errorf("report = %+v, want levels only", reports[0])
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	src := newFakeSource()
	src.delay = 20 * time.Millisecond
	r := newTestRunner(t, src, nil, 2)

	symbols := []string{"A", "B", "C", "D", "E", "F"}
	if _, err := r.Run(context.Background(), symbols, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := atomic.LoadInt32(&src.maxActive); got > 2 {
		t.Errorf("max concurrent fetches = %d, want <= 2", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	src := newFakeSource()
	src.delay = time.Second
	r := newTestRunner(t, src, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := r.Run(ctx, []string{"A", "B"}, Options{Trendlines: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	for _, rep := range reports {
		if rep.Err == nil {
			t.Errorf("%s finished despite cancellation", rep.Symbol)
		}
	}
}

func TestRun_PersistsAnalyses(t *testing.T) {
	st := newTestStore(t)
	r := newTestRunner(t, newFakeSource(), st, 2)
	runAt := time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return runAt }

	reports, err := r.Run(context.Background(), []string{"VTI"}, Options{Trendlines: true, Levels: true, Save: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records, err := st.GetAnalyses(context.Background(), store.AnalysisFilter{Symbol: "VTI"})
	if err != nil {
		t.Fatalf("GetAnalyses() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("stored %d analyses, want 2", len(records))
	}

	byKind := map[store.AnalysisKind]store.AnalysisRecord{}
	for _, rec := range records {
		byKind[rec.Kind] = rec
		if rec.Candles != 200 || !rec.RunAt.Equal(runAt) || len(rec.Payload) == 0 {
			t.Errorf("record = %+v", rec)
		}
	}
	if got := byKind[store.AnalysisTrendlines].Found; got != len(reports[0].Trendlines.Trendlines) {
		t.Errorf("trendlines found = %d, want %d", got, len(reports[0].Trendlines.Trendlines))
	}
	if got := byKind[store.AnalysisLevels].Found; got != len(reports[0].Levels.Major) {
		t.Errorf("levels found = %d, want %d", got, len(reports[0].Levels.Major))
	}
}

func TestRun_NoSaveWithoutFlag(t *testing.T) {
	st := newTestStore(t)
	r := newTestRunner(t, newFakeSource(), st, 1)

	if _, err := r.Run(context.Background(), []string{"VTI"}, Options{Levels: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	records, err := st.GetAnalyses(context.Background(), store.AnalysisFilter{})
	if err != nil {
		t.Fatalf("GetAnalyses() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("stored %d analyses without Save", len(records))
	}
}
