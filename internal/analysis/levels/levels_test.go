package levels

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendscope/internal/analysis/extrema"
	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
)

func seriesFromCloses(symbol string, closes []float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return models.NewPriceSeries(symbol, candles)
}

func indexes(points []extrema.Point) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Index
	}
	return out
}

func prices(levels []Level) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		out[i] = l.Price
	}
	return out
}

func TestFindPoints(t *testing.T) {
	closes := []float64{5, 3, 4, 8, 9, 7, 6}

	tests := []struct {
		name        string
		variant     Variant
		window      int
		supports    []int
		resistances []int
	}{
		{"windowed", VariantWindowed, 3, []int{1, 5, 6}, []int{0, 4, 6}},
		{"convolution", VariantConvolution, 3, []int{1, 2, 5, 6}, []int{0, 3, 4}},
		{"window wider than series", VariantWindowed, 20, []int{1}, []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup, res := FindPoints(closes, tt.window, tt.variant)
			if got := indexes(sup); !reflect.DeepEqual(got, tt.supports) {
				t.Errorf("supports = %v, want %v", got, tt.supports)
			}
			if got := indexes(res); !reflect.DeepEqual(got, tt.resistances) {
				t.Errorf("resistances = %v, want %v", got, tt.resistances)
			}
		})
	}
}

func TestCluster(t *testing.T) {
	points := []extrema.Point{
		{Index: 4, Value: 100.5},
		{Index: 9, Value: 110},
		{Index: 1, Value: 100},
		{Index: 12, Value: 120},
		{Index: 7, Value: 100.9},
		{Index: 15, Value: 110.3},
	}

	got := Cluster(points, 0.007, 2, 20, KindSupport)
	if len(got) != 2 {
		t.Fatalf("Cluster() returned %d levels, want 2: %+v", len(got), got)
	}
	if math.Abs(got[0].Price-301.4/3) > 1e-9 || got[0].Count != 3 {
		t.Errorf("level 0 = %+v, want mean of three points", got[0])
	}
	if !reflect.DeepEqual(got[0].Indexes, []int{1, 4, 7}) || got[0].StartIndex != 1 || got[0].EndIndex != 20 {
		t.Errorf("level 0 span = %v [%d, %d]", got[0].Indexes, got[0].StartIndex, got[0].EndIndex)
	}
	if math.Abs(got[1].Price-110.15) > 1e-9 || got[1].StartIndex != 9 {
		t.Errorf("level 1 = %+v", got[1])
	}
}

func TestUnions(t *testing.T) {
	tests := []struct {
		name   string
		levels []Level
		want   []float64
	}{
		{
			name: "count weighted",
			levels: []Level{
				{Price: 100, Count: 1, Kind: KindSupport},
				{Price: 101, Count: 3, Kind: KindSupport},
				{Price: 105, Count: 2, Kind: KindSupport},
			},
			want: []float64{100.75, 105},
		},
		{
			name: "closest pair first",
			levels: []Level{
				{Price: 100, Count: 1},
				{Price: 101, Count: 1},
				{Price: 102, Count: 1},
			},
			want: []float64{100, 101.5},
		},
		{
			name:   "empty",
			levels: nil,
			want:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := prices(Unions(tt.levels, 0.011))
			if len(got) != len(tt.want) {
				t.Fatalf("Unions() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Unions()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUnions_MixedKinds(t *testing.T) {
	got := Unions([]Level{
		{Price: 100, Count: 2, Kind: KindSupport, Indexes: []int{3, 8}, StartIndex: 3, EndIndex: 30, Windows: []int{13}},
		{Price: 100.5, Count: 2, Kind: KindResistance, Indexes: []int{5, 8}, StartIndex: 5, EndIndex: 30, Windows: []int{21}},
	}, 0.011)

	if len(got) != 1 {
		t.Fatalf("Unions() = %+v, want one level", got)
	}
	l := got[0]
	if l.Kind != KindBoth || l.Count != 4 || l.StartIndex != 3 {
		t.Errorf("merged = %+v", l)
	}
	if !reflect.DeepEqual(l.Indexes, []int{3, 5, 8}) || !reflect.DeepEqual(l.Windows, []int{13, 21}) {
		t.Errorf("merged indexes=%v windows=%v", l.Indexes, l.Windows)
	}
}

func TestNearest(t *testing.T) {
	var levels []Level
	for _, p := range []float64{110, 90, 101, 95, 105, 99} {
		levels = append(levels, Level{Price: p})
	}

	below, above := Nearest(levels, 100, 2)
	if got := prices(below); !reflect.DeepEqual(got, []float64{99, 95}) {
		t.Errorf("below = %v, want [99 95]", got)
	}
	if got := prices(above); !reflect.DeepEqual(got, []float64{101, 105}) {
		t.Errorf("above = %v, want [101 105]", got)
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	// A range-bound series bouncing between 100 and 110.
	closes := make([]float64, 220)
	for i := range closes {
		closes[i] = 105 + 5*math.Sin(float64(i)*2*math.Pi/17)
	}
	a, err := NewAnalyzer(DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	result, err := a.Analyze(seriesFromCloses("RANGE", closes))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.SupportClusters) == 0 || len(result.ResistanceClusters) == 0 {
		t.Fatalf("no clusters found: %+v", result)
	}
	if result.CurrentPrice != closes[len(closes)-1] {
		t.Errorf("CurrentPrice = %v, want %v", result.CurrentPrice, closes[len(closes)-1])
	}
	for i := 1; i < len(result.Major); i++ {
		if result.Major[i].Price < result.Major[i-1].Price {
			t.Errorf("major levels out of order: %v", prices(result.Major))
		}
	}
	if len(result.Supports) > 3 || len(result.Resistances) > 3 {
		t.Errorf("reported %d supports and %d resistances, want at most 3 each", len(result.Supports), len(result.Resistances))
	}
	for _, l := range result.Supports {
		if l.Price >= result.CurrentPrice {
			t.Errorf("support %v not below price %v", l.Price, result.CurrentPrice)
		}
	}
	for _, l := range result.Resistances {
		if l.Price < result.CurrentPrice {
			t.Errorf("resistance %v below price %v", l.Price, result.CurrentPrice)
		}
	}
	for _, l := range result.Major {
		if l.EndIndex != len(closes)-1 || !l.EndDate.Equal(result.LastDate) {
			t.Errorf("level %+v does not reach the end of the series", l)
		}
	}
}

func TestAnalyzer_Errors(t *testing.T) {
	a, err := NewAnalyzer(DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	if _, err := a.Analyze(seriesFromCloses("ONE", []float64{10})); !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Errorf("Analyze(1 candle) error = %v, want ErrInsufficientData", err)
	}
	if _, err := a.Analyze(seriesFromCloses("NEG", []float64{10, -1})); !errors.Is(err, apperrors.ErrInvalidSeries) {
		t.Errorf("Analyze(negative) error = %v, want ErrInvalidSeries", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no windows", func(c *Config) { c.Windows = nil }},
		{"tiny window", func(c *Config) { c.Windows = []int{1} }},
		{"variant", func(c *Config) { c.Variant = "rolling" }},
		{"zero cluster threshold", func(c *Config) { c.ClusterThreshold = 0 }},
		{"union threshold", func(c *Config) { c.UnionThreshold = 2 }},
		{"cluster size", func(c *Config) { c.MinClusterSize = 1 }},
		{"nearest", func(c *Config) { c.Nearest = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg, zerolog.Nop())
			var cfgErr *apperrors.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("NewAnalyzer() error = %v, want ConfigurationError", err)
			}
			if cfgErr.Section != "levels" {
				t.Errorf("Section = %q, want levels", cfgErr.Section)
			}
		})
	}
}
