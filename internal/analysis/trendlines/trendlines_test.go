package trendlines

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trendscope/internal/analysis/extrema"
	"trendscope/internal/analysis/regression"
	apperrors "trendscope/internal/errors"
	"trendscope/internal/models"
)

func seriesFromCloses(symbol string, closes []float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return models.NewPriceSeries(symbol, candles)
}

func linePoints(n int, slope, intercept float64) []extrema.Point {
	points := make([]extrema.Point, n)
	for i := range points {
		points[i] = extrema.Point{Index: i, Value: slope*float64(i) + intercept}
	}
	return points
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPartition(t *testing.T) {
	got := Partition(10, 4)
	want := []Window{{0, 4}, {4, 8}, {8, 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Partition(10, 4) = %v, want %v", got, want)
	}
	if got := Partition(0, 4); got != nil {
		t.Errorf("Partition(0, 4) = %v, want nil", got)
	}
	w := Window{Start: 4, End: 8}
	if w.Len() != 4 || !w.Contains(4) || w.Contains(8) || w.Last() != 7 {
		t.Errorf("Window helpers wrong for %+v", w)
	}
}

func TestFitAnchors_PerfectLine(t *testing.T) {
	line, kept, ok := fitAnchors(linePoints(30, 2, 5), Bull, 50)
	if !ok {
		t.Fatal("fitAnchors() found no line")
	}
	if !almostEqual(line.Slope, 2) || !almostEqual(line.Intercept, 5) {
		t.Errorf("line = %+v, want slope 2 intercept 5", line)
	}
	if len(kept) != 30 {
		t.Errorf("kept %d anchors, want 30", len(kept))
	}
}

func TestFitWindow_PerfectLine(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 2*float64(i) + 5
	}
	set := extrema.Set{Min: linePoints(30, 2, 5)}

	c, ok := fitWindow(closes, set, Window{Start: 0, End: 30}, 50)
	if !ok {
		t.Fatal("fitWindow() found no line")
	}
	if c.Type != Bull {
		t.Errorf("Type = %s, want bull", c.Type)
	}
	if !almostEqual(c.Line.Slope, 2) || !almostEqual(c.Line.Intercept, 5) {
		t.Errorf("line = %+v, want slope 2 intercept 5", c.Line)
	}
}

func TestFitAnchors_TrimsWrongSide(t *testing.T) {
	points := []extrema.Point{
		{Index: 0, Value: 10},
		{Index: 5, Value: 40},
		{Index: 10, Value: 20},
		{Index: 20, Value: 30},
	}

	line, kept, ok := fitAnchors(points, Bull, 50)
	if !ok {
		t.Fatal("fitAnchors() found no line")
	}
	if !almostEqual(line.Slope, 1) || !almostEqual(line.Intercept, 10) {
		t.Errorf("line = %+v, want slope 1 intercept 10", line)
	}
	if len(kept) != 3 {
		t.Errorf("kept = %v, want 3 anchors", kept)
	}

	// The same points seen as resistance keep the high side.
	bear := []extrema.Point{
		{Index: 0, Value: 30},
		{Index: 5, Value: 0},
		{Index: 10, Value: 20},
		{Index: 20, Value: 10},
	}
	line, _, ok = fitAnchors(bear, Bear, 50)
	if !ok {
		t.Fatal("fitAnchors(bear) found no line")
	}
	if !almostEqual(line.Slope, -1) || !almostEqual(line.Intercept, 30) {
		t.Errorf("bear line = %+v, want slope -1 intercept 30", line)
	}
}

func TestFitAnchors_NoLine(t *testing.T) {
	tests := []struct {
		name   string
		points []extrema.Point
		typ    LineType
	}{
		{"no anchors", nil, Bull},
		{"single anchor", []extrema.Point{{Index: 3, Value: 10}}, Bull},
		{"wrong slope", linePoints(5, -1, 50), Bull},
		{"shared index", []extrema.Point{{Index: 2, Value: 1}, {Index: 2, Value: 3}}, Bull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := fitAnchors(tt.points, tt.typ, 50); ok {
				t.Error("fitAnchors() found a line, want none")
			}
		})
	}
}

func TestExtendLine(t *testing.T) {
	closes := []float64{100, 101, 99.5, 102, 104, 103, 106, 108}
	c := Candidate{
		Line:   regression.Line{Slope: 0, Intercept: 100},
		Type:   Bull,
		Window: Window{Start: 0, End: 4},
	}

	extended, ok := extendLine(closes, c, 0.01)
	if !ok {
		t.Fatal("extendLine() rejected a valid line")
	}
	if extended.Start != 0 || extended.End != len(closes)-1 {
		t.Errorf("span = [%d, %d], want [0, %d]", extended.Start, extended.End, len(closes)-1)
	}

	closes[2] = 98.5
	if _, ok := extendLine(closes, c, 0.01); ok {
		t.Error("extendLine() accepted a close 1.5% below support")
	}

	bear := Candidate{
		Line:   regression.Line{Slope: 0, Intercept: 100},
		Type:   Bear,
		Window: Window{Start: 0, End: 3},
	}
	if _, ok := extendLine([]float64{99, 100.5, 98, 150}, bear, 0.01); !ok {
		t.Error("extendLine() rejected resistance held inside its window")
	}
	if _, ok := extendLine([]float64{99, 101.5, 98}, bear, 0.01); ok {
		t.Error("extendLine() accepted a close 1.5% above resistance")
	}
}

func TestReduceLine(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	line := regression.Line{Slope: 1, Intercept: 100}

	if got := reduceLine(closes, 0, 19, line, 0.05); got != 5 {
		t.Errorf("reduceLine() = %d, want 5", got)
	}
	if got := reduceLine(closes, 8, 19, line, 0.05); got != 8 {
		t.Errorf("reduceLine() = %d, want it to stop at start 8", got)
	}
}

func TestInterceptNear(t *testing.T) {
	tests := []struct {
		base, other float64
		want        bool
	}{
		{100, 110, true},
		{100, 113, false},
		{-100, -110, true},
		{-100, -90, true},
		{-100, -115, false},
		{5, -5, false},
		{0, 0, true},
		{0, 1, false},
	}

	for _, tt := range tests {
		if got := interceptNear(tt.base, tt.other, 0.125); got != tt.want {
			t.Errorf("interceptNear(%v, %v) = %v, want %v", tt.base, tt.other, got, tt.want)
		}
	}
}

func TestConsolidate_MergesNearDuplicates(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i)
	}
	candidates := []Candidate{
		{Line: regression.Line{Slope: 0.5, Intercept: 100}, Type: Bull, Term: TermNear, Period: 27, Start: 0, End: 59},
		{Line: regression.Line{Slope: 0.51, Intercept: 100.5}, Type: Bull, Term: TermShort, Period: 56, Start: 10, End: 50},
		{Line: regression.Line{Slope: -0.5, Intercept: 130}, Type: Bear, Term: TermNear, Period: 27, Start: 0, End: 59},
	}

	lines := consolidate(closes, candidates, DefaultConfig())
	if len(lines) != 2 {
		t.Fatalf("consolidate() returned %d lines, want 2", len(lines))
	}

	bear, bull := lines[0], lines[1]
	if bear.Start != 27 || bear.End != 33 || bear.Members != 1 {
		t.Errorf("bear line = %+v, want span [27, 33] from one member", bear)
	}
	if bull.Members != 2 || bull.Term != TermShort {
		t.Errorf("bull line members=%d term=%s, want 2 and short", bull.Members, bull.Term)
	}
	if !almostEqual(bull.Line.Slope, 0.505) || !almostEqual(bull.Line.Intercept, 100.25) {
		t.Errorf("bull line = %+v, want averaged slope and intercept", bull.Line)
	}
	if bull.Start != 0 || bull.End != 59 {
		t.Errorf("bull span = [%d, %d], want [0, 59]", bull.Start, bull.End)
	}
	if !reflect.DeepEqual(bull.Periods, []int{27, 56}) {
		t.Errorf("bull periods = %v, want [27 56]", bull.Periods)
	}
}

func TestConsolidate_DropsLinesAwayFromPrice(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}
	candidates := []Candidate{
		{Line: regression.Line{Slope: 0, Intercept: 80}, Type: Bull, Start: 0, End: 29},
	}

	if lines := consolidate(closes, candidates, DefaultConfig()); len(lines) != 0 {
		t.Errorf("consolidate() = %+v, want no lines", lines)
	}
}

func TestAnalyzeTouches(t *testing.T) {
	closes := []float64{10, 11, 9, 10, 12}
	dates := seriesFromCloses("X", closes).Dates()
	line := regression.Line{Slope: 0, Intercept: 10}

	got := analyzeTouches(closes, dates, line, Bull, 0, 4, 0)

	wantEvents := []struct {
		index int
		event EventKind
		side  Side
	}{
		{0, EventTouch, SideAbove},
		{2, EventCross, SideBelow},
		{3, EventTouch, SideBelow},
		{4, EventCross, SideAbove},
	}
	if len(got.Touches) != len(wantEvents) {
		t.Fatalf("touches = %+v, want %d events", got.Touches, len(wantEvents))
	}
	for i, w := range wantEvents {
		tc := got.Touches[i]
		if tc.Index != w.index || tc.Event != w.event || tc.Side != w.side {
			t.Errorf("touch %d = %+v, want %+v", i, tc, w)
		}
		if !tc.Date.Equal(dates[w.index]) {
			t.Errorf("touch %d date = %v, want %v", i, tc.Date, dates[w.index])
		}
	}

	if len(got.Valid) != 2 || got.Valid[0].StartIndex != 0 || got.Valid[0].EndIndex != 1 ||
		got.Valid[1].StartIndex != 4 || got.Valid[1].EndIndex != 4 {
		t.Errorf("valid = %+v", got.Valid)
	}
	if len(got.Broken) != 1 || got.Broken[0].StartIndex != 2 || got.Broken[0].EndIndex != 3 {
		t.Errorf("broken = %+v", got.Broken)
	}

	// The same walk against resistance swaps valid and broken.
	bear := analyzeTouches(closes, dates, line, Bear, 1, 4, 0)
	if len(bear.Broken) != 2 || len(bear.Valid) != 1 || bear.Valid[0].StartIndex != 2 {
		t.Errorf("bear valid=%+v broken=%+v", bear.Valid, bear.Broken)
	}
}

func TestTouchTransitions(t *testing.T) {
	tests := []struct {
		state touchState
		obs   observation
		next  touchState
		event EventKind
	}{
		{stateAbove, obsAbove, stateAbove, ""},
		{stateAbove, obsBelow, stateBelow, EventCross},
		{stateAbove, obsEqual, stateAbove, EventTouch},
		{stateBelow, obsBelow, stateBelow, ""},
		{stateBelow, obsAbove, stateAbove, EventCross},
		{stateBelow, obsEqual, stateBelow, EventTouch},
	}

	for _, tt := range tests {
		tr := touchTransitions[tt.state][tt.obs]
		if tr.next != tt.next || tr.event != tt.event {
			t.Errorf("transition(%v, %v) = %+v, want next=%v event=%q", tt.state, tt.obs, tr, tt.next, tt.event)
		}
	}
}

func TestTrendlineForecast(t *testing.T) {
	tl := Trendline{Slope: 0.5, Intercept: 10, EndIndex: 100}
	if got := tl.Forecast(10); !almostEqual(got, 65) {
		t.Errorf("Forecast(10) = %v, want 65", got)
	}
}

func TestAnalyzer_MonotonicSeriesHasNoLines(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	a, err := NewAnalyzer(DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	result, err := a.Analyze(seriesFromCloses("MONO", closes))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Extrema.Len() != 0 || result.Candidates != 0 || len(result.Trendlines) != 0 {
		t.Errorf("extrema=%d candidates=%d trendlines=%d, want all zero",
			result.Extrema.Len(), result.Candidates, len(result.Trendlines))
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
	if _, err := a.Analyze(seriesFromCloses("NAN", []float64{10, math.NaN(), 11})); !errors.Is(err, apperrors.ErrInvalidSeries) {
		t.Errorf("Analyze(NaN) error = %v, want ErrInvalidSeries", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no periods", func(c *Config) { c.Periods = nil }},
		{"short period", func(c *Config) { c.Periods = []Period{{Term: TermNear, Length: 1}} }},
		{"unknown term", func(c *Config) { c.Periods = []Period{{Term: "weekly", Length: 10}} }},
		{"zero width", func(c *Config) { c.SmoothingWidths = []int{0} }},
		{"bad smoothing", func(c *Config) { c.Smoothing = "gaussian" }},
		{"negative extend tolerance", func(c *Config) { c.ExtendTolerance = -0.01 }},
		{"reduce tolerance of one", func(c *Config) { c.ReduceTolerance = 1 }},
		{"angle", func(c *Config) { c.AngleThreshold = 95 }},
		{"iterations", func(c *Config) { c.MaxFitIterations = 0 }},
		{"merged points", func(c *Config) { c.MinMergedPoints = 1 }},
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
			if !errors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("error %v does not unwrap to ErrConfigInvalid", err)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestAnalyzer_ConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	a, err := NewAnalyzer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	cfg.Periods[0].Length = 2

	if got := a.Config().Periods[0].Length; got != 27 {
		t.Errorf("analyzer period changed to %d after caller mutation", got)
	}
}
