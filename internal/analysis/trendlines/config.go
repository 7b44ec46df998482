package trendlines

import (
	"math"

	"trendscope/internal/analysis/extrema"
	apperrors "trendscope/internal/errors"
)

// Term classifies a trend line by the lookback period that produced it.
type Term string

const (
	TermNear         Term = "near"
	TermShort        Term = "short"
	TermIntermediate Term = "intermediate"
	TermLong         Term = "long"
)

// Period is one lookback used by the windowed line fitter.
type Period struct {
	Term   Term `json:"term" mapstructure:"term"`
	Length int  `json:"length" mapstructure:"length"`
}

// Config holds the trend line tunables. Analyzers copy it on construction,
// so a Config can be reused and modified freely afterwards.
type Config struct {
	Periods         []Period
	SmoothingWidths []int
	Smoothing       extrema.SmoothingKind
	Dedup           extrema.DedupOptions

	MaxFitIterations int

	// ExtendTolerance is the violation allowed inside the fitted window
	// before a candidate is discarded. ReduceTolerance is the deviation at
	// which the provisional end point is walked back. They are tuned
	// independently: strict inside the window, looser when projecting.
	ExtendTolerance float64
	ReduceTolerance float64

	AngleThreshold     float64 // degrees
	InterceptThreshold float64 // relative
	MergeDistance      float64 // relative distance from close kept after a merge
	MinMergedPoints    int

	TouchTolerance float64 // relative; 0 means exact equality
}

// DefaultPeriods returns the near/short/intermediate/long lookbacks.
func DefaultPeriods() []Period {
	return []Period{
		{Term: TermNear, Length: 27},
		{Term: TermShort, Length: 56},
		{Term: TermIntermediate, Length: 91},
		{Term: TermLong, Length: 163},
	}
}

// DefaultConfig returns the default trend line configuration.
func DefaultConfig() Config {
	return Config{
		Periods:            DefaultPeriods(),
		SmoothingWidths:    []int{1, 5, 10},
		Smoothing:          extrema.SmoothingSimple,
		Dedup:              extrema.DefaultDedupOptions(),
		MaxFitIterations:   50,
		ExtendTolerance:    0.01,
		ReduceTolerance:    0.05,
		AngleThreshold:     2.5,
		InterceptThreshold: 0.125,
		MergeDistance:      0.03,
		MinMergedPoints:    4,
		TouchTolerance:     0,
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Periods = append([]Period(nil), c.Periods...)
	out.SmoothingWidths = append([]int(nil), c.SmoothingWidths...)
	return out
}

// Validate checks every tunable and returns a *errors.ConfigurationError for
// the first one out of range.
func (c Config) Validate() error {
	if len(c.Periods) == 0 {
		return configErr("periods", c.Periods, "at least one period is required")
	}
	for _, p := range c.Periods {
		if p.Length < 2 {
			return configErr("periods", p.Length, "period length must be at least 2")
		}
		switch p.Term {
		case TermNear, TermShort, TermIntermediate, TermLong:
		default:
			return configErr("periods", p.Term, "unknown term")
		}
	}
	if len(c.SmoothingWidths) == 0 {
		return configErr("smoothing_widths", c.SmoothingWidths, "at least one width is required")
	}
	for _, w := range c.SmoothingWidths {
		if w < 1 {
			return configErr("smoothing_widths", w, "width must be positive")
		}
	}
	if !c.Smoothing.Valid() {
		return configErr("smoothing", c.Smoothing, "must be simple or windowed")
	}
	if !c.Dedup.Policy.Valid() {
		return configErr("dedup_policy", c.Dedup.Policy, "must be threshold or point")
	}
	if err := checkFraction("dedup_threshold", c.Dedup.Threshold); err != nil {
		return err
	}
	if c.MaxFitIterations < 1 {
		return configErr("max_fit_iterations", c.MaxFitIterations, "must be positive")
	}
	fractions := []struct {
		name  string
		value float64
	}{
		{"extend_tolerance", c.ExtendTolerance},
		{"reduce_tolerance", c.ReduceTolerance},
		{"intercept_threshold", c.InterceptThreshold},
		{"merge_distance", c.MergeDistance},
		{"touch_tolerance", c.TouchTolerance},
	}
	for _, f := range fractions {
		if err := checkFraction(f.name, f.value); err != nil {
			return err
		}
	}
	if math.IsNaN(c.AngleThreshold) || c.AngleThreshold < 0 || c.AngleThreshold >= 90 {
		return configErr("angle_threshold", c.AngleThreshold, "must be in [0, 90)")
	}
	if c.MinMergedPoints < 2 {
		return configErr("min_merged_points", c.MinMergedPoints, "must be at least 2")
	}
	return nil
}

func checkFraction(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v >= 1 {
		return configErr(field, v, "must be in [0, 1)")
	}
	return nil
}

func configErr(field string, value interface{}, message string) error {
	return apperrors.NewConfigurationError("trendlines", field, value, message)
}
