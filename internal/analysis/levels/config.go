package levels

import (
	"math"

	apperrors "trendscope/internal/errors"
)

// Variant selects how candidate points are taken from each window.
type Variant string

const (
	// VariantWindowed splits the series into consecutive non-overlapping
	// windows.
	VariantWindowed Variant = "windowed"
	// VariantConvolution slides the window one bar at a time and keeps each
	// index once.
	VariantConvolution Variant = "convolution"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantWindowed || v == VariantConvolution
}

// Config holds the support/resistance tunables.
type Config struct {
	Windows []int
	Variant Variant

	ClusterThreshold float64 // relative gap between adjacent sorted points
	MinClusterSize   int
	UnionThreshold   float64 // relative distance at which levels merge
	Nearest          int     // levels reported on each side of price
}

// DefaultWindows returns the default window sizes.
func DefaultWindows() []int {
	return []int{13, 21, 34, 55}
}

// DefaultConfig returns the default support/resistance configuration.
func DefaultConfig() Config {
	return Config{
		Windows:          DefaultWindows(),
		Variant:          VariantWindowed,
		ClusterThreshold: 0.007,
		MinClusterSize:   2,
		UnionThreshold:   0.011,
		Nearest:          3,
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Windows = append([]int(nil), c.Windows...)
	return out
}

// Validate returns a *errors.ConfigurationError for the first tunable out
// of range.
func (c Config) Validate() error {
	if len(c.Windows) == 0 {
		return configErr("windows", c.Windows, "at least one window is required")
	}
	for _, w := range c.Windows {
		if w < 2 {
			return configErr("windows", w, "window must be at least 2")
		}
	}
	if !c.Variant.Valid() {
		return configErr("variant", c.Variant, "must be windowed or convolution")
	}
	if math.IsNaN(c.ClusterThreshold) || c.ClusterThreshold <= 0 || c.ClusterThreshold >= 1 {
		return configErr("cluster_threshold", c.ClusterThreshold, "must be in (0, 1)")
	}
	if math.IsNaN(c.UnionThreshold) || c.UnionThreshold < 0 || c.UnionThreshold >= 1 {
		return configErr("union_threshold", c.UnionThreshold, "must be in [0, 1)")
	}
	if c.MinClusterSize < 2 {
		return configErr("min_cluster_size", c.MinClusterSize, "must be at least 2")
	}
	if c.Nearest < 1 {
		return configErr("nearest", c.Nearest, "must be positive")
	}
	return nil
}

func configErr(field string, value interface{}, message string) error {
	return apperrors.NewConfigurationError("levels", field, value, message)
}
