package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# trendscope configuration
# Every key may be overridden from the environment, e.g.
# TRENDSCOPE_DATA_SOURCE=csv or TRENDSCOPE_LEVELS_NEAREST=5.

[trendlines]
# Smoothing widths used to find extrema; 1 means the raw series
smoothing_widths = [1, 5, 10]
# Smoothing kind: "simple" (trailing) or "windowed" (centred)
smoothing = "simple"
# Extrema deduplication: "threshold" or "point"
dedup_policy = "threshold"
# Relative value gap under which adjacent extrema are duplicates
dedup_threshold = 0.01
# Compare against the last kept extremum instead of the previous one
dedup_compare_to_kept = false
# Iteration cap for the trimmed line fit
max_fit_iterations = 50
# Violation allowed inside the fitted window
extend_tolerance = 0.01
# Deviation at which a projected line is cut back
reduce_tolerance = 0.05
# Lines closer than this angle (degrees) and intercept (relative) merge
angle_threshold = 2.5
intercept_threshold = 0.125
# Merged lines keep only the span within this distance of price
merge_distance = 0.03
min_merged_points = 4
# Relative distance counted as touching a line; 0 is exact equality
touch_tolerance = 0.0

[[trendlines.periods]]
term = "near"
length = 27

[[trendlines.periods]]
term = "short"
length = 56

[[trendlines.periods]]
term = "intermediate"
length = 91

[[trendlines.periods]]
term = "long"
length = 163

[levels]
# Window sizes searched for lows and highs
windows = [13, 21, 34, 55]
# Point finder: "windowed" or "convolution"
variant = "windowed"
# Relative gap that splits clusters
cluster_threshold = 0.007
min_cluster_size = 2
# Relative distance at which levels are unioned
union_threshold = 0.011
# Levels reported on each side of the current price
nearest = 3

[data]
# Price source: "yahoo" or "csv"
source = "yahoo"
# Days of daily history to analyse
history_days = 730
# Candle cache freshness (e.g. "12h"); "0s" disables the cache
cache_ttl = "12h"
# Parallel symbols in batch runs
concurrency = 4
# Retries for remote fetches
max_retries = 3
# cache_db and csv_dir default to this directory
# cache_db = "/path/to/trendscope.db"
# csv_dir = "/path/to/csv"

[log]
# Level: debug, info, warn, error
level = "info"
# Also write a rotating log file
file = false
max_size_mb = 50
max_backups = 5
max_age_days = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
`

// createTemplateConfig writes the default template and returns its path.
func createTemplateConfig(configDir, name string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}

// Template returns the default configuration file contents.
func Template() string {
	return configTemplate
}
