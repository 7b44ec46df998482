// Package config provides configuration management for trendscope.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"trendscope/internal/analysis/extrema"
	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	apperrors "trendscope/internal/errors"
	"trendscope/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. TRENDSCOPE_DATA_SOURCE.
const EnvPrefix = "TRENDSCOPE"

// Config holds all application configuration.
type Config struct {
	Trendlines TrendlinesConfig `mapstructure:"trendlines"`
	Levels     LevelsConfig     `mapstructure:"levels"`
	Data       DataConfig       `mapstructure:"data"`
	Log        LogSettings      `mapstructure:"log"`
	UI         UIConfig         `mapstructure:"ui"`

	// Path is the file the configuration was read from, empty when only
	// defaults apply.
	Path string `mapstructure:"-"`
}

// TrendlinesConfig holds the trend line tunables.
type TrendlinesConfig struct {
	Periods            []trendlines.Period `mapstructure:"periods"`
	SmoothingWidths    []int               `mapstructure:"smoothing_widths"`
	Smoothing          string              `mapstructure:"smoothing"` // simple, windowed
	DedupPolicy        string              `mapstructure:"dedup_policy"`
	DedupThreshold     float64             `mapstructure:"dedup_threshold"`
	DedupCompareToKept bool                `mapstructure:"dedup_compare_to_kept"`
	MaxFitIterations   int                 `mapstructure:"max_fit_iterations"`
	ExtendTolerance    float64             `mapstructure:"extend_tolerance"`
	ReduceTolerance    float64             `mapstructure:"reduce_tolerance"`
	AngleThreshold     float64             `mapstructure:"angle_threshold"`
	InterceptThreshold float64             `mapstructure:"intercept_threshold"`
	MergeDistance      float64             `mapstructure:"merge_distance"`
	MinMergedPoints    int                 `mapstructure:"min_merged_points"`
	TouchTolerance     float64             `mapstructure:"touch_tolerance"`
}

// LevelsConfig holds the support/resistance tunables.
type LevelsConfig struct {
	Windows          []int   `mapstructure:"windows"`
	Variant          string  `mapstructure:"variant"` // windowed, convolution
	ClusterThreshold float64 `mapstructure:"cluster_threshold"`
	MinClusterSize   int     `mapstructure:"min_cluster_size"`
	UnionThreshold   float64 `mapstructure:"union_threshold"`
	Nearest          int     `mapstructure:"nearest"`
}

// DataConfig holds market data settings.
type DataConfig struct {
	Source      string        `mapstructure:"source"` // yahoo, csv
	HistoryDays int           `mapstructure:"history_days"`
	CacheDB     string        `mapstructure:"cache_db"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CSVDir      string        `mapstructure:"csv_dir"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// LogSettings holds logging configuration.
type LogSettings struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trendscope"
	}
	return filepath.Join(home, ".config", "trendscope")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	path, err := loadConfigFile(configDir, "config", cfg)
	if err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := newViper(DefaultConfigDir())
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, configDir)
	return v
}

func setDefaults(v *viper.Viper, configDir string) {
	tl := trendlines.DefaultConfig()
	periods := make([]map[string]interface{}, 0, len(tl.Periods))
	for _, p := range tl.Periods {
		periods = append(periods, map[string]interface{}{"term": string(p.Term), "length": p.Length})
	}
	v.SetDefault("trendlines.periods", periods)
	v.SetDefault("trendlines.smoothing_widths", tl.SmoothingWidths)
	v.SetDefault("trendlines.smoothing", string(tl.Smoothing))
	v.SetDefault("trendlines.dedup_policy", string(tl.Dedup.Policy))
	v.SetDefault("trendlines.dedup_threshold", tl.Dedup.Threshold)
	v.SetDefault("trendlines.dedup_compare_to_kept", tl.Dedup.CompareToKept)
	v.SetDefault("trendlines.max_fit_iterations", tl.MaxFitIterations)
	v.SetDefault("trendlines.extend_tolerance", tl.ExtendTolerance)
	v.SetDefault("trendlines.reduce_tolerance", tl.ReduceTolerance)
	v.SetDefault("trendlines.angle_threshold", tl.AngleThreshold)
	v.SetDefault("trendlines.intercept_threshold", tl.InterceptThreshold)
	v.SetDefault("trendlines.merge_distance", tl.MergeDistance)
	v.SetDefault("trendlines.min_merged_points", tl.MinMergedPoints)
	v.SetDefault("trendlines.touch_tolerance", tl.TouchTolerance)

	lv := levels.DefaultConfig()
	v.SetDefault("levels.windows", lv.Windows)
	v.SetDefault("levels.variant", string(lv.Variant))
	v.SetDefault("levels.cluster_threshold", lv.ClusterThreshold)
	v.SetDefault("levels.min_cluster_size", lv.MinClusterSize)
	v.SetDefault("levels.union_threshold", lv.UnionThreshold)
	v.SetDefault("levels.nearest", lv.Nearest)

	v.SetDefault("data.source", "yahoo")
	v.SetDefault("data.history_days", 730)
	v.SetDefault("data.cache_db", filepath.Join(configDir, "trendscope.db"))
	v.SetDefault("data.cache_ttl", 12*time.Hour)
	v.SetDefault("data.csv_dir", filepath.Join(configDir, "csv"))
	v.SetDefault("data.concurrency", 4)
	v.SetDefault("data.max_retries", 3)

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.file", logDefaults.File)
	v.SetDefault("log.path", filepath.Join(configDir, "logs", "trendscope.log"))
	v.SetDefault("log.max_size_mb", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age_days", logDefaults.MaxAge)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
}

// loadConfigFile reads name.toml from configDir into target and returns
// the path it was read from.
func loadConfigFile(configDir, name string, target interface{}) (string, error) {
	v := newViper(configDir)
	v.SetConfigName(name)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", err
		}
		// Config file not found, create template and continue on defaults
		if _, err := createTemplateConfig(configDir, name); err != nil {
			return "", err
		}
		return "", v.Unmarshal(target)
	}

	return v.ConfigFileUsed(), v.Unmarshal(target)
}

// TrendlineConfig converts the trendlines section into analyzer settings.
func (c *Config) TrendlineConfig() trendlines.Config {
	t := c.Trendlines
	return trendlines.Config{
		Periods:         append([]trendlines.Period(nil), t.Periods...),
		SmoothingWidths: append([]int(nil), t.SmoothingWidths...),
		Smoothing:       extrema.SmoothingKind(t.Smoothing),
		Dedup: extrema.DedupOptions{
			Policy:        extrema.DedupPolicy(t.DedupPolicy),
			Threshold:     t.DedupThreshold,
			CompareToKept: t.DedupCompareToKept,
		},
		MaxFitIterations:   t.MaxFitIterations,
		ExtendTolerance:    t.ExtendTolerance,
		ReduceTolerance:    t.ReduceTolerance,
		AngleThreshold:     t.AngleThreshold,
		InterceptThreshold: t.InterceptThreshold,
		MergeDistance:      t.MergeDistance,
		MinMergedPoints:    t.MinMergedPoints,
		TouchTolerance:     t.TouchTolerance,
	}
}

// LevelConfig converts the levels section into analyzer settings.
func (c *Config) LevelConfig() levels.Config {
	l := c.Levels
	return levels.Config{
		Windows:          append([]int(nil), l.Windows...),
		Variant:          levels.Variant(l.Variant),
		ClusterThreshold: l.ClusterThreshold,
		MinClusterSize:   l.MinClusterSize,
		UnionThreshold:   l.UnionThreshold,
		Nearest:          l.Nearest,
	}
}

// LogConfig converts the log section into logger settings.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Log.Level,
		Console:    true,
		File:       c.Log.File,
		FilePath:   c.Log.Path,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
	}
}

// HistoryStart returns the first date to request relative to now.
func (c *Config) HistoryStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.Data.HistoryDays)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.TrendlineConfig().Validate(); err != nil {
		return err
	}
	if err := c.LevelConfig().Validate(); err != nil {
		return err
	}

	switch c.Data.Source {
	case "yahoo", "csv":
	default:
		return apperrors.NewConfigurationError("data", "source", c.Data.Source, "must be 'yahoo' or 'csv'")
	}
	if c.Data.Source == "csv" && c.Data.CSVDir == "" {
		return apperrors.NewConfigurationError("data", "csv_dir", c.Data.CSVDir, "required when source is 'csv'")
	}
	if c.Data.HistoryDays < 2 {
		return apperrors.NewConfigurationError("data", "history_days", c.Data.HistoryDays, "must be at least 2")
	}
	if c.Data.Concurrency < 1 {
		return apperrors.NewConfigurationError("data", "concurrency", c.Data.Concurrency, "must be positive")
	}
	if c.Data.MaxRetries < 0 {
		return apperrors.NewConfigurationError("data", "max_retries", c.Data.MaxRetries, "must be non-negative")
	}
	if c.Data.CacheTTL < 0 {
		return apperrors.NewConfigurationError("data", "cache_ttl", c.Data.CacheTTL, "must be non-negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.NewConfigurationError("log", "level", c.Log.Level, "must be debug, info, warn or error")
	}

	return nil
}
