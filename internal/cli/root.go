// Package cli provides the command-line interface of trendscope.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	"trendscope/internal/config"
	"trendscope/internal/logging"
	"trendscope/internal/market"
	"trendscope/internal/runner"
	"trendscope/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies. Config and Logger are set before
// any command runs; the store is opened on first use.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore

	loadConfig func(dir string) (*config.Config, error)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Logger:     logger,
		loadConfig: config.Load,
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trendscope",
		Short: "Trend line and support/resistance extraction",
		Long: `trendscope finds trend lines and horizontal support/resistance levels
in daily price history.

History comes from Yahoo Finance or local CSV files and is cached in a local
SQLite database. Results can be stored and reviewed later.

Use 'trendscope help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := app.loadConfig(dir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			if !cfg.UI.ColorEnabled {
				cmd.Flags().Set("no-color", "true")
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trendscope)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable coloured output")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addDataCommands(rootCmd, app)

	return rootCmd
}

// OpenStore opens the cache database on first use.
func (a *App) OpenStore() (store.DataStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	path := a.Config.Data.CacheDB
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", path).Msg("SQLite store initialized")
	a.Store = st
	return st, nil
}

// Close releases the store if it was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// Source returns the configured history source. Yahoo downloads go through
// the candle cache unless noCache is set.
func (a *App) Source(noCache bool) market.Source {
	if a.Config.Data.Source == "csv" {
		return market.NewCSVSource(a.Config.Data.CSVDir)
	}
	src := market.NewYahooSource(a.Config.Data.MaxRetries, a.Logger)
	if noCache {
		return src
	}
	st, err := a.OpenStore()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Candle cache unavailable, downloading directly")
		return src
	}
	return market.NewCachedSource(src, st, a.Config.Data.CacheTTL, a.Logger)
}

// Runner builds a batch runner from the configuration. Results can only be
// saved when the store opens.
func (a *App) Runner(noCache bool) (*runner.Runner, error) {
	trend, err := trendlines.NewAnalyzer(a.Config.TrendlineConfig(), a.Logger)
	if err != nil {
		return nil, err
	}
	lvl, err := levels.NewAnalyzer(a.Config.LevelConfig(), a.Logger)
	if err != nil {
		return nil, err
	}
	st, err := a.OpenStore()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Store unavailable, results will not be saved")
		st = nil
	}
	return runner.New(a.Source(noCache), st, trend, lvl, a.Config.Data.Concurrency, a.Logger), nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("trendscope v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and check the application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := app.Config.Path
			if path == "" {
				path = filepath.Join(config.DefaultConfigDir(), "config.toml")
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "template",
		Short: "Print the default configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Printf("%s", config.Template())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long:  "Load and validate the configuration. Invalid settings fail before this command runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	t := cfg.Trendlines
	output.Bold("Trend lines")
	for _, p := range t.Periods {
		output.Printf("  %-13s %d bars\n", string(p.Term)+":", p.Length)
	}
	output.Printf("  Smoothing:    %s %v\n", t.Smoothing, t.SmoothingWidths)
	output.Printf("  Dedup:        %s (%.3f)\n", t.DedupPolicy, t.DedupThreshold)
	output.Printf("  Tolerances:   extend %.2f%%, reduce %.2f%%, touch %.2f%%\n",
		t.ExtendTolerance*100, t.ReduceTolerance*100, t.TouchTolerance*100)
	output.Printf("  Merge:        angle %.1f°, intercept %.1f%%, distance %.1f%%, min points %d\n",
		t.AngleThreshold, t.InterceptThreshold*100, t.MergeDistance*100, t.MinMergedPoints)
	output.Println()

	l := cfg.Levels
	output.Bold("Support/resistance")
	output.Printf("  Windows:      %v (%s)\n", l.Windows, l.Variant)
	output.Printf("  Cluster:      %.2f%%, min %d points\n", l.ClusterThreshold*100, l.MinClusterSize)
	output.Printf("  Union:        %.2f%%\n", l.UnionThreshold*100)
	output.Printf("  Nearest:      %d\n", l.Nearest)
	output.Println()

	d := cfg.Data
	output.Bold("Data")
	output.Printf("  Source:       %s\n", d.Source)
	output.Printf("  History:      %d days\n", d.HistoryDays)
	output.Printf("  Cache:        %s (ttl %s)\n", d.CacheDB, d.CacheTTL)
	if d.Source == "csv" {
		output.Printf("  CSV dir:      %s\n", d.CSVDir)
	}
	output.Printf("  Concurrency:  %d\n", d.Concurrency)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:        %s\n", cfg.Log.Level)
	if cfg.Log.File {
		output.Printf("  File:         %s\n", cfg.Log.Path)
	}
}

// requestRange returns the history range the configuration asks for.
func (a *App) requestRange(now time.Time) (time.Time, time.Time) {
	return a.Config.HistoryStart(now), now
}
