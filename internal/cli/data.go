package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trendscope/internal/market"
	"trendscope/internal/store"
	"trendscope/pkg/utils"
)

// addDataCommands adds history download, stored analysis and watchlist
// commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newFetchCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
}

func newFetchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <symbol...>",
		Short: "Download daily history into the cache",
		Long: `Download daily candles from Yahoo Finance and store them in the candle
cache. With --csv the candles are also written to <dir>/<SYMBOL>.csv, the
layout the csv data source reads.`,
		Example: `  trendscope fetch SPY QQQ
  trendscope fetch AAPL --days 3650 --csv ./data`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			days, _ := cmd.Flags().GetInt("days")
			csvDir, _ := cmd.Flags().GetString("csv")

			st, err := app.OpenStore()
			if err != nil {
				output.Error("Opening cache failed: %v", err)
				return err
			}
			// A zero ttl always downloads and refreshes the cache.
			src := market.NewCachedSource(market.NewYahooSource(app.Config.Data.MaxRetries, app.Logger), st, 0, app.Logger)

			now := time.Now()
			from, to := app.requestRange(now)
			if days > 0 {
				from = now.AddDate(0, 0, -days)
			}

			type fetched struct {
				Symbol  string    `json:"symbol"`
				Candles int       `json:"candles"`
				First   time.Time `json:"first"`
				Last    time.Time `json:"last"`
				AvgVol  float64   `json:"avg_volume"`
				CSV     string    `json:"csv,omitempty"`
				Error   string    `json:"error,omitempty"`
			}
			var results []fetched
			failed := 0
			for _, symbol := range args {
				symbol = market.NormalizeSymbol(symbol)
				series, err := src.History(ctx, symbol, from, to)
				if err != nil {
					failed++
					results = append(results, fetched{Symbol: symbol, Error: err.Error()})
					continue
				}
				f := fetched{Symbol: symbol, Candles: series.Len()}
				f.First = series.DateAt(0)
				f.Last = series.DateAt(series.Len() - 1)
				for _, c := range series.Candles {
					f.AvgVol += float64(c.Volume)
				}
				f.AvgVol /= float64(series.Len())
				if csvDir != "" {
					path, err := market.NewCSVSource(csvDir).Save(series)
					if err != nil {
						failed++
						f.Error = err.Error()
					}
					f.CSV = path
				}
				results = append(results, f)
			}

			if output.IsJSON() {
				if err := output.JSON(results); err != nil {
					return err
				}
			} else {
				layout := app.Config.UI.DateFormat
				table := NewTable(output, "Symbol", "Candles", "From", "To", "Avg vol", "CSV").AlignRight(2, 5)
				for _, f := range results {
					if f.Error != "" && f.Candles == 0 {
						table.AddRow(f.Symbol, "-", "-", "-", "-", output.Red(TruncateString(f.Error, 60)))
						continue
					}
					table.AddRow(f.Symbol, fmt.Sprint(f.Candles), FormatDate(f.First, layout), FormatDate(f.Last, layout), utils.FormatCompact(f.AvgVol), f.CSV)
				}
				table.Render()
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 0, "Days of history (default from config)")
	cmd.Flags().String("csv", "", "Also export to this directory as CSV")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [symbol]",
		Short: "List stored analyses",
		Long:  "List analyses saved with --save, newest first.",
		Example: `  trendscope history
  trendscope history SPY --kind levels --limit 5
  trendscope history SPY --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			kind, _ := cmd.Flags().GetString("kind")
			limit, _ := cmd.Flags().GetInt("limit")
			days, _ := cmd.Flags().GetInt("days")

			filter := store.AnalysisFilter{Kind: store.AnalysisKind(kind), Limit: limit}
			if len(args) > 0 {
				filter.Symbol = market.NormalizeSymbol(args[0])
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}
			switch filter.Kind {
			case "", store.AnalysisTrendlines, store.AnalysisLevels:
			default:
				return fmt.Errorf("unknown kind %q: use trendlines or levels", kind)
			}

			st, err := app.OpenStore()
			if err != nil {
				output.Error("Opening store failed: %v", err)
				return err
			}
			records, err := st.GetAnalyses(ctx, filter)
			if err != nil {
				output.Error("Loading analyses failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Info("No stored analyses. Run an analysis with --save first.")
				return nil
			}
			table := NewTable(output, "ID", "Run at", "Symbol", "Kind", "Candles", "Close", "Found").AlignRight(1, 5, 6, 7)
			for _, r := range records {
				table.AddRow(
					fmt.Sprint(r.ID),
					r.RunAt.Local().Format("2006-01-02 15:04"),
					r.Symbol,
					string(r.Kind),
					fmt.Sprint(r.Candles),
					utils.FormatPrice(r.LastClose),
					fmt.Sprint(r.Found),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("kind", "", "Only this kind (trendlines, levels)")
	cmd.Flags().Int("limit", 20, "Maximum records")
	cmd.Flags().Int("days", 0, "Only analyses from the last N days")
	return cmd
}

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Watchlist management",
		Long:  "Add, remove, and list symbols in watchlists. Analysis commands take -w <name>.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol> [watchlist]",
		Short: "Add symbol to watchlist",
		Long:  "Add a symbol to a watchlist. Default watchlist is 'default'.",
		Example: `  trendscope watchlist add SPY
  trendscope watchlist add QQQ core`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := market.NormalizeSymbol(args[0])
			if err := market.ValidateSymbol(symbol); err != nil {
				output.Error("%v", err)
				return err
			}
			listName := watchlistName(args)

			st, err := app.OpenStore()
			if err != nil {
				return err
			}
			if err := st.AddToWatchlist(ctx, symbol, listName); err != nil {
				output.Error("Failed to add to watchlist: %v", err)
				return err
			}
			output.Success("✓ Added %s to watchlist '%s'", symbol, listName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol> [watchlist]",
		Short: "Remove symbol from watchlist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol := market.NormalizeSymbol(args[0])
			listName := watchlistName(args)

			st, err := app.OpenStore()
			if err != nil {
				return err
			}
			if err := st.RemoveFromWatchlist(ctx, symbol, listName); err != nil {
				output.Error("Failed to remove from watchlist: %v", err)
				return err
			}
			output.Success("✓ Removed %s from watchlist '%s'", symbol, listName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list [watchlist]",
		Short: "List watchlist symbols",
		Long:  "Display all symbols in a watchlist. Shows all watchlists if none specified.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			st, err := app.OpenStore()
			if err != nil {
				return err
			}

			if len(args) > 0 {
				listName := args[0]
				symbols, err := st.GetWatchlist(ctx, listName)
				if err != nil {
					output.Error("Failed to get watchlist: %v", err)
					return err
				}
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{
						"name":    listName,
						"symbols": symbols,
					})
				}
				output.Bold("Watchlist: %s", listName)
				output.Printf("  %d symbols\n\n", len(symbols))
				for _, s := range symbols {
					output.Printf("  • %s\n", s)
				}
				return nil
			}

			watchlists, err := st.GetAllWatchlists(ctx)
			if err != nil {
				output.Error("Failed to get watchlists: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(watchlists)
			}
			if len(watchlists) == 0 {
				output.Info("No watchlists yet. Add one with 'trendscope watchlist add <symbol> [name]'.")
				return nil
			}
			names := make([]string, 0, len(watchlists))
			for name := range watchlists {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				output.Printf("%s (%d): %s\n", output.Cyan(name), len(watchlists[name]), strings.Join(watchlists[name], ", "))
			}
			return nil
		},
	})

	return cmd
}

func watchlistName(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return "default"
}
