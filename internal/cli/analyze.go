package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	"trendscope/internal/runner"
	"trendscope/pkg/utils"
)

// forecastDays are the horizons shown for active trend lines.
var forecastDays = []int{5, 10, 20}

// addAnalysisCommands adds the trend line and level commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTrendlinesCmd(app))
	rootCmd.AddCommand(newLevelsCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
}

// addRunFlags adds the flags shared by every analysis command.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("watchlist", "w", "", "Analyse the symbols of a watchlist")
	cmd.Flags().Int("days", 0, "Days of history to load (default from config)")
	cmd.Flags().Bool("save", false, "Store the results for 'trendscope history'")
	cmd.Flags().Bool("no-cache", false, "Download without reading or writing the candle cache")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Overall timeout")
}

func newTrendlinesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trendlines [symbol...]",
		Aliases: []string{"tl"},
		Short:   "Extract trend lines",
		Long: `Fit bull and bear trend lines over near, short, intermediate and long
lookbacks, merge lines that draw alike and report where price touched or
crossed each line.

By default only lines price currently respects are listed, with their
projected value 5, 10 and 20 bars ahead.`,
		Example: `  trendscope trendlines SPY
  trendscope trendlines AAPL MSFT --all
  trendscope trendlines -w core --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			showAll, _ := cmd.Flags().GetBool("all")
			showTouches, _ := cmd.Flags().GetBool("touches")

			reports, err := runAnalysis(cmd, app, args, runner.Options{Trendlines: true})
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(reports)
			}
			for i, rep := range reports {
				if i > 0 {
					output.Println()
				}
				if printFailure(output, rep) {
					continue
				}
				renderTrendlines(output, rep.Trendlines, app.Config.UI.DateFormat, showAll, showTouches)
			}
			return batchError(reports)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().BoolP("all", "a", false, "List every line, not only active ones")
	cmd.Flags().Bool("touches", false, "List the touches and crosses of each line")
	return cmd
}

func newLevelsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "levels [symbol...]",
		Aliases: []string{"sr"},
		Short:   "Find support and resistance levels",
		Long: `Cluster window lows and highs into horizontal levels, union levels that
lie close together and list the nearest supports below and resistances
above the last close.`,
		Example: `  trendscope levels SPY
  trendscope levels QQQ --clusters
  trendscope levels -w core --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			showClusters, _ := cmd.Flags().GetBool("clusters")

			reports, err := runAnalysis(cmd, app, args, runner.Options{Levels: true})
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(reports)
			}
			for i, rep := range reports {
				if i > 0 {
					output.Println()
				}
				if printFailure(output, rep) {
					continue
				}
				renderLevels(output, rep.Levels, app.Config.UI.DateFormat, showClusters)
			}
			return batchError(reports)
		},
	}

	addRunFlags(cmd)
	cmd.Flags().Bool("clusters", false, "Also list every major level and the raw clusters")
	return cmd
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [symbol...]",
		Short: "Run trend line and level analysis together",
		Example: `  trendscope analyze SPY
  trendscope analyze -w core --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			reports, err := runAnalysis(cmd, app, args, runner.Options{Trendlines: true, Levels: true})
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(reports)
			}
			for i, rep := range reports {
				if i > 0 {
					output.Println()
				}
				if printFailure(output, rep) {
					continue
				}
				renderTrendlines(output, rep.Trendlines, app.Config.UI.DateFormat, false, false)
				output.Println()
				renderLevels(output, rep.Levels, app.Config.UI.DateFormat, false)
			}
			return batchError(reports)
		},
	}

	addRunFlags(cmd)
	return cmd
}

// runAnalysis resolves the symbols of a command and runs the batch.
func runAnalysis(cmd *cobra.Command, app *App, args []string, opts runner.Options) ([]runner.Report, error) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	listName, _ := cmd.Flags().GetString("watchlist")
	symbols, err := resolveSymbols(ctx, app, args, listName)
	if err != nil {
		return nil, err
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	r, err := app.Runner(noCache)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	opts.From, opts.To = app.requestRange(now)
	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		opts.From = now.AddDate(0, 0, -days)
	}
	opts.Save, _ = cmd.Flags().GetBool("save")

	return r.Run(ctx, symbols, opts)
}

// resolveSymbols combines the arguments with the symbols of a watchlist.
func resolveSymbols(ctx context.Context, app *App, args []string, listName string) ([]string, error) {
	symbols := append([]string(nil), args...)
	if listName != "" {
		st, err := app.OpenStore()
		if err != nil {
			return nil, err
		}
		list, err := st.GetWatchlist(ctx, listName)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("watchlist '%s' is empty", listName)
		}
		symbols = append(symbols, list...)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols given")
	}
	return symbols, nil
}

// printFailure prints the error of a failed report and reports whether it
// failed.
func printFailure(output *Output, rep runner.Report) bool {
	if rep.Err == nil {
		return false
	}
	output.Error("%s: %v", rep.Symbol, rep.Err)
	return true
}

// batchError returns an error when every symbol failed.
func batchError(reports []runner.Report) error {
	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(reports) {
		return fmt.Errorf("all %d symbols failed", failed)
	}
	return nil
}

func renderTrendlines(output *Output, res *trendlines.Result, layout string, showAll, showTouches bool) {
	if res == nil {
		return
	}
	output.Bold("%s  %s on %s", res.Symbol, utils.FormatPrice(res.LastClose), FormatDate(res.LastDate, layout))

	active := res.Active()
	output.Dim("%d trend lines from %d candidates, %d active", len(res.Trendlines), res.Candidates, len(active))
	if len(res.Trendlines) == 0 {
		output.Warning("No trend lines found")
		return
	}

	lines := active
	if showAll {
		lines = res.Trendlines
	}
	if len(lines) == 0 {
		output.Info("No line is respected at the last close; use --all to list broken lines")
		return
	}

	headers := []string{"Type", "Term", "From", "To", "Slope", "Line", "Dist", "Crosses"}
	for _, d := range forecastDays {
		headers = append(headers, fmt.Sprintf("+%dd", d))
	}
	if showAll {
		headers = append(headers, "Status")
	}
	table := NewTable(output, headers...).AlignRight(5, 6, 7, 8, 9, 10, 11)

	for _, t := range lines {
		now := t.Line().At(res.LastIndex)
		row := []string{
			output.lineTypeLabel(t.Type),
			string(t.Term),
			FormatDate(t.StartDate, layout),
			FormatDate(t.EndDate, layout),
			utils.FormatSlope(t.Slope),
			utils.FormatPrice(now),
			FormatDistance(res.LastClose, now),
			fmt.Sprintf("%d", t.Crosses()),
		}
		for _, d := range forecastDays {
			if t.EndIndex == res.LastIndex {
				row = append(row, utils.FormatPrice(t.Forecast(d)))
			} else {
				row = append(row, "-")
			}
		}
		if showAll {
			if t.Active(res.LastIndex) {
				row = append(row, output.Green("active"))
			} else {
				row = append(row, output.DimText("broken"))
			}
		}
		table.AddRow(row...)
	}
	table.Render()

	if showTouches {
		for _, t := range lines {
			renderTouches(output, t, layout)
		}
	}
}

func renderTouches(output *Output, t trendlines.Trendline, layout string) {
	output.Println()
	output.Bold("%s %s line from %s (periods %s)", t.Term, t.Type, FormatDate(t.StartDate, layout), FormatPeriods(t.Periods))
	if len(t.Touches) == 0 {
		output.Dim("  no touches")
		return
	}
	table := NewTable(output, "Date", "Event", "Side", "Close", "Line").AlignRight(4, 5)
	for _, touch := range t.Touches {
		event := string(touch.Event)
		if touch.Event == trendlines.EventCross {
			event = output.Yellow(event)
		}
		table.AddRow(
			FormatDate(touch.Date, layout),
			event,
			string(touch.Side),
			utils.FormatPrice(touch.Price),
			utils.FormatPrice(touch.LineValue),
		)
	}
	table.Render()

	spans := make([]string, 0, len(t.ValidPeriods))
	for _, s := range t.ValidPeriods {
		spans = append(spans, FormatSpan(s, layout))
	}
	if len(spans) > 0 {
		output.Dim("  respected: %s", strings.Join(spans, "; "))
	}
}

func renderLevels(output *Output, res *levels.Result, layout string, showClusters bool) {
	if res == nil {
		return
	}
	output.Bold("%s  %s on %s", res.Symbol, utils.FormatPrice(res.CurrentPrice), FormatDate(res.LastDate, layout))
	output.Dim("%d major levels from %d support and %d resistance clusters",
		len(res.Major), len(res.SupportClusters), len(res.ResistanceClusters))

	if len(res.Resistances) == 0 && len(res.Supports) == 0 {
		output.Warning("No levels found")
		return
	}

	table := NewTable(output, "", "Price", "Dist", "Kind", "Points", "Since").AlignRight(2, 3, 5)
	// Resistances print farthest first so the table reads top-down in price.
	for i := len(res.Resistances) - 1; i >= 0; i-- {
		addLevelRow(output, table, "R"+fmt.Sprint(i+1), res.Resistances[i], res.CurrentPrice, layout)
	}
	for i, l := range res.Supports {
		addLevelRow(output, table, "S"+fmt.Sprint(i+1), l, res.CurrentPrice, layout)
	}
	table.Render()

	if !showClusters {
		return
	}
	output.Println()
	output.Bold("Major levels")
	major := NewTable(output, "Price", "Kind", "Points", "Windows", "Since").AlignRight(1, 3)
	for _, l := range res.Major {
		major.AddRow(utils.FormatPrice(l.Price), output.levelKindLabel(l.Kind), fmt.Sprint(l.Count), FormatPeriods(l.Windows), FormatDate(l.StartDate, layout))
	}
	major.Render()

	output.Println()
	output.Bold("Clusters")
	clusters := NewTable(output, "Window", "Price", "Kind", "Points").AlignRight(1, 2, 4)
	for _, group := range [][]levels.Level{res.SupportClusters, res.ResistanceClusters} {
		for _, l := range group {
			clusters.AddRow(FormatPeriods(l.Windows), utils.FormatPrice(l.Price), output.levelKindLabel(l.Kind), fmt.Sprint(l.Count))
		}
	}
	clusters.Render()
}

func addLevelRow(output *Output, table *Table, label string, l levels.Level, price float64, layout string) {
	table.AddRow(
		label,
		utils.FormatPrice(l.Price),
		output.Signed(l.Price-price, FormatDistance(price, l.Price)),
		output.levelKindLabel(l.Kind),
		fmt.Sprint(l.Count),
		FormatDate(l.StartDate, layout),
	)
}
