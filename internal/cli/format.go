package cli

import (
	"fmt"
	"strings"
	"time"

	"trendscope/internal/analysis/levels"
	"trendscope/internal/analysis/trendlines"
	"trendscope/pkg/utils"
)

// FormatDate formats t with layout, or "-" for the zero time.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(layout)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatSpan formats an index span with its dates.
func FormatSpan(s trendlines.Span, layout string) string {
	return fmt.Sprintf("%s → %s", FormatDate(s.Start, layout), FormatDate(s.End, layout))
}

// FormatPeriods joins the lookback lengths that produced a line.
func FormatPeriods(periods []int) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

// FormatDistance returns the move from price to target as a signed percent.
func FormatDistance(price, target float64) string {
	return utils.FormatChange(price, target)
}

// lineTypeLabel returns a display label of a line type.
func (o *Output) lineTypeLabel(t trendlines.LineType) string {
	switch t {
	case trendlines.Bull:
		return o.Green("▲ bull")
	case trendlines.Bear:
		return o.Red("▼ bear")
	}
	return string(t)
}

// levelKindLabel returns a display label of a level kind.
func (o *Output) levelKindLabel(k levels.Kind) string {
	switch k {
	case levels.KindSupport:
		return o.Green(string(k))
	case levels.KindResistance:
		return o.Red(string(k))
	}
	return o.Yellow(string(k))
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
