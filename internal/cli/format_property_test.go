package cli

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trendscope/internal/analysis/trendlines"
)

// Property: TruncateString never exceeds the limit and keeps short strings
func TestProperty_TruncateString(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("truncated length is bounded", prop.ForAll(
		func(s string, maxLen int) bool {
			got := TruncateString(s, maxLen)
			n := utf8.RuneCountInString(s)
			if n <= maxLen {
				return got == s
			}
			if utf8.RuneCountInString(got) != maxLen {
				t.Logf("TruncateString(%q, %d) = %q", s, maxLen, got)
				return false
			}
			return maxLen <= 3 || strings.HasSuffix(got, "...")
		},
		gen.AnyString(),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

// Property: FormatDuration picks the unit by magnitude
func TestProperty_FormatDuration(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("unit follows magnitude", prop.ForAll(
		func(ms int64) bool {
			d := time.Duration(ms) * time.Millisecond
			got := FormatDuration(d)
			switch {
			case d < time.Second:
				return strings.HasSuffix(got, "ms")
			case d < time.Minute:
				return strings.HasSuffix(got, "s") && !strings.Contains(got, "m")
			case d < time.Hour:
				return strings.Contains(got, "m ") && strings.HasSuffix(got, "s")
			}
			return strings.Contains(got, "h ") && strings.HasSuffix(got, "m")
		},
		gen.Int64Range(0, int64(48*time.Hour/time.Millisecond)),
	))

	properties.TestingRun(t)
}

func TestFormatHelpers(t *testing.T) {
	layout := "2006-01-02"
	if got := FormatDate(time.Time{}, layout); got != "-" {
		t.Errorf("FormatDate(zero) = %q", got)
	}
	span := trendlines.Span{
		Start: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	if got := FormatSpan(span, layout); got != "2025-03-03 → 2025-04-01" {
		t.Errorf("FormatSpan() = %q", got)
	}
	if got := FormatPeriods([]int{27, 56}); got != "27,56" {
		t.Errorf("FormatPeriods() = %q", got)
	}
	if got := FormatDistance(100, 95); got != "-5.00%" {
		t.Errorf("FormatDistance() = %q", got)
	}
	if got := FormatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("FormatDuration() = %q", got)
	}
}
