package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPrice formats a price with thousands separators and two decimals.
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "-"
	}
	sign := ""
	if price < 0 {
		sign = "-"
		price = -price
	}
	s := fmt.Sprintf("%.2f", price)
	intPart, decPart := s[:len(s)-3], s[len(s)-3:]
	return sign + groupThousands(intPart) + decPart
}

// groupThousands inserts commas every three digits.
func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatChange formats the move from one price to another as a signed
// percentage.
func FormatChange(from, to float64) string {
	if from == 0 {
		return "-"
	}
	return FormatPercent((to - from) / from * 100)
}

// FormatSlope formats a per-bar slope with sign.
func FormatSlope(slope float64) string {
	return fmt.Sprintf("%+.4f/d", slope)
}

// FormatCompact formats a number in compact form (K/M/B).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", amount/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", amount/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", amount/1e3)
	}
	return fmt.Sprintf("%.0f", amount)
}
