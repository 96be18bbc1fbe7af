// Package report renders a simulation result as a human-readable summary.
package report

import (
	"fmt"
	"strings"

	"backsim/internal/simulation"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats a monetary value with comma-separated thousands and
// two decimal places.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int(v)
	cents := int((v-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}
	s := fmt.Sprintf("%s.%02d", FormatInt(whole), cents)
	if neg {
		return "-" + s
	}
	return s
}

// FormatPercent formats a ratio as a percentage with two decimal places.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Render returns a multi-line summary of a simulation run.
func Render(strategyName, start, end string, seedCapital float64, result *simulation.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "strategy:       %s\n", strategyName)
	fmt.Fprintf(&b, "period:         %s .. %s\n", start, end)
	fmt.Fprintf(&b, "seed capital:   %s\n", FormatMoney(seedCapital))
	fmt.Fprintf(&b, "final balance:  %s\n", FormatMoney(float64(result.FinalBalance)))
	fmt.Fprintf(&b, "total return:   %s\n", FormatPercent(result.TotalReturn))
	fmt.Fprintf(&b, "max drawdown:   %s\n", FormatPercent(result.MaxDrawdown))
	fmt.Fprintf(&b, "sharpe ratio:   %.2f\n", result.SharpeRatio)
	fmt.Fprintf(&b, "total trades:   %s\n", FormatInt(result.TotalTrades))
	fmt.Fprintf(&b, "win rate:       %s\n", FormatPercent(result.WinRate))
	fmt.Fprintf(&b, "reserved taxes: %s\n", FormatMoney(float64(result.ReservedTaxes)))
	return b.String()
}
