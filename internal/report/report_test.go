package report

import (
	"strings"
	"testing"

	"backsim/internal/simulation"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.n); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0.00"},
		{1234.5, "1,234.50"},
		{-50.25, "-50.25"},
		{999.999, "1,000.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.v); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.21); got != "21.00%" {
		t.Errorf("FormatPercent(0.21) = %q, want %q", got, "21.00%")
	}
}

func TestRenderContainsAllMetrics(t *testing.T) {
	result := &simulation.Result{
		TotalReturn:   0.21,
		MaxDrawdown:   0.05,
		SharpeRatio:   1.3,
		TotalTrades:   42,
		WinRate:       0.5,
		FinalBalance:  60500,
		ReservedTaxes: 1200.50,
	}

	out := Render("compound", "2021-01-01", "2024-12-31", 50000, result)
	for _, want := range []string{"compound", "21.00%", "60,500.00", "1,200.50", "42", "2021-01-01 .. 2024-12-31"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render output missing %q:\n%s", want, out)
		}
	}
}
