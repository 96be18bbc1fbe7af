package commission

import (
	"testing"

	"backsim/internal/domain"
)

func TestFree(t *testing.T) {
	if got := (Free{}).Calculate(123456); got != 0 {
		t.Errorf("Free.Calculate = %v, want 0", got)
	}
}

func TestFixedPlusVariableClamps(t *testing.T) {
	s := FixedPlusVariable{Fixed: 4.95, Rate: 0.0025, MinVariable: 9.95, MaxVariable: 69.0}

	tests := []struct {
		name       string
		totalPrice domain.Amount
		want       domain.Amount
	}{
		{"variable below minimum", 1000, 4.95 + 9.95},   // 0.25% of 1000 = 2.50 → clamped up
		{"variable in range", 10000, 4.95 + 25.0},       // 0.25% of 10000 = 25.00
		{"variable above maximum", 100000, 4.95 + 69.0}, // 0.25% of 100000 = 250 → clamped down
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Calculate(tt.totalPrice); got != tt.want {
				t.Errorf("Calculate(%v) = %v, want %v", tt.totalPrice, got, tt.want)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	if _, err := FromConfig("free", 0, 0, 0, 0); err != nil {
		t.Errorf("FromConfig(free) returned error: %v", err)
	}
	if _, err := FromConfig("", 0, 0, 0, 0); err != nil {
		t.Errorf("FromConfig(empty) returned error: %v", err)
	}
	if _, err := FromConfig("fixed-plus-variable", 4.95, 0.0025, 9.95, 69); err != nil {
		t.Errorf("FromConfig(fixed-plus-variable) returned error: %v", err)
	}
	if _, err := FromConfig("fixed-plus-variable", 4.95, 0.0025, 70, 69); err == nil {
		t.Error("FromConfig with max < min should fail")
	}
	if _, err := FromConfig("bogus", 0, 0, 0, 0); err == nil {
		t.Error("FromConfig with unknown kind should fail")
	}
}
