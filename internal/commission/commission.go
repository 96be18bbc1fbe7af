// Package commission computes trade commissions. Strategies are pure
// functions of the total price and are constructed explicitly from
// configuration; there is no process-wide preset registry.
package commission

import (
	"fmt"

	"backsim/internal/domain"
)

// Strategy maps a transaction's total price to the commission charged.
type Strategy interface {
	Calculate(totalPrice domain.Amount) domain.Amount
}

// Free charges no commission.
type Free struct{}

// Calculate returns zero for any total price.
func (Free) Calculate(domain.Amount) domain.Amount { return 0 }

// FixedPlusVariable charges a fixed amount plus a rate-based variable part
// clamped to [MinVariable, MaxVariable]. The clamp makes the total
// commission non-linear in the trade size.
type FixedPlusVariable struct {
	Fixed       domain.Amount
	Rate        float64
	MinVariable domain.Amount
	MaxVariable domain.Amount
}

// Calculate returns the fixed part plus the clamped variable part.
func (s FixedPlusVariable) Calculate(totalPrice domain.Amount) domain.Amount {
	variable := totalPrice * domain.Amount(s.Rate)
	if variable < s.MinVariable {
		variable = s.MinVariable
	}
	if variable > s.MaxVariable {
		variable = s.MaxVariable
	}
	return s.Fixed + variable
}

// FromConfig builds a Strategy from configuration values. Supported kinds:
// "free" and "fixed-plus-variable".
func FromConfig(kind string, fixed, rate, minVariable, maxVariable float64) (Strategy, error) {
	switch kind {
	case "", "free":
		return Free{}, nil
	case "fixed-plus-variable":
		if fixed < 0 || rate < 0 || minVariable < 0 || maxVariable < minVariable {
			return nil, fmt.Errorf("invalid commission parameters: fixed=%v rate=%v min=%v max=%v",
				fixed, rate, minVariable, maxVariable)
		}
		return FixedPlusVariable{
			Fixed:       domain.Amount(fixed),
			Rate:        rate,
			MinVariable: domain.Amount(minVariable),
			MaxVariable: domain.Amount(maxVariable),
		}, nil
	default:
		return nil, fmt.Errorf("unknown commission strategy %q", kind)
	}
}
