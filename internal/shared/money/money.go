// Package money holds the single rounding rule used for every monetary figure
// the engine reports.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places for currency amounts.
const Scale int32 = 2

type RoundingMode string

const (
	// HalfUp rounds half away from zero: 0.005 -> 0.01, -0.005 -> -0.01.
	HalfUp RoundingMode = "half_up"
	// Bankers rounds half to even: 0.005 -> 0.00, 0.015 -> 0.02.
	Bankers RoundingMode = "bankers"
)

// Rounder applies the configured rounding mode. The zero value rounds half-up.
type Rounder struct {
	Mode RoundingMode
}

func NewRounder(mode string) Rounder {
	if RoundingMode(mode) == Bankers {
		return Rounder{Mode: Bankers}
	}
	return Rounder{Mode: HalfUp}
}

func (r Rounder) Round(d decimal.Decimal) decimal.Decimal {
	if r.Mode == Bankers {
		return d.RoundBank(Scale)
	}
	return d.Round(Scale)
}

// Round rounds with the default half-up rule.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Sum adds amounts without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// String formats an amount with exactly two decimals.
func String(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
