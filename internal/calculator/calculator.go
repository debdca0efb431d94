// Package calculator applies declarative component rules to a historical pay
// period and accumulates the resulting deltas.
package calculator

import (
	"sort"

	"go-twk/internal/history"
	"go-twk/internal/period"
	"go-twk/internal/scenario"
	"go-twk/internal/shared/money"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NewAmount is what the component would have been under rule.
func NewAmount(rule scenario.ComponentRule, original, hours decimal.Decimal) decimal.Decimal {
	switch rule.ChangeType {
	case scenario.ChangeFixedAmount:
		return original.Add(rule.ChangeValue)
	case scenario.ChangePercentage:
		return original.Mul(decimal.NewFromInt(1).Add(rule.ChangeValue.Div(hundred)))
	case scenario.ChangeNewValue:
		return rule.ChangeValue
	case scenario.ChangeRateChange:
		return hours.Mul(rule.ChangeValue)
	default:
		return original
	}
}

// RequiresHours reports whether rule prices recorded working hours. Such a
// rule cannot be applied to a period without time records.
func RequiresHours(rule scenario.ComponentRule) bool {
	return rule.ChangeType == scenario.ChangeRateChange
}

// Delta is the unrounded difference a rule makes to one component.
func Delta(rule scenario.ComponentRule, original, hours decimal.Decimal) decimal.Decimal {
	return NewAmount(rule, original, hours).Sub(original)
}

// Prorate scales a delta by the window ratio. Ratios outside [0,1] are clamped.
func Prorate(delta, ratio decimal.Decimal) decimal.Decimal {
	switch {
	case ratio.IsNegative():
		return decimal.Zero
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return delta
	}
	return delta.Mul(ratio)
}

// Subject carries the employee attributes rule filters look at.
type Subject struct {
	EmployeeID   string
	DepartmentID string
	Salary       decimal.Decimal
}

// Skip records a rule that did not apply to the subject.
type Skip struct {
	RuleID        string
	ComponentCode string
}

// ApplyComponentRules adds every applicable rule's delta for one period to
// ledger. Rules are evaluated independently against the original amount.
func ApplyComponentRules(rules []scenario.ComponentRule, subject Subject, fact history.Fact, w period.Window, ledger *Ledger) []Skip {
	var skipped []Skip
	for _, rule := range rules {
		if !rule.Applies(subject.EmployeeID, subject.DepartmentID, subject.Salary) {
			skipped = append(skipped, Skip{RuleID: rule.ID.String(), ComponentCode: rule.ComponentCode})
			continue
		}
		code := history.NormalizeComponentCode(rule.ComponentCode)
		delta := Delta(rule, fact.Component(code), fact.Hours)
		if rule.Prorate {
			delta = Prorate(delta, w.Ratio)
		}
		ledger.Add(code, delta)
	}
	return skipped
}

// Ledger collects raw per-component deltas for one employee and period.
// Rounding happens once per component when the ledger is read.
type Ledger struct {
	rounder money.Rounder
	raw     map[string]decimal.Decimal
}

func NewLedger(rounder money.Rounder) *Ledger {
	return &Ledger{rounder: rounder, raw: make(map[string]decimal.Decimal)}
}

func (l *Ledger) Add(component string, delta decimal.Decimal) {
	l.raw[component] = l.raw[component].Add(delta)
}

// Raw returns the unrounded accumulated delta for component.
func (l *Ledger) Raw(component string) decimal.Decimal {
	return l.raw[component]
}

func (l *Ledger) Empty() bool {
	return len(l.raw) == 0
}

// Components lists the touched component codes in sorted order.
func (l *Ledger) Components() []string {
	codes := make([]string, 0, len(l.raw))
	for code := range l.raw {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Breakdown returns each component's rounded delta.
func (l *Ledger) Breakdown() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.raw))
	for code, d := range l.raw {
		out[code] = l.rounder.Round(d)
	}
	return out
}

// Total is the sum of rounded component deltas.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, code := range l.Components() {
		total = total.Add(l.rounder.Round(l.raw[code]))
	}
	return total
}
