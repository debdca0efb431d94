package formula

import (
	"strings"
)

// Scalar variables a formula may reference.
const (
	VarBase            = "base"
	VarGross           = "gross"
	VarHours           = "hours"
	VarOvertimeHours   = "overtime_hours"
	VarDaysWorked      = "days_worked"
	VarDepartment      = "department"
	VarSalaryTier      = "salary_tier"
	VarBaseSalary      = "base_salary"
	VarTenureDays      = "tenure_days"
	VarTenureYears     = "tenure_years"
	VarPeriodIndex     = "period_index"
	VarPeriodDays      = "period_days"
	VarPeriodMonth     = "period_month"
	VarPeriodYear      = "period_year"
	VarProration       = "proration"
	VarPriorDelta      = "prior_delta"
	VarCumulativeDelta = "cumulative_delta"
)

// Namespaced variables: the suffix is a component code or a formula rule code.
const (
	NSComponents = "components." // original amount of a component in the period
	NSCurrent    = "current."    // amount after rules applied earlier in the run
	NSRule       = "rule."       // result of an earlier formula in the same period
)

var scalarWhitelist = map[string]struct{}{
	VarBase: {}, VarGross: {}, VarHours: {}, VarOvertimeHours: {}, VarDaysWorked: {},
	VarDepartment: {}, VarSalaryTier: {}, VarBaseSalary: {}, VarTenureDays: {}, VarTenureYears: {},
	VarPeriodIndex: {}, VarPeriodDays: {}, VarPeriodMonth: {}, VarPeriodYear: {}, VarProration: {},
	VarPriorDelta: {}, VarCumulativeDelta: {},
}

var namespaces = []string{NSComponents, NSCurrent, NSRule}

// Allowed reports whether name is in the variable whitelist.
func Allowed(name string) bool {
	if _, ok := scalarWhitelist[name]; ok {
		return true
	}
	for _, ns := range namespaces {
		if suffix, ok := strings.CutPrefix(name, ns); ok {
			return suffix != "" && !strings.Contains(suffix, ".")
		}
	}
	return false
}

// Whitelist returns the scalar variable names plus namespace patterns.
func Whitelist() []string {
	out := make([]string, 0, len(scalarWhitelist)+len(namespaces))
	for name := range scalarWhitelist {
		out = append(out, name)
	}
	for _, ns := range namespaces {
		out = append(out, ns+"<CODE>")
	}
	return out
}

func isComponentRef(name string) bool {
	return strings.HasPrefix(name, NSComponents) || strings.HasPrefix(name, NSCurrent)
}

// Env resolves variables during evaluation.
type Env interface {
	Lookup(name string) (Value, bool)
}

// Vars is a read-only variable binding. Component references that are not
// bound resolve to zero: an employee without a component in a period was paid
// nothing for it.
type Vars map[string]Value

func (v Vars) Lookup(name string) (Value, bool) {
	if val, ok := v[name]; ok {
		return val, true
	}
	if isComponentRef(name) {
		return Int(0), true
	}
	return Value{}, false
}

// SampleEnv is the synthetic context used for the validation dry-run. Every
// scalar is bound and every namespaced reference in p gets a plausible value.
func SampleEnv(p *Program) Vars {
	vars := Vars{
		VarBase:            Int(5000),
		VarGross:           Int(6500),
		VarHours:           Int(160),
		VarOvertimeHours:   Int(8),
		VarDaysWorked:      Int(21),
		VarDepartment:      String("SAMPLE"),
		VarSalaryTier:      Int(3),
		VarBaseSalary:      Int(5000),
		VarTenureDays:      Int(1095),
		VarTenureYears:     Int(3),
		VarPeriodIndex:     Int(2),
		VarPeriodDays:      Int(30),
		VarPeriodMonth:     Int(6),
		VarPeriodYear:      Int(2025),
		VarProration:       Int(1),
		VarPriorDelta:      Int(100),
		VarCumulativeDelta: Int(250),
	}
	if p == nil {
		return vars
	}
	for _, name := range p.Identifiers() {
		switch {
		case strings.HasPrefix(name, NSComponents), strings.HasPrefix(name, NSCurrent):
			vars[name] = Int(2000)
		case strings.HasPrefix(name, NSRule):
			vars[name] = Int(100)
		}
	}
	return vars
}
