package scenario

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go-twk/internal/formula"
	scenarioerrors "go-twk/internal/scenario/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ruleCodePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, scenarioerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func validateEffectiveDate(value string, now time.Time) (time.Time, error) {
	eff, err := parseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := now.UTC().Date()
	if eff.After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return time.Time{}, scenarioerrors.ErrEffectiveDateInFuture
	}
	return eff, nil
}

func validateEmployeeScope(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, scenarioerrors.ErrInvalidEmployeeID.WithDetails(map[string]string{"employee_id": id})
		}
		key := parsed.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}

func validateFilter(f Filter) error {
	if f.SalaryMin.Valid && f.SalaryMax.Valid && f.SalaryMin.Decimal.GreaterThan(f.SalaryMax.Decimal) {
		return scenarioerrors.ErrInvalidSalaryRange
	}
	if _, err := validateEmployeeScope(f.EmployeeIDs); err != nil {
		return err
	}
	return nil
}

func validateMethodRules(method Method, s *Scenario) error {
	if !method.Valid() {
		return scenarioerrors.ErrInvalidMethod
	}
	if len(s.ComponentRules) > 0 && !method.AllowsComponentRules() {
		return scenarioerrors.ErrMethodMismatch
	}
	if len(s.FormulaRules) > 0 && !method.AllowsFormulaRules() {
		return scenarioerrors.ErrMethodMismatch
	}
	return nil
}

var minusHundred = decimal.NewFromInt(-100)

func validateComponentRule(method Method, req AddComponentRuleRequest) error {
	if !method.AllowsComponentRules() {
		return scenarioerrors.ErrMethodMismatch
	}
	if strings.TrimSpace(req.ComponentCode) == "" {
		return scenarioerrors.ErrInvalidComponentCode
	}
	ct := ChangeType(req.ChangeType)
	if !ct.Valid() {
		return scenarioerrors.ErrInvalidChangeType
	}
	switch ct {
	case ChangePercentage:
		if req.ChangeValue.LessThan(minusHundred) {
			return scenarioerrors.ErrInvalidChangeValue.WithDetails(map[string]string{"reason": "percentage must be >= -100"})
		}
	case ChangeNewValue, ChangeRateChange:
		if req.ChangeValue.IsNegative() {
			return scenarioerrors.ErrInvalidChangeValue.WithDetails(map[string]string{"reason": "value must not be negative"})
		}
	}
	return validateFilter(toFilter(req.Filter))
}

// validateFormulaRule runs the two validation stages and the scenario-level
// checks: prior-period declaration and references to earlier formulas only.
func validateFormulaRule(ctx context.Context, s *Scenario, req AddFormulaRuleRequest, order int, lim formula.Limits) error {
	if !s.Method.AllowsFormulaRules() {
		return scenarioerrors.ErrMethodMismatch
	}
	if !ruleCodePattern.MatchString(req.Code) {
		return scenarioerrors.ErrInvalidRuleCode
	}
	for _, existing := range s.FormulaRules {
		if strings.EqualFold(existing.Code, req.Code) {
			return scenarioerrors.ErrDuplicateRuleCode
		}
	}
	if req.ResultMode != "" && req.ResultMode != string(ResultDelta) && req.ResultMode != string(ResultNewValue) {
		return scenarioerrors.ErrInvalidResultMode
	}
	if len(req.AffectedComponents) == 0 {
		return scenarioerrors.ErrNoAffectedComponents
	}
	for _, code := range req.AffectedComponents {
		if strings.TrimSpace(code) == "" {
			return scenarioerrors.ErrInvalidComponentCode
		}
	}
	if err := validateFilter(toFilter(req.Filter)); err != nil {
		return err
	}

	prog, err := formula.Validate(ctx, req.Expression, lim)
	if err != nil {
		return err
	}
	if prog.UsesPriorPeriods() && !req.DependsOnPriorPeriods {
		return scenarioerrors.ErrPriorPeriodUndeclared
	}
	for _, ref := range prog.RuleRefs() {
		if !hasEarlierFormula(s, ref, order) {
			return scenarioerrors.ErrRuleReference.WithDetails(map[string]string{"rule": ref})
		}
	}
	return nil
}

func hasEarlierFormula(s *Scenario, code string, order int) bool {
	for _, f := range s.FormulaRules {
		if f.Code == code && f.ExecutionOrder < order {
			return true
		}
	}
	return false
}

func nextFormulaOrder(s *Scenario) int {
	highest := 0
	for _, f := range s.FormulaRules {
		if f.ExecutionOrder > highest {
			highest = f.ExecutionOrder
		}
	}
	return highest + 1
}

func nextComponentOrder(s *Scenario) int {
	highest := 0
	for _, r := range s.ComponentRules {
		if r.ExecutionOrder > highest {
			highest = r.ExecutionOrder
		}
	}
	return highest + 1
}

// referencedBy returns the codes of formulas whose expression reads code.
func referencedBy(s *Scenario, code string) []string {
	var out []string
	for _, f := range s.FormulaRules {
		if f.Code == code {
			continue
		}
		prog, err := f.Compile()
		if err != nil {
			continue
		}
		for _, ref := range prog.RuleRefs() {
			if ref == code {
				out = append(out, f.Code)
				break
			}
		}
	}
	return out
}

// HasUsableRules reports whether the scenario can be simulated.
func (s *Scenario) HasUsableRules() bool {
	return len(s.UsableRules()) > 0
}
