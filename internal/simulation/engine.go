package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-twk/internal/calculator"
	"go-twk/internal/directory"
	"go-twk/internal/formula"
	"go-twk/internal/history"
	historyerrors "go-twk/internal/history/errors"
	"go-twk/internal/period"
	"go-twk/internal/scenario"
	"go-twk/internal/shared/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// compiledFormula is a stored formula rule with its parsed program.
type compiledFormula struct {
	rule      scenario.FormulaRule
	prog      *formula.Program
	readsTime bool
}

// readsTimeRecords reports whether prog reads a value measured from time
// records.
func readsTimeRecords(prog *formula.Program) bool {
	for _, name := range prog.Identifiers() {
		if name == formula.VarHours || name == formula.VarDaysWorked {
			return true
		}
	}
	return false
}

// plan is everything a worker needs to recalculate one employee.
type plan struct {
	companyID    uuid.UUID
	scenarioID   uuid.UUID
	simulationID uuid.UUID
	components   []scenario.ComponentRule
	formulas     []compiledFormula
	windows      []period.Window
	chain        bool
	rounder      money.Rounder
	limits       formula.Limits
}

func newPlan(sc *scenario.Scenario, simulationID uuid.UUID, windows []period.Window, rounder money.Rounder, lim formula.Limits) (*plan, error) {
	p := &plan{
		companyID:    sc.CompanyID,
		scenarioID:   sc.ID,
		simulationID: simulationID,
		windows:      windows,
		rounder:      rounder,
		limits:       lim,
	}
	for _, r := range sc.UsableRules() {
		switch rule := r.(type) {
		case scenario.ComponentRule:
			p.components = append(p.components, rule)
		case scenario.FormulaRule:
			prog, err := rule.Compile()
			if err != nil {
				return nil, fmt.Errorf("compile formula %s: %w", rule.Code, err)
			}
			p.formulas = append(p.formulas, compiledFormula{rule: rule, prog: prog, readsTime: readsTimeRecords(prog)})
			if rule.DependsOnPriorPeriods {
				p.chain = true
			}
		}
	}
	return p, nil
}

// applies reports whether any rule matches emp.
func (p *plan) applies(emp directory.Employee) bool {
	for _, r := range p.components {
		if r.Applies(emp.ID, emp.DepartmentID, emp.BaseSalary) {
			return true
		}
	}
	for _, f := range p.formulas {
		if f.rule.Applies(emp.ID, emp.DepartmentID, emp.BaseSalary) {
			return true
		}
	}
	return false
}

// needsTimeRecords reports whether a rule that applies to emp prices hours or
// days measured from time records.
func (p *plan) needsTimeRecords(emp directory.Employee) bool {
	for _, r := range p.components {
		if calculator.RequiresHours(r) && r.Applies(emp.ID, emp.DepartmentID, emp.BaseSalary) {
			return true
		}
	}
	for _, f := range p.formulas {
		if f.readsTime && f.rule.Applies(emp.ID, emp.DepartmentID, emp.BaseSalary) {
			return true
		}
	}
	return false
}

// chainState carries an employee's earlier period totals for prior-period
// formulas.
type chainState struct {
	prior      decimal.Decimal
	cumulative decimal.Decimal
}

// unitOutput is what one work unit produced.
type unitOutput struct {
	results  []CalculationResult
	warnings []Issue
	errors   []Issue
	periods  int
}

// employeePeriods recalculates emp over windows in chronological order.
// History outages are returned as errors; data gaps and formula failures are
// reported as issues.
func (p *plan) employeePeriods(ctx context.Context, agg *history.Aggregator, emp directory.Employee, windows []period.Window) (unitOutput, error) {
	var out unitOutput
	state := chainState{}
	subject := calculator.Subject{EmployeeID: emp.ID, DepartmentID: emp.DepartmentID, Salary: emp.BaseSalary}
	needsTime := p.needsTimeRecords(emp)

	for _, w := range windows {
		out.periods++
		fact, err := agg.Fact(ctx, emp.ID, w)
		if errors.Is(err, historyerrors.ErrDataGap) {
			out.warnings = append(out.warnings, Issue{
				Code:       IssueDataGap,
				EmployeeID: emp.ID,
				Period:     w.Key(),
				Message:    "no paid payroll for employee in period",
			})
			continue
		}
		if err != nil {
			return out, err
		}
		if needsTime && !fact.TimeRecorded {
			out.warnings = append(out.warnings, Issue{
				Code:       IssueDataGap,
				EmployeeID: emp.ID,
				Period:     w.Key(),
				Message:    "no time records for employee in period",
			})
			continue
		}

		res, issue, err := p.calculate(ctx, emp, subject, fact, w, state)
		if err != nil {
			return out, err
		}
		if issue != nil {
			out.errors = append(out.errors, *issue)
			continue
		}
		out.results = append(out.results, res)
		state.prior = res.Delta
		state.cumulative = state.cumulative.Add(res.Delta)
	}
	return out, nil
}

func (p *plan) calculate(ctx context.Context, emp directory.Employee, subject calculator.Subject, fact history.Fact, w period.Window, state chainState) (CalculationResult, *Issue, error) {
	ledger := calculator.NewLedger(p.rounder)
	calculator.ApplyComponentRules(p.components, subject, fact, w, ledger)

	if len(p.formulas) > 0 {
		env := &formulaEnv{
			scalars: p.scalars(emp, fact, w, state),
			fact:    fact,
			ledger:  ledger,
			rules:   make(map[string]decimal.Decimal, len(p.formulas)),
		}
		for _, f := range p.formulas {
			if !f.rule.Applies(emp.ID, emp.DepartmentID, emp.BaseSalary) {
				env.rules[f.rule.Code] = decimal.Zero
				continue
			}
			sum, err := p.applyFormula(ctx, f, env, w, ledger)
			if err != nil {
				if ctx.Err() != nil {
					return CalculationResult{}, nil, ctx.Err()
				}
				return CalculationResult{}, &Issue{
					Code:       IssueFormula,
					EmployeeID: emp.ID,
					Period:     w.Key(),
					Rule:       f.rule.Code,
					Message:    err.Error(),
				}, nil
			}
			env.rules[f.rule.Code] = sum
		}
	}

	original := p.rounder.Round(fact.Gross)
	delta := ledger.Total()
	empID, err := uuid.Parse(emp.ID)
	if err != nil {
		return CalculationResult{}, nil, fmt.Errorf("employee id %q: %w", emp.ID, err)
	}
	return CalculationResult{
		ID:           uuid.New(),
		CompanyID:    p.companyID,
		ScenarioID:   p.scenarioID,
		SimulationID: p.simulationID,
		EmployeeID:   empID,
		DepartmentID: emp.DepartmentID,
		PeriodStart:  w.Start,
		PeriodEnd:    w.End,
		PeriodIndex:  w.Index,
		PayRunID:     w.PayRunID,
		Proration:    w.Ratio,
		Original:     original,
		Recomputed:   original.Add(delta),
		Delta:        delta,
		Breakdown:    ledger.Breakdown(),
		Status:       ResultCalculated,
	}, nil, nil
}

// applyFormula evaluates f once per affected component with base bound to
// that component's original amount, and returns the summed delta.
func (p *plan) applyFormula(ctx context.Context, f compiledFormula, env *formulaEnv, w period.Window, ledger *calculator.Ledger) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, affected := range f.rule.AffectedComponents {
		code := history.NormalizeComponentCode(affected)
		original := env.fact.Component(code)
		env.base = original
		delta, err := f.prog.Eval(ctx, env, p.limits)
		if err != nil {
			return decimal.Zero, err
		}
		if f.rule.ResultMode == scenario.ResultNewValue {
			delta = delta.Sub(original)
		}
		if f.rule.Prorate {
			delta = calculator.Prorate(delta, w.Ratio)
		}
		ledger.Add(code, delta)
		sum = sum.Add(delta)
	}
	return sum, nil
}

func (p *plan) scalars(emp directory.Employee, fact history.Fact, w period.Window, state chainState) formula.Vars {
	tenure := emp.TenureDays(w.End)
	department := emp.DepartmentName
	if department == "" {
		department = emp.DepartmentID
	}
	return formula.Vars{
		formula.VarGross:           formula.Number(fact.Gross),
		formula.VarHours:           formula.Number(fact.Hours),
		formula.VarOvertimeHours:   formula.Number(fact.OvertimeHours),
		formula.VarDaysWorked:      formula.Int(int64(fact.DaysWorked)),
		formula.VarDepartment:      formula.String(department),
		formula.VarSalaryTier:      formula.Int(int64(emp.SalaryTier)),
		formula.VarBaseSalary:      formula.Number(emp.BaseSalary),
		formula.VarTenureDays:      formula.Int(int64(tenure)),
		formula.VarTenureYears:     formula.Int(int64(tenure / 365)),
		formula.VarPeriodIndex:     formula.Int(int64(w.Index)),
		formula.VarPeriodDays:      formula.Int(int64(w.Days())),
		formula.VarPeriodMonth:     formula.Int(int64(w.Start.Month())),
		formula.VarPeriodYear:      formula.Int(int64(w.Start.Year())),
		formula.VarProration:       formula.Number(w.Ratio),
		formula.VarPriorDelta:      formula.Number(state.prior),
		formula.VarCumulativeDelta: formula.Number(state.cumulative),
	}
}

// formulaEnv binds one employee period. base changes per affected component;
// current.<CODE> sees deltas added by rules that ran earlier.
type formulaEnv struct {
	scalars formula.Vars
	base    decimal.Decimal
	fact    history.Fact
	ledger  *calculator.Ledger
	rules   map[string]decimal.Decimal
}

func (e *formulaEnv) Lookup(name string) (formula.Value, bool) {
	if name == formula.VarBase {
		return formula.Number(e.base), true
	}
	if v, ok := e.scalars[name]; ok {
		return v, true
	}
	if code, ok := strings.CutPrefix(name, formula.NSComponents); ok {
		return formula.Number(e.fact.Component(code)), true
	}
	if code, ok := strings.CutPrefix(name, formula.NSCurrent); ok {
		code = history.NormalizeComponentCode(code)
		return formula.Number(e.fact.Component(code).Add(e.ledger.Raw(code))), true
	}
	if code, ok := strings.CutPrefix(name, formula.NSRule); ok {
		v, bound := e.rules[code]
		return formula.Number(v), bound
	}
	return formula.Value{}, false
}
