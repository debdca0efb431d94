package scenario

import (
	"slices"
	"sort"
	"time"

	"go-twk/internal/formula"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSimulated Status = "simulated"
	StatusApproved  Status = "approved"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusDraft:     {StatusSimulated, StatusCancelled},
	StatusSimulated: {StatusSimulated, StatusApproved, StatusCancelled},
	StatusApproved:  {StatusSimulated, StatusExecuted, StatusCancelled},
	StatusExecuted:  nil,
	StatusCancelled: nil,
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Re-simulating an approved scenario drops it back to simulated.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// SimulatableStatuses may start a simulation.
var SimulatableStatuses = []Status{StatusDraft, StatusSimulated, StatusApproved}

// ExecutableStatuses may start an execution. Executed scenarios may be
// re-executed to retry unpaid results.
var ExecutableStatuses = []Status{StatusApproved, StatusExecuted}

type Method string

const (
	MethodComponent Method = "component"
	MethodFormula   Method = "formula"
	MethodHybrid    Method = "hybrid"
)

func (m Method) Valid() bool {
	return m == MethodComponent || m == MethodFormula || m == MethodHybrid
}

func (m Method) AllowsComponentRules() bool { return m == MethodComponent || m == MethodHybrid }
func (m Method) AllowsFormulaRules() bool   { return m == MethodFormula || m == MethodHybrid }

type ChangeType string

const (
	ChangeFixedAmount ChangeType = "fixed_amount"
	ChangePercentage  ChangeType = "percentage"
	ChangeNewValue    ChangeType = "new_value"
	ChangeRateChange  ChangeType = "rate_change"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeFixedAmount, ChangePercentage, ChangeNewValue, ChangeRateChange:
		return true
	}
	return false
}

// ResultMode says how a formula result is read: as the delta itself, or as
// the component's new amount.
type ResultMode string

const (
	ResultDelta    ResultMode = "delta"
	ResultNewValue ResultMode = "new_value"
)

type Scenario struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_scenarios_company_code"`
	Code                 string     `gorm:"type:varchar(40);not null;uniqueIndex:uq_scenarios_company_code"`
	Name                 string     `gorm:"type:varchar(150);not null"`
	Description          string     `gorm:"type:text"`
	EffectiveDate        time.Time  `gorm:"type:date;not null"`
	Method               Method     `gorm:"column:calculation_method;type:varchar(20);not null"`
	Status               Status     `gorm:"type:varchar(20);not null;default:'draft';index"`
	EmployeeIDs          []string   `gorm:"column:employee_ids;type:jsonb;serializer:json"`
	ActiveJobID          *uuid.UUID `gorm:"type:uuid"`
	LatestSimulationID   *uuid.UUID `gorm:"type:uuid"`
	ApprovedSimulationID *uuid.UUID `gorm:"type:uuid"`
	SubmittedAt          *time.Time
	SubmittedBy          *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt           *time.Time
	ApprovedBy           *uuid.UUID `gorm:"type:uuid"`
	CreatedBy            uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	ComponentRules []ComponentRule `gorm:"foreignKey:ScenarioID"`
	FormulaRules   []FormulaRule   `gorm:"foreignKey:ScenarioID"`
}

func (s *Scenario) Locked() bool {
	return s.ActiveJobID != nil
}

// Rules returns the tagged union of the scenario's rules in evaluation order:
// component rules first, then formulas by execution order.
func (s *Scenario) Rules() []Rule {
	out := make([]Rule, 0, len(s.ComponentRules)+len(s.FormulaRules))
	comps := slices.Clone(s.ComponentRules)
	sort.SliceStable(comps, func(i, j int) bool { return comps[i].ExecutionOrder < comps[j].ExecutionOrder })
	for _, r := range comps {
		out = append(out, r)
	}
	forms := slices.Clone(s.FormulaRules)
	sort.SliceStable(forms, func(i, j int) bool { return forms[i].ExecutionOrder < forms[j].ExecutionOrder })
	for _, r := range forms {
		out = append(out, r)
	}
	return out
}

// UsableRules drops formulas that never passed validation.
func (s *Scenario) UsableRules() []Rule {
	var out []Rule
	for _, r := range s.Rules() {
		if f, ok := r.(FormulaRule); ok && !f.Validated {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Rule is either a ComponentRule or a FormulaRule. The interface is sealed;
// consumers switch over the two concrete types.
type Rule interface {
	isRule()
	RuleID() uuid.UUID
	Applies(employeeID, departmentID string, salary decimal.Decimal) bool
}

// Filter restricts a rule to a subset of employees. Empty criteria match
// everyone.
type Filter struct {
	EmployeeIDs   []string            `gorm:"column:employee_ids;type:jsonb;serializer:json" json:"employee_ids,omitempty"`
	DepartmentIDs []string            `gorm:"column:department_ids;type:jsonb;serializer:json" json:"department_ids,omitempty"`
	SalaryMin     decimal.NullDecimal `gorm:"column:salary_min;type:numeric(18,2)" json:"salary_min,omitempty"`
	SalaryMax     decimal.NullDecimal `gorm:"column:salary_max;type:numeric(18,2)" json:"salary_max,omitempty"`
}

func (f Filter) Matches(employeeID, departmentID string, salary decimal.Decimal) bool {
	if len(f.EmployeeIDs) > 0 && !slices.Contains(f.EmployeeIDs, employeeID) {
		return false
	}
	if len(f.DepartmentIDs) > 0 && !slices.Contains(f.DepartmentIDs, departmentID) {
		return false
	}
	if f.SalaryMin.Valid && salary.LessThan(f.SalaryMin.Decimal) {
		return false
	}
	if f.SalaryMax.Valid && salary.GreaterThan(f.SalaryMax.Decimal) {
		return false
	}
	return true
}

type ComponentRule struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ScenarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ComponentCode  string          `gorm:"type:varchar(40);not null"`
	ChangeType     ChangeType      `gorm:"type:varchar(20);not null"`
	ChangeValue    decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Filter         Filter          `gorm:"embedded;embeddedPrefix:filter_"`
	Prorate        bool            `gorm:"not null;default:false"`
	ExecutionOrder int             `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (ComponentRule) isRule()             {}
func (r ComponentRule) RuleID() uuid.UUID { return r.ID }
func (r ComponentRule) Applies(employeeID, departmentID string, salary decimal.Decimal) bool {
	return r.Filter.Matches(employeeID, departmentID, salary)
}

type FormulaRule struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ScenarioID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_formula_rules_scenario_code"`
	Code                  string     `gorm:"type:varchar(40);not null;uniqueIndex:uq_formula_rules_scenario_code"`
	Expression            string     `gorm:"type:text;not null"`
	AffectedComponents    []string   `gorm:"type:jsonb;serializer:json;not null"`
	ExecutionOrder        int        `gorm:"not null"`
	ResultMode            ResultMode `gorm:"type:varchar(20);not null;default:'delta'"`
	DependsOnPriorPeriods bool       `gorm:"not null;default:false"`
	Filter                Filter     `gorm:"embedded;embeddedPrefix:filter_"`
	Prorate               bool       `gorm:"not null;default:false"`
	Validated             bool       `gorm:"not null;default:false"`
	CreatedAt             time.Time
}

func (FormulaRule) isRule()             {}
func (r FormulaRule) RuleID() uuid.UUID { return r.ID }
func (r FormulaRule) Applies(employeeID, departmentID string, salary decimal.Decimal) bool {
	return r.Filter.Matches(employeeID, departmentID, salary)
}

// Compile parses the stored expression. Stored formulas passed validation, so
// an error here means the row was changed outside the engine.
func (r FormulaRule) Compile() (*formula.Program, error) {
	return formula.Compile(r.Expression)
}
