package scenario

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateScenarioRequest struct {
	Code          string   `json:"code" binding:"omitempty,max=40"`
	Name          string   `json:"name" binding:"required,max=150"`
	Description   string   `json:"description"`
	EffectiveDate string   `json:"effective_date" binding:"required"`
	Method        string   `json:"calculation_method" binding:"required,oneof=component formula hybrid"`
	EmployeeIDs   []string `json:"employee_ids" binding:"omitempty,dive,uuid"`
}

type UpdateScenarioRequest struct {
	Name          string   `json:"name" binding:"required,max=150"`
	Description   string   `json:"description"`
	EffectiveDate string   `json:"effective_date" binding:"required"`
	Method        string   `json:"calculation_method" binding:"required,oneof=component formula hybrid"`
	EmployeeIDs   []string `json:"employee_ids" binding:"omitempty,dive,uuid"`
}

type ListScenariosRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=draft simulated approved executed cancelled"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type FilterRequest struct {
	EmployeeIDs   []string         `json:"employee_ids" binding:"omitempty,dive,uuid"`
	DepartmentIDs []string         `json:"department_ids" binding:"omitempty,dive,uuid"`
	SalaryMin     *decimal.Decimal `json:"salary_min"`
	SalaryMax     *decimal.Decimal `json:"salary_max"`
}

type AddComponentRuleRequest struct {
	ComponentCode  string          `json:"component_code" binding:"required,max=40"`
	ChangeType     string          `json:"change_type" binding:"required,oneof=fixed_amount percentage new_value rate_change"`
	ChangeValue    decimal.Decimal `json:"change_value"`
	Filter         FilterRequest   `json:"filter"`
	Prorate        bool            `json:"prorate"`
	ExecutionOrder int             `json:"execution_order"`
}

type AddFormulaRuleRequest struct {
	Code                  string        `json:"code" binding:"required,max=40"`
	Expression            string        `json:"expression" binding:"required"`
	AffectedComponents    []string      `json:"affected_components" binding:"required,min=1,dive,required"`
	ExecutionOrder        int           `json:"execution_order"`
	ResultMode            string        `json:"result_mode" binding:"omitempty,oneof=delta new_value"`
	DependsOnPriorPeriods bool          `json:"depends_on_prior_periods"`
	Filter                FilterRequest `json:"filter"`
	Prorate               bool          `json:"prorate"`
}

type ValidateFormulaRequest struct {
	Expression string `json:"expression" binding:"required"`
}

type ValidateFormulaResponse struct {
	Valid            bool            `json:"valid"`
	Identifiers      []string        `json:"identifiers"`
	RuleRefs         []string        `json:"rule_refs,omitempty"`
	UsesPriorPeriods bool            `json:"uses_prior_periods"`
	SampleResult     decimal.Decimal `json:"sample_result"`
}

type FilterResponse struct {
	EmployeeIDs   []string `json:"employee_ids,omitempty"`
	DepartmentIDs []string `json:"department_ids,omitempty"`
	SalaryMin     *string  `json:"salary_min,omitempty"`
	SalaryMax     *string  `json:"salary_max,omitempty"`
}

type ComponentRuleResponse struct {
	ID             string         `json:"id"`
	ComponentCode  string         `json:"component_code"`
	ChangeType     string         `json:"change_type"`
	ChangeValue    string         `json:"change_value"`
	Filter         FilterResponse `json:"filter"`
	Prorate        bool           `json:"prorate"`
	ExecutionOrder int            `json:"execution_order"`
}

type FormulaRuleResponse struct {
	ID                    string         `json:"id"`
	Code                  string         `json:"code"`
	Expression            string         `json:"expression"`
	AffectedComponents    []string       `json:"affected_components"`
	ExecutionOrder        int            `json:"execution_order"`
	ResultMode            string         `json:"result_mode"`
	DependsOnPriorPeriods bool           `json:"depends_on_prior_periods"`
	Filter                FilterResponse `json:"filter"`
	Prorate               bool           `json:"prorate"`
	Validated             bool           `json:"validated"`
}

type ScenarioResponse struct {
	ID                   string                  `json:"id"`
	CompanyID            string                  `json:"company_id"`
	Code                 string                  `json:"code"`
	Name                 string                  `json:"name"`
	Description          string                  `json:"description,omitempty"`
	EffectiveDate        string                  `json:"effective_date"`
	Method               string                  `json:"calculation_method"`
	Status               string                  `json:"status"`
	EmployeeIDs          []string                `json:"employee_ids,omitempty"`
	Locked               bool                    `json:"locked"`
	ActiveJobID          *string                 `json:"active_job_id,omitempty"`
	LatestSimulationID   *string                 `json:"latest_simulation_id,omitempty"`
	ApprovedSimulationID *string                 `json:"approved_simulation_id,omitempty"`
	SubmittedAt          *time.Time              `json:"submitted_at,omitempty"`
	ApprovedAt           *time.Time              `json:"approved_at,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	ComponentRules       []ComponentRuleResponse `json:"component_rules"`
	FormulaRules         []FormulaRuleResponse   `json:"formula_rules"`
}
