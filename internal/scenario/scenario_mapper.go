package scenario

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func mapToResponse(s Scenario) ScenarioResponse {
	resp := ScenarioResponse{
		ID:                   s.ID.String(),
		CompanyID:            s.CompanyID.String(),
		Code:                 s.Code,
		Name:                 s.Name,
		Description:          s.Description,
		EffectiveDate:        s.EffectiveDate.Format(time.DateOnly),
		Method:               string(s.Method),
		Status:               string(s.Status),
		EmployeeIDs:          s.EmployeeIDs,
		Locked:               s.Locked(),
		ActiveJobID:          uuidString(s.ActiveJobID),
		LatestSimulationID:   uuidString(s.LatestSimulationID),
		ApprovedSimulationID: uuidString(s.ApprovedSimulationID),
		SubmittedAt:          s.SubmittedAt,
		ApprovedAt:           s.ApprovedAt,
		CreatedAt:            s.CreatedAt,
		ComponentRules:       make([]ComponentRuleResponse, 0, len(s.ComponentRules)),
		FormulaRules:         make([]FormulaRuleResponse, 0, len(s.FormulaRules)),
	}
	for _, r := range s.ComponentRules {
		resp.ComponentRules = append(resp.ComponentRules, mapComponentRule(r))
	}
	for _, r := range s.FormulaRules {
		resp.FormulaRules = append(resp.FormulaRules, mapFormulaRule(r))
	}
	return resp
}

func mapToListResponse(items []Scenario) []ScenarioResponse {
	out := make([]ScenarioResponse, 0, len(items))
	for _, s := range items {
		out = append(out, mapToResponse(s))
	}
	return out
}

func mapComponentRule(r ComponentRule) ComponentRuleResponse {
	return ComponentRuleResponse{
		ID:             r.ID.String(),
		ComponentCode:  r.ComponentCode,
		ChangeType:     string(r.ChangeType),
		ChangeValue:    r.ChangeValue.String(),
		Filter:         mapFilter(r.Filter),
		Prorate:        r.Prorate,
		ExecutionOrder: r.ExecutionOrder,
	}
}

func mapFormulaRule(r FormulaRule) FormulaRuleResponse {
	return FormulaRuleResponse{
		ID:                    r.ID.String(),
		Code:                  r.Code,
		Expression:            r.Expression,
		AffectedComponents:    r.AffectedComponents,
		ExecutionOrder:        r.ExecutionOrder,
		ResultMode:            string(r.ResultMode),
		DependsOnPriorPeriods: r.DependsOnPriorPeriods,
		Filter:                mapFilter(r.Filter),
		Prorate:               r.Prorate,
		Validated:             r.Validated,
	}
}

func mapFilter(f Filter) FilterResponse {
	out := FilterResponse{EmployeeIDs: f.EmployeeIDs, DepartmentIDs: f.DepartmentIDs}
	if f.SalaryMin.Valid {
		v := f.SalaryMin.Decimal.String()
		out.SalaryMin = &v
	}
	if f.SalaryMax.Valid {
		v := f.SalaryMax.Decimal.String()
		out.SalaryMax = &v
	}
	return out
}

func toFilter(req FilterRequest) Filter {
	f := Filter{EmployeeIDs: req.EmployeeIDs, DepartmentIDs: req.DepartmentIDs}
	if req.SalaryMin != nil {
		f.SalaryMin = decimal.NewNullDecimal(*req.SalaryMin)
	}
	if req.SalaryMax != nil {
		f.SalaryMax = decimal.NewNullDecimal(*req.SalaryMax)
	}
	return f
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
