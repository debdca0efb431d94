package scenario_test

import (
	"testing"

	"go-twk/internal/scenario"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	emp, dept := uuid.NewString(), uuid.NewString()
	salary := decimal.NewFromInt(4500)

	tests := []struct {
		name   string
		filter scenario.Filter
		want   bool
	}{
		{"empty matches everyone", scenario.Filter{}, true},
		{"employee listed", scenario.Filter{EmployeeIDs: []string{emp}}, true},
		{"employee not listed", scenario.Filter{EmployeeIDs: []string{uuid.NewString()}}, false},
		{"department listed", scenario.Filter{DepartmentIDs: []string{dept}}, true},
		{"below minimum", scenario.Filter{SalaryMin: decimal.NewNullDecimal(decimal.NewFromInt(5000))}, false},
		{"range is inclusive", scenario.Filter{
			SalaryMin: decimal.NewNullDecimal(decimal.NewFromInt(4500)),
			SalaryMax: decimal.NewNullDecimal(decimal.NewFromInt(4500)),
		}, true},
		{"above maximum", scenario.Filter{SalaryMax: decimal.NewNullDecimal(decimal.NewFromInt(3000))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(emp, dept, salary))
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, scenario.StatusDraft.CanTransitionTo(scenario.StatusSimulated))
	assert.True(t, scenario.StatusApproved.CanTransitionTo(scenario.StatusSimulated))
	assert.True(t, scenario.StatusApproved.CanTransitionTo(scenario.StatusExecuted))
	assert.False(t, scenario.StatusDraft.CanTransitionTo(scenario.StatusApproved))
	assert.False(t, scenario.StatusExecuted.CanTransitionTo(scenario.StatusCancelled))
	assert.False(t, scenario.StatusCancelled.CanTransitionTo(scenario.StatusSimulated))
}

func TestScenario_RulesOrder(t *testing.T) {
	s := &scenario.Scenario{
		ComponentRules: []scenario.ComponentRule{
			{ComponentCode: "ALLOWANCE", ExecutionOrder: 2},
			{ComponentCode: "BASE", ExecutionOrder: 1},
		},
		FormulaRules: []scenario.FormulaRule{
			{Code: "SECOND", ExecutionOrder: 2, Validated: true},
			{Code: "DRAFTED", ExecutionOrder: 3},
			{Code: "FIRST", ExecutionOrder: 1, Validated: true},
		},
	}

	var names []string
	for _, r := range s.UsableRules() {
		switch v := r.(type) {
		case scenario.ComponentRule:
			names = append(names, v.ComponentCode)
		case scenario.FormulaRule:
			names = append(names, v.Code)
		}
	}
	assert.Equal(t, []string{"BASE", "ALLOWANCE", "FIRST", "SECOND"}, names)
	assert.Len(t, s.Rules(), 5)
	assert.True(t, s.HasUsableRules())
}
