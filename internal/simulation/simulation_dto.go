package simulation

import (
	"sort"
	"time"

	"go-twk/internal/shared/money"

	"github.com/shopspring/decimal"
)

type TriggerResponse struct {
	JobID        string `json:"job_id"`
	SimulationID string `json:"simulation_id"`
	ScenarioID   string `json:"scenario_id"`
	Status       string `json:"status"`
}

type ListResultsRequest struct {
	EmployeeID string `form:"employee_id" binding:"omitempty,uuid"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

type AmountByKey struct {
	Key   string `json:"key"`
	Total string `json:"total"`
}

type SummaryResponse struct {
	ID            string        `json:"id"`
	ScenarioID    string        `json:"scenario_id"`
	JobID         string        `json:"job_id"`
	Status        string        `json:"status"`
	Incomplete    bool          `json:"incomplete"`
	GrandTotal    string        `json:"grand_total"`
	EmployeeCount int           `json:"employee_count"`
	PeriodCount   int           `json:"period_count"`
	ResultCount   int           `json:"result_count"`
	ByDepartment  []AmountByKey `json:"by_department"`
	ByPeriod      []AmountByKey `json:"by_period"`
	Warnings      []Issue       `json:"warnings"`
	Errors        []Issue       `json:"errors"`
	Fatal         string        `json:"fatal,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
}

type ResultResponse struct {
	ID          string            `json:"id"`
	EmployeeID  string            `json:"employee_id"`
	Department  string            `json:"department_id,omitempty"`
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
	PeriodIndex int               `json:"period_index"`
	PayRunID    string            `json:"pay_run_id,omitempty"`
	Proration   string            `json:"proration"`
	Original    string            `json:"original"`
	Recomputed  string            `json:"recomputed"`
	Delta       string            `json:"delta"`
	Breakdown   map[string]string `json:"breakdown"`
	Status      string            `json:"status"`
}

func mapToSummaryResponse(s Simulation) SummaryResponse {
	warnings := s.Summary.Warnings
	if warnings == nil {
		warnings = []Issue{}
	}
	errs := s.Summary.Errors
	if errs == nil {
		errs = []Issue{}
	}
	return SummaryResponse{
		ID:            s.ID.String(),
		ScenarioID:    s.ScenarioID.String(),
		JobID:         s.JobID.String(),
		Status:        string(s.Status),
		Incomplete:    s.Incomplete || s.Summary.Incomplete,
		GrandTotal:    money.String(s.Summary.GrandTotal),
		EmployeeCount: s.Summary.EmployeeCount,
		PeriodCount:   s.Summary.PeriodCount,
		ResultCount:   s.Summary.ResultCount,
		ByDepartment:  sortedAmounts(s.Summary.ByDepartment),
		ByPeriod:      sortedAmounts(s.Summary.ByPeriod),
		Warnings:      warnings,
		Errors:        errs,
		Fatal:         s.Summary.Fatal,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
	}
}

func sortedAmounts(m map[string]decimal.Decimal) []AmountByKey {
	out := make([]AmountByKey, 0, len(m))
	for k, v := range m {
		out = append(out, AmountByKey{Key: k, Total: money.String(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func mapToResultResponse(r CalculationResult) ResultResponse {
	breakdown := make(map[string]string, len(r.Breakdown))
	for code, v := range r.Breakdown {
		breakdown[code] = money.String(v)
	}
	return ResultResponse{
		ID:          r.ID.String(),
		EmployeeID:  r.EmployeeID.String(),
		Department:  r.DepartmentID,
		PeriodStart: r.PeriodStart.Format(time.DateOnly),
		PeriodEnd:   r.PeriodEnd.Format(time.DateOnly),
		PeriodIndex: r.PeriodIndex,
		PayRunID:    r.PayRunID,
		Proration:   r.Proration.String(),
		Original:    money.String(r.Original),
		Recomputed:  money.String(r.Recomputed),
		Delta:       money.String(r.Delta),
		Breakdown:   breakdown,
		Status:      string(r.Status),
	}
}

func mapToResultListResponse(items []CalculationResult) []ResultResponse {
	out := make([]ResultResponse, 0, len(items))
	for _, r := range items {
		out = append(out, mapToResultResponse(r))
	}
	return out
}
