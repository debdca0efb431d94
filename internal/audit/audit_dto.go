package audit

import "time"

type RecordResponse struct {
	ID            string         `json:"id"`
	ScenarioID    string         `json:"scenario_id"`
	JobID         *string        `json:"job_id,omitempty"`
	ActorID       string         `json:"actor_id"`
	Action        string         `json:"action"`
	Outcome       string         `json:"outcome"`
	EmployeeCount int            `json:"employee_count"`
	PeriodCount   int            `json:"period_count"`
	Total         string         `json:"total"`
	ErrorCount    int            `json:"error_count"`
	WarningCount  int            `json:"warning_count"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func mapToResponse(r ExecutionRecord) RecordResponse {
	resp := RecordResponse{
		ID:            r.ID.String(),
		ScenarioID:    r.ScenarioID.String(),
		ActorID:       r.ActorID,
		Action:        string(r.Action),
		Outcome:       r.Outcome,
		EmployeeCount: r.EmployeeCount,
		PeriodCount:   r.PeriodCount,
		Total:         r.Total.StringFixed(2),
		ErrorCount:    r.ErrorCount,
		WarningCount:  r.WarningCount,
		Details:       r.Details,
		CreatedAt:     r.CreatedAt,
	}
	if r.JobID != nil {
		id := r.JobID.String()
		resp.JobID = &id
	}
	return resp
}
