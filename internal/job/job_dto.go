package job

import "time"

type JobResponse struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	ScenarioID      string     `json:"scenario_id"`
	SimulationID    *string    `json:"simulation_id,omitempty"`
	PayrollRunID    *string    `json:"payroll_run_id,omitempty"`
	TotalUnits      int        `json:"total_units"`
	ProcessedUnits  int        `json:"processed_units"`
	Progress        float64    `json:"progress"`
	CancelRequested bool       `json:"cancel_requested"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	RequestedBy     string     `json:"requested_by"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func mapToResponse(j Job, cancelRequested bool) JobResponse {
	resp := JobResponse{
		ID:              j.ID.String(),
		Kind:            string(j.Kind),
		Status:          string(j.Status),
		ScenarioID:      j.ScenarioID.String(),
		PayrollRunID:    j.PayrollRunID,
		TotalUnits:      j.TotalUnits,
		ProcessedUnits:  j.ProcessedUnits,
		CancelRequested: cancelRequested,
		ErrorMessage:    j.ErrorMessage,
		RequestedBy:     j.RequestedBy,
		StartedAt:       j.StartedAt,
		FinishedAt:      j.FinishedAt,
		CreatedAt:       j.CreatedAt,
	}
	if j.SimulationID != nil {
		id := j.SimulationID.String()
		resp.SimulationID = &id
	}
	switch {
	case j.Status == StatusCompleted:
		resp.Progress = 1
	case j.TotalUnits > 0:
		resp.Progress = float64(j.ProcessedUnits) / float64(j.TotalUnits)
	}
	return resp
}
