package execution

type ExecuteRequest struct {
	PayrollRunID string `json:"payroll_run_id" binding:"omitempty,max=64"`
}

type ExecuteResponse struct {
	JobID        string  `json:"job_id"`
	ScenarioID   string  `json:"scenario_id"`
	SimulationID string  `json:"simulation_id"`
	PayrollRunID *string `json:"payroll_run_id,omitempty"`
	Status       string  `json:"status"`
}
