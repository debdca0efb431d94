package report

type LiabilityByScenarioRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=draft simulated approved executed cancelled"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

type ScenarioLiabilityResponse struct {
	ScenarioID    string `json:"scenario_id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	EffectiveDate string `json:"effective_date"`
	Employees     int    `json:"employees"`
	Results       int    `json:"results"`
	Liability     string `json:"liability"`
	Approved      string `json:"approved"`
	Paid          string `json:"paid"`
	Outstanding   string `json:"outstanding"`
}

type LiabilityByScenarioResponse struct {
	Items       []ScenarioLiabilityResponse `json:"items"`
	Liability   string                      `json:"liability"`
	Paid        string                      `json:"paid"`
	Outstanding string                      `json:"outstanding"`
}

type StatusLiabilityResponse struct {
	Status    string `json:"status"`
	Scenarios int    `json:"scenarios"`
	Employees int    `json:"employees"`
	Results   int    `json:"results"`
	Liability string `json:"liability"`
}

type EmployeePaymentsRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

type EmployeePaymentResponse struct {
	PaymentLineID string `json:"payment_line_id"`
	PayrollRunID  string `json:"payroll_run_id"`
	ScenarioID    string `json:"scenario_id"`
	ScenarioCode  string `json:"scenario_code"`
	ScenarioName  string `json:"scenario_name"`
	GrossDelta    string `json:"gross_delta"`
	TaxWithheld   string `json:"tax_withheld"`
	NetDelta      string `json:"net_delta"`
	Results       int    `json:"results"`
	PaidAt        string `json:"paid_at"`
}
