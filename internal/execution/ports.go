package execution

import (
	"context"

	"github.com/shopspring/decimal"
)

// WithholdingRequest asks the tax engine to withhold on one employee's
// retroactive gross.
type WithholdingRequest struct {
	CompanyID      string          `json:"company_id"`
	EmployeeID     string          `json:"employee_id"`
	GrossDelta     decimal.Decimal `json:"gross_delta"`
	Periods        []string        `json:"periods"`
	IdempotencyKey string          `json:"-"`
}

// CreateRunRequest opens a dedicated payroll run for a scenario's payments.
type CreateRunRequest struct {
	CompanyID      string `json:"company_id"`
	ScenarioID     string `json:"scenario_id"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"-"`
}

// PaymentLine is one employee's line on a payroll run.
type PaymentLine struct {
	EmployeeID     string          `json:"employee_id"`
	GrossDelta     decimal.Decimal `json:"gross_delta"`
	TaxWithheld    decimal.Decimal `json:"tax_withheld"`
	Description    string          `json:"description"`
	ResultIDs      []string        `json:"calculation_result_ids"`
	IdempotencyKey string          `json:"-"`
}

//go:generate mockgen -source=ports.go -destination=mock/ports_mock.go -package=mock
type TaxEngine interface {
	Withhold(ctx context.Context, req WithholdingRequest) (decimal.Decimal, error)
}

type PayrollRunCreator interface {
	CreateRun(ctx context.Context, req CreateRunRequest) (string, error)
	AddPaymentLine(ctx context.Context, runID string, line PaymentLine) (string, error)
}

// temporary is implemented by collaborator errors that are worth retrying.
type temporary interface {
	Temporary() bool
}
