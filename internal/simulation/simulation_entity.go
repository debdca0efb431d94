package simulation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Simulation is the header of one result snapshot.
type Simulation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ScenarioID uuid.UUID `gorm:"type:uuid;not null;index"`
	JobID      uuid.UUID `gorm:"type:uuid;not null"`
	Status     Status    `gorm:"type:varchar(20);not null"`
	Incomplete bool      `gorm:"not null;default:false"`
	Summary    Summary   `gorm:"type:jsonb;serializer:json"`
	StartedAt  time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ResultStatus string

const (
	ResultCalculated ResultStatus = "calculated"
	ResultApproved   ResultStatus = "approved"
	ResultPaid       ResultStatus = "paid"
	ResultVoided     ResultStatus = "voided"
)

// CalculationResult is one employee's recalculated period. Rows are never
// updated after they reach paid.
type CalculationResult struct {
	ID           uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID                  `gorm:"type:uuid;not null;index"`
	ScenarioID   uuid.UUID                  `gorm:"type:uuid;not null;index"`
	SimulationID uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:uq_results_simulation_employee_period"`
	EmployeeID   uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:uq_results_simulation_employee_period"`
	DepartmentID string                     `gorm:"type:varchar(64)"`
	PeriodStart  time.Time                  `gorm:"type:date;not null;uniqueIndex:uq_results_simulation_employee_period"`
	PeriodEnd    time.Time                  `gorm:"type:date;not null"`
	PeriodIndex  int                        `gorm:"not null"`
	PayRunID     string                     `gorm:"type:varchar(64)"`
	Proration    decimal.Decimal            `gorm:"type:numeric(9,6);not null"`
	Original     decimal.Decimal            `gorm:"type:numeric(18,2);not null"`
	Recomputed   decimal.Decimal            `gorm:"type:numeric(18,2);not null"`
	Delta        decimal.Decimal            `gorm:"type:numeric(18,2);not null"`
	Breakdown    map[string]decimal.Decimal `gorm:"type:jsonb;serializer:json"`
	Status       ResultStatus               `gorm:"type:varchar(20);not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Issue is a warning or error attached to a simulation summary.
type Issue struct {
	Code       string `json:"code"`
	EmployeeID string `json:"employee_id,omitempty"`
	Period     string `json:"period,omitempty"`
	Rule       string `json:"rule,omitempty"`
	Message    string `json:"message"`
}

const (
	IssueDataGap       = "DATA_GAP"
	IssueFilterSkipped = "FILTER_SKIPPED"
	IssueFormula       = "FORMULA_EVALUATION"
)

type Summary struct {
	GrandTotal    decimal.Decimal            `json:"grand_total"`
	EmployeeCount int                        `json:"employee_count"`
	PeriodCount   int                        `json:"period_count"`
	ResultCount   int                        `json:"result_count"`
	ByDepartment  map[string]decimal.Decimal `json:"by_department"`
	ByPeriod      map[string]decimal.Decimal `json:"by_period"`
	Warnings      []Issue                    `json:"warnings"`
	Errors        []Issue                    `json:"errors"`
	Incomplete    bool                       `json:"incomplete"`
	Fatal         string                     `json:"fatal,omitempty"`
}
