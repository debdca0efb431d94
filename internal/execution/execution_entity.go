package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment links a paid calculation result to the payment line that paid it.
// GrossDelta and TaxWithheld are the employee line totals.
type Payment struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ScenarioID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	CalculationResultID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_twk_payments_result"`
	EmployeeID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	JobID               uuid.UUID       `gorm:"type:uuid;not null"`
	PayrollRunID        string          `gorm:"type:varchar(64);not null"`
	PaymentLineID       string          `gorm:"type:varchar(64);not null"`
	GrossDelta          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	TaxWithheld         decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt           time.Time
}

func (Payment) TableName() string { return "twk_payments" }

// Failure is one employee whose payment could not be created.
type Failure struct {
	EmployeeID string `json:"employee_id"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Attempts   int    `json:"attempts"`
}

type Summary struct {
	Employees int             `json:"employees"`
	Paid      int             `json:"paid"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Results   int             `json:"results"`
	Total     decimal.Decimal `json:"total"`
	Tax       decimal.Decimal `json:"tax"`
	Failures  []Failure       `json:"failures"`
}
