package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionSimulate Action = "simulate"
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionExecute  Action = "execute"
	ActionCancel   Action = "cancel"
)

const (
	OutcomeRequested = "requested"
	OutcomeSucceeded = "succeeded"
	OutcomePartial   = "partial"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// ExecutionRecord is an append-only row. The repository has no update or
// delete path for it.
type ExecutionRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_execution_records_scenario"`
	ScenarioID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_execution_records_scenario"`
	JobID         *uuid.UUID      `gorm:"type:uuid"`
	ActorID       string          `gorm:"type:varchar(64);not null"`
	Action        Action          `gorm:"type:varchar(20);not null"`
	Outcome       string          `gorm:"type:varchar(20);not null"`
	EmployeeCount int             `gorm:"not null;default:0"`
	PeriodCount   int             `gorm:"not null;default:0"`
	Total         decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	ErrorCount    int             `gorm:"not null;default:0"`
	WarningCount  int             `gorm:"not null;default:0"`
	Details       map[string]any  `gorm:"type:jsonb;serializer:json"`
	RequestID     string          `gorm:"type:varchar(64)"`
	CreatedAt     time.Time       `gorm:"index:idx_execution_records_scenario"`
}

// Entry is what callers hand to the recorder.
type Entry struct {
	CompanyID     string
	ScenarioID    string
	JobID         string
	ActorID       string
	Action        Action
	Outcome       string
	EmployeeCount int
	PeriodCount   int
	Total         decimal.Decimal
	ErrorCount    int
	WarningCount  int
	Details       map[string]any
}
