package job

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSimulate Kind = "simulate"
	KindExecute  Kind = "execute"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return slices.Contains([]Status{StatusCompleted, StatusCancelled, StatusFailed}, s)
}

// Job tracks one background simulation or execution.
type Job struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ScenarioID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	SimulationID   *uuid.UUID `gorm:"type:uuid"`
	Kind           Kind       `gorm:"type:varchar(20);not null"`
	Status         Status     `gorm:"type:varchar(20);not null;default:'queued'"`
	TotalUnits     int        `gorm:"not null;default:0"`
	ProcessedUnits int        `gorm:"not null;default:0"`
	RequestedBy    string     `gorm:"type:varchar(64);not null"`
	PayrollRunID   *string    `gorm:"type:varchar(64)"`
	ErrorMessage   *string    `gorm:"type:text"`
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Job) TableName() string { return "jobs" }
