package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Read models over the payroll system's tables. The engine never writes them.

const StatusPaid = "PAID"

// Component codes derived from the fixed payroll columns.
const (
	ComponentBase      = "BASE"
	ComponentAllowance = "ALLOWANCE"
	ComponentOvertime  = "OVERTIME"
)

const ComponentTypeDeduction = "DEDUCTION"

// NormalizeComponentCode maps a stored component name or a rule's component
// code onto one key: upper case, words joined by underscores.
// "Transport allowance" and "TRANSPORT_ALLOWANCE" are the same component.
func NormalizeComponentCode(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.ToUpper(strings.Join(words, "_"))
}

type Payroll struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null"`
	EmployeeID   uuid.UUID  `gorm:"type:uuid;not null"`
	PayrollRunID *uuid.UUID `gorm:"type:uuid"`
	PeriodStart  time.Time  `gorm:"type:date;not null"`
	PeriodEnd    time.Time  `gorm:"type:date;not null"`

	// minor units (cents)
	BaseSalary     int64
	Allowance      int64
	OvertimeHours  int64
	OvertimeAmount int64
	Deduction      int64
	NetSalary      int64

	Status    string
	PaidAt    *time.Time
	DeletedAt gorm.DeletedAt

	Components []PayrollComponent `gorm:"foreignKey:PayrollID"`
}

func (Payroll) TableName() string {
	return "payrolls"
}

type PayrollComponent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PayrollID     uuid.UUID `gorm:"type:uuid;not null"`
	ComponentType string
	ComponentName string
	TotalAmount   int64
}

// Code is the component's normalized code.
func (c PayrollComponent) Code() string {
	return NormalizeComponentCode(c.ComponentName)
}

func (PayrollComponent) TableName() string {
	return "payroll_components"
}

type Attendance struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID      uuid.UUID  `gorm:"type:uuid"`
	EmployeeID     uuid.UUID  `gorm:"type:uuid"`
	AttendanceDate time.Time  `gorm:"type:date"`
	ClockIn        time.Time  `gorm:"type:timestamptz"`
	ClockOut       *time.Time `gorm:"type:timestamptz"`
	Status         string
	DeletedAt      gorm.DeletedAt
}

func (Attendance) TableName() string {
	return "attendances"
}
