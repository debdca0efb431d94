package history

import (
	"context"
	"time"

	"go-twk/internal/period"
	"go-twk/internal/tenant"

	"gorm.io/gorm"
)

// Store is the read-only port onto the external payroll history.
type Store interface {
	period.Source
	PaidPayrolls(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Payroll, error)
	Attendances(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Attendance, error)
	PaidEmployeeIDs(ctx context.Context, companyID string, from, to time.Time) ([]string, error)
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Boundaries(ctx context.Context, companyID string, from, to time.Time) ([]period.Boundary, error) {
	var rows []struct {
		PeriodStart  time.Time
		PeriodEnd    time.Time
		PayrollRunID string
	}
	err := s.db.WithContext(ctx).
		Model(&Payroll{}).
		Scopes(tenant.Scope(companyID)).
		Select("period_start, period_end, COALESCE(MIN(payroll_run_id::text), '') AS payroll_run_id").
		Where("status = ?", StatusPaid).
		Where("period_end >= ? AND period_start <= ?", from, to).
		Group("period_start, period_end").
		Order("period_start ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]period.Boundary, 0, len(rows))
	for _, r := range rows {
		out = append(out, period.Boundary{Start: r.PeriodStart, End: r.PeriodEnd, PayRunID: r.PayrollRunID})
	}
	return out, nil
}

func (s *store) PaidPayrolls(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Payroll, error) {
	var payrolls []Payroll
	err := s.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Components").
		Where("employee_id = ?", employeeID).
		Where("status = ?", StatusPaid).
		Where("period_end >= ? AND period_start <= ?", from, to).
		Order("period_start ASC").
		Find(&payrolls).Error
	return payrolls, err
}

func (s *store) Attendances(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Attendance, error) {
	var rows []Attendance
	err := s.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("attendance_date BETWEEN ? AND ?", from, to).
		Order("attendance_date ASC").
		Find(&rows).Error
	return rows, err
}

func (s *store) PaidEmployeeIDs(ctx context.Context, companyID string, from, to time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Payroll{}).
		Scopes(tenant.Scope(companyID)).
		Where("status = ?", StatusPaid).
		Where("period_end >= ? AND period_start <= ?", from, to).
		Distinct("employee_id").
		Order("employee_id").
		Pluck("employee_id", &ids).Error
	return ids, err
}
