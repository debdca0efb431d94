// Package report answers read-only liability questions over calculation
// results and payments.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ScenarioLiabilityRow struct {
	ScenarioID    string
	Code          string
	Name          string
	Status        string
	EffectiveDate time.Time
	Employees     int
	Results       int
	Liability     decimal.Decimal
	Approved      decimal.Decimal
	Paid          decimal.Decimal
}

type StatusLiabilityRow struct {
	Status    string
	Scenarios int
	Employees int
	Results   int
	Liability decimal.Decimal
}

type EmployeePaymentRow struct {
	PaymentLineID string
	PayrollRunID  string
	ScenarioID    string
	ScenarioCode  string
	ScenarioName  string
	GrossDelta    decimal.Decimal
	TaxWithheld   decimal.Decimal
	Results       int
	PaidAt        time.Time
}

type ScenarioFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

type Repository interface {
	LiabilityByScenario(ctx context.Context, companyID string, f ScenarioFilter) ([]ScenarioLiabilityRow, error)
	LiabilityByStatus(ctx context.Context, companyID string) ([]StatusLiabilityRow, error)
	EmployeePayments(ctx context.Context, companyID, employeeID string, limit, offset int) ([]EmployeePaymentRow, int64, error)
}

// liveResult limits results to the scenario's latest snapshot plus whatever
// has been paid. Results of cancelled or failed runs are voided as well, this
// keeps older rows out if voiding ever lags.
const liveResult = "(cr.status = 'paid' OR cr.simulation_id = s.latest_simulation_id)"

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Voided rows belong to superseded or abandoned snapshots and never count as
// liability.
func (r *repository) LiabilityByScenario(ctx context.Context, companyID string, f ScenarioFilter) ([]ScenarioLiabilityRow, error) {
	q := r.db.WithContext(ctx).
		Table("scenarios AS s").
		Select(`s.id::text AS scenario_id, s.code, s.name, s.status, s.effective_date,
			COUNT(DISTINCT cr.employee_id) AS employees,
			COUNT(cr.id) AS results,
			COALESCE(SUM(cr.delta), 0) AS liability,
			COALESCE(SUM(cr.delta) FILTER (WHERE cr.status = 'approved'), 0) AS approved,
			COALESCE(SUM(cr.delta) FILTER (WHERE cr.status = 'paid'), 0) AS paid`).
		Joins("LEFT JOIN calculation_results cr ON cr.scenario_id = s.id AND cr.status <> 'voided' AND "+liveResult).
		Where("s.company_id = ?", companyID)
	if f.Status != "" {
		q = q.Where("s.status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("s.effective_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("s.effective_date <= ?", *f.To)
	}

	var rows []ScenarioLiabilityRow
	err := q.Group("s.id, s.code, s.name, s.status, s.effective_date").
		Order("s.effective_date DESC, s.code ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) LiabilityByStatus(ctx context.Context, companyID string) ([]StatusLiabilityRow, error) {
	var rows []StatusLiabilityRow
	err := r.db.WithContext(ctx).
		Table("calculation_results AS cr").
		Select(`cr.status,
			COUNT(DISTINCT cr.scenario_id) AS scenarios,
			COUNT(DISTINCT cr.employee_id) AS employees,
			COUNT(*) AS results,
			COALESCE(SUM(cr.delta), 0) AS liability`).
		Joins("JOIN scenarios s ON s.id = cr.scenario_id").
		Where("cr.company_id = ? AND cr.status <> ?", companyID, "voided").
		Where(liveResult).
		Group("cr.status").
		Order("cr.status ASC").
		Scan(&rows).Error
	return rows, err
}

// EmployeePayments lists one row per payment line. Payment rows repeat the
// line totals for each result they cover, hence MAX.
func (r *repository) EmployeePayments(ctx context.Context, companyID, employeeID string, limit, offset int) ([]EmployeePaymentRow, int64, error) {
	base := r.db.WithContext(ctx).
		Table("twk_payments AS p").
		Where("p.company_id = ? AND p.employee_id = ?", companyID, employeeID)

	var total int64
	if err := base.Session(&gorm.Session{}).
		Distinct("p.payment_line_id").
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []EmployeePaymentRow
	err := base.Session(&gorm.Session{}).
		Select(`p.payment_line_id, p.payroll_run_id, p.scenario_id::text AS scenario_id,
			s.code AS scenario_code, s.name AS scenario_name,
			MAX(p.gross_delta) AS gross_delta, MAX(p.tax_withheld) AS tax_withheld,
			COUNT(*) AS results, MIN(p.created_at) AS paid_at`).
		Joins("JOIN scenarios s ON s.id = p.scenario_id").
		Group("p.payment_line_id, p.payroll_run_id, p.scenario_id, s.code, s.name").
		Order("paid_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	return rows, total, err
}
