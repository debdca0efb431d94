// Package directory reads the employee attributes used by rule filters and
// formula contexts.
package directory

import (
	"context"
	"time"

	"go-twk/internal/tenant"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Employee struct {
	ID             string
	FullName       string
	DepartmentID   string
	DepartmentName string
	HireDate       time.Time
	SalaryTier     int
	BaseSalary     decimal.Decimal
}

// TenureDays is the number of whole days between hire and at, never negative.
func (e Employee) TenureDays(at time.Time) int {
	if e.HireDate.IsZero() || at.Before(e.HireDate) {
		return 0
	}
	return int(at.Sub(e.HireDate).Hours() / 24)
}

// Directory is the port onto the employee master data.
type Directory interface {
	List(ctx context.Context, companyID string, ids []string) ([]Employee, error)
}

type row struct {
	ID             string
	FullName       string
	DepartmentID   *string
	DepartmentName *string
	HireDate       *time.Time
	SalaryTier     *int
	BaseSalary     *int64
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Directory {
	return &store{db: db}
}

// List returns the employees with the given ids. Base salary is the latest
// employee_salaries row (minor units).
func (s *store) List(ctx context.Context, companyID string, ids []string) ([]Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Table("employees").
		Select(`employees.id::text AS id,
			employees.full_name,
			employees.department_id::text AS department_id,
			departments.name AS department_name,
			employees.hire_date,
			positions.salary_tier,
			salary.base_salary`).
		Joins("LEFT JOIN departments ON departments.id = employees.department_id").
		Joins("LEFT JOIN positions ON positions.id = employees.position_id").
		Joins(`LEFT JOIN LATERAL (
			SELECT es.base_salary FROM employee_salaries es
			WHERE es.employee_id = employees.id
			ORDER BY es.effective_date DESC, es.created_at DESC
			LIMIT 1
		) salary ON true`).
		Scopes(tenant.ScopeTable("employees", companyID)).
		Where("employees.id IN ?", ids).
		Where("employees.deleted_at IS NULL").
		Order("employees.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Employee, 0, len(rows))
	for _, r := range rows {
		e := Employee{ID: r.ID, FullName: r.FullName, BaseSalary: decimal.Zero}
		if r.DepartmentID != nil {
			e.DepartmentID = *r.DepartmentID
		}
		if r.DepartmentName != nil {
			e.DepartmentName = *r.DepartmentName
		}
		if r.HireDate != nil {
			e.HireDate = *r.HireDate
		}
		if r.SalaryTier != nil {
			e.SalaryTier = *r.SalaryTier
		}
		if r.BaseSalary != nil {
			e.BaseSalary = decimal.New(*r.BaseSalary, -2)
		}
		out = append(out, e)
	}
	return out, nil
}
