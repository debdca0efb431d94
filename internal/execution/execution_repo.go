package execution

import (
	"context"
	"database/sql"
	"time"

	"go-twk/internal/job"
	"go-twk/internal/shared/dbtx"
	"go-twk/internal/simulation"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	// PayableResults returns the snapshot's approved results, oldest period
	// first per employee.
	PayableResults(ctx context.Context, simulationID string) ([]simulation.CalculationResult, error)
	CreatePayments(ctx context.Context, payments []Payment) error
	// MarkPaid moves approved results to paid and reports how many moved.
	MarkPaid(ctx context.Context, resultIDs []string) (int64, error)
	SetPayrollRun(ctx context.Context, jobID, runID string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return dbtx.Bind(ctx, r.db, r.tx)
}

func (r *repository) PayableResults(ctx context.Context, simulationID string) ([]simulation.CalculationResult, error) {
	var items []simulation.CalculationResult
	err := r.conn(ctx).
		Where("simulation_id = ? AND status = ?", simulationID, simulation.ResultApproved).
		Order("employee_id, period_start").
		Find(&items).Error
	return items, err
}

func (r *repository) CreatePayments(ctx context.Context, payments []Payment) error {
	if len(payments) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&payments).Error
}

func (r *repository) MarkPaid(ctx context.Context, resultIDs []string) (int64, error) {
	res := r.conn(ctx).Model(&simulation.CalculationResult{}).
		Where("id IN ? AND status = ?", resultIDs, simulation.ResultApproved).
		Updates(map[string]any{"status": simulation.ResultPaid, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) SetPayrollRun(ctx context.Context, jobID, runID string) error {
	return r.conn(ctx).Model(&job.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]any{"payroll_run_id": runID, "updated_at": time.Now().UTC()}).Error
}
