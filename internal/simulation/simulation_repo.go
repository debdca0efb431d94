package simulation

import (
	"context"
	"database/sql"
	"time"

	"go-twk/internal/shared/dbtx"
	"go-twk/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const resultBatchSize = 200

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	CreateSimulation(ctx context.Context, s *Simulation) error
	FindSimulation(ctx context.Context, companyID, id string) (*Simulation, error)
	FinishSimulation(ctx context.Context, id string, status Status, summary Summary) error
	SaveResults(ctx context.Context, results []CalculationResult) error
	ListResults(ctx context.Context, companyID, simulationID string, filter ResultFilter) ([]CalculationResult, int64, error)
	// VoidOtherSnapshots voids the scenario's unpaid results outside keep.
	VoidOtherSnapshots(ctx context.Context, scenarioID, keep string) (int64, error)
	// VoidSnapshot voids the calculated results of a run that did not complete.
	VoidSnapshot(ctx context.Context, simulationID string) (int64, error)
	ApproveSnapshot(ctx context.Context, tx *sql.Tx, simulationID string) (int64, error)
}

type ResultFilter struct {
	EmployeeID string
	Page       int
	PageSize   int
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

func (r *repository) CreateSimulation(ctx context.Context, s *Simulation) error {
	return r.conn(ctx).Create(s).Error
}

func (r *repository) FindSimulation(ctx context.Context, companyID, id string) (*Simulation, error) {
	var s Simulation
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) FinishSimulation(ctx context.Context, id string, status Status, summary Summary) error {
	now := time.Now().UTC()
	return r.conn(ctx).Model(&Simulation{ID: uuid.MustParse(id)}).
		Select("status", "incomplete", "summary", "finished_at", "updated_at").
		Updates(&Simulation{
			Status:     status,
			Incomplete: summary.Incomplete,
			Summary:    summary,
			FinishedAt: &now,
			UpdatedAt:  now,
		}).Error
}

func (r *repository) SaveResults(ctx context.Context, results []CalculationResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.conn(ctx).CreateInBatches(results, resultBatchSize).Error
}

func (r *repository) ListResults(ctx context.Context, companyID, simulationID string, filter ResultFilter) ([]CalculationResult, int64, error) {
	q := r.conn(ctx).Model(&CalculationResult{}).
		Scopes(tenant.Scope(companyID)).
		Where("simulation_id = ?", simulationID)
	if filter.EmployeeID != "" {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []CalculationResult
	err := q.Order("employee_id, period_start").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) VoidOtherSnapshots(ctx context.Context, scenarioID, keep string) (int64, error) {
	res := r.conn(ctx).Model(&CalculationResult{}).
		Where("scenario_id = ? AND simulation_id <> ? AND status IN ?", scenarioID, keep,
			[]ResultStatus{ResultCalculated, ResultApproved}).
		Updates(map[string]any{"status": ResultVoided, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) VoidSnapshot(ctx context.Context, simulationID string) (int64, error) {
	res := r.conn(ctx).Model(&CalculationResult{}).
		Where("simulation_id = ? AND status = ?", simulationID, ResultCalculated).
		Updates(map[string]any{"status": ResultVoided, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) ApproveSnapshot(ctx context.Context, tx *sql.Tx, simulationID string) (int64, error) {
	res := dbtx.Bind(ctx, r.db, tx).Model(&CalculationResult{}).
		Where("simulation_id = ? AND status = ?", simulationID, ResultCalculated).
		Updates(map[string]any{"status": ResultApproved, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
