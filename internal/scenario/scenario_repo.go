package scenario

import (
	"context"
	"database/sql"
	"time"

	"go-twk/internal/shared/dbtx"
	"go-twk/internal/tenant"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListFilter struct {
	Status   string
	Page     int
	PageSize int
}

//go:generate mockgen -source=scenario_repo.go -destination=mock/scenario_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, s *Scenario) error
	FindAll(ctx context.Context, companyID string, filter ListFilter) ([]Scenario, int64, error)
	FindByID(ctx context.Context, companyID, id string) (*Scenario, error)
	FindByIDForUpdate(ctx context.Context, companyID, id string) (*Scenario, error)
	Update(ctx context.Context, s *Scenario) error
	Delete(ctx context.Context, companyID, id string) error

	CreateComponentRule(ctx context.Context, rule *ComponentRule) error
	DeleteComponentRule(ctx context.Context, scenarioID, ruleID string) (int64, error)
	CreateFormulaRule(ctx context.Context, rule *FormulaRule) error
	DeleteFormulaRule(ctx context.Context, scenarioID, ruleID string) (int64, error)

	// AcquireLock sets active_job_id when no job holds the scenario and its
	// status is one of allowed. It reports whether the lock was taken.
	AcquireLock(ctx context.Context, companyID, id, jobID string, allowed []Status) (bool, error)
	ReleaseLock(ctx context.Context, id, jobID string) error
	CompleteSimulation(ctx context.Context, id, jobID, simulationID string) (bool, error)
	MarkExecuted(ctx context.Context, id, jobID string) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return dbtx.Bind(ctx, r.db, r.tx)
}

func (r *repository) Create(ctx context.Context, s *Scenario) error {
	return r.conn(ctx).Omit(clause.Associations).Create(s).Error
}

func (r *repository) FindAll(ctx context.Context, companyID string, filter ListFilter) ([]Scenario, int64, error) {
	db := r.conn(ctx).Model(&Scenario{}).Scopes(tenant.Scope(companyID))
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []Scenario
	err := db.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&items).Error
	return items, total, err
}

func (r *repository) FindByID(ctx context.Context, companyID, id string) (*Scenario, error) {
	var s Scenario
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("ComponentRules", func(db *gorm.DB) *gorm.DB { return db.Order("execution_order, created_at") }).
		Preload("FormulaRules", func(db *gorm.DB) *gorm.DB { return db.Order("execution_order, created_at") }).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, companyID, id string) (*Scenario, error) {
	var s Scenario
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.Scope(companyID)).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	if err := r.conn(ctx).Where("scenario_id = ?", s.ID).Order("execution_order, created_at").Find(&s.ComponentRules).Error; err != nil {
		return nil, err
	}
	if err := r.conn(ctx).Where("scenario_id = ?", s.ID).Order("execution_order, created_at").Find(&s.FormulaRules).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Update(ctx context.Context, s *Scenario) error {
	return r.conn(ctx).Omit(clause.Associations).Save(s).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id string) error {
	db := r.conn(ctx)
	if err := db.Where("scenario_id = ?", id).Delete(&ComponentRule{}).Error; err != nil {
		return err
	}
	if err := db.Where("scenario_id = ?", id).Delete(&FormulaRule{}).Error; err != nil {
		return err
	}
	return db.Scopes(tenant.Scope(companyID)).Delete(&Scenario{}, "id = ?", id).Error
}

func (r *repository) CreateComponentRule(ctx context.Context, rule *ComponentRule) error {
	return r.conn(ctx).Create(rule).Error
}

func (r *repository) DeleteComponentRule(ctx context.Context, scenarioID, ruleID string) (int64, error) {
	res := r.conn(ctx).Where("scenario_id = ? AND id = ?", scenarioID, ruleID).Delete(&ComponentRule{})
	return res.RowsAffected, res.Error
}

func (r *repository) CreateFormulaRule(ctx context.Context, rule *FormulaRule) error {
	return r.conn(ctx).Create(rule).Error
}

func (r *repository) DeleteFormulaRule(ctx context.Context, scenarioID, ruleID string) (int64, error) {
	res := r.conn(ctx).Where("scenario_id = ? AND id = ?", scenarioID, ruleID).Delete(&FormulaRule{})
	return res.RowsAffected, res.Error
}

func (r *repository) AcquireLock(ctx context.Context, companyID, id, jobID string, allowed []Status) (bool, error) {
	res := r.conn(ctx).
		Model(&Scenario{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ? AND active_job_id IS NULL AND status IN ?", id, allowed).
		Updates(map[string]any{"active_job_id": jobID, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) ReleaseLock(ctx context.Context, id, jobID string) error {
	return r.conn(ctx).
		Model(&Scenario{}).
		Where("id = ? AND active_job_id = ?", id, jobID).
		Updates(map[string]any{"active_job_id": nil, "updated_at": time.Now().UTC()}).Error
}

// CompleteSimulation publishes simulationID as the latest snapshot. Any
// previous approval is invalidated.
func (r *repository) CompleteSimulation(ctx context.Context, id, jobID, simulationID string) (bool, error) {
	res := r.conn(ctx).
		Model(&Scenario{}).
		Where("id = ? AND active_job_id = ?", id, jobID).
		Updates(map[string]any{
			"status":                 StatusSimulated,
			"latest_simulation_id":   simulationID,
			"approved_simulation_id": nil,
			"approved_at":            nil,
			"approved_by":            nil,
			"submitted_at":           nil,
			"submitted_by":           nil,
			"active_job_id":          nil,
			"updated_at":             time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) MarkExecuted(ctx context.Context, id, jobID string) (bool, error) {
	res := r.conn(ctx).
		Model(&Scenario{}).
		Where("id = ? AND active_job_id = ?", id, jobID).
		Where("status IN ?", ExecutableStatuses).
		Updates(map[string]any{
			"status":        StatusExecuted,
			"active_job_id": nil,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}
