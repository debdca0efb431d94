package audit

import (
	"context"
	"database/sql"

	"go-twk/internal/shared/dbtx"
	"go-twk/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, rec *ExecutionRecord) error
	ListByScenario(ctx context.Context, companyID, scenarioID string, page, pageSize int) ([]ExecutionRecord, int64, error)
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

func (r *repository) Create(ctx context.Context, rec *ExecutionRecord) error {
	return dbtx.Bind(ctx, r.db, r.tx).Create(rec).Error
}

func (r *repository) ListByScenario(ctx context.Context, companyID, scenarioID string, page, pageSize int) ([]ExecutionRecord, int64, error) {
	db := dbtx.Bind(ctx, r.db, r.tx).
		Model(&ExecutionRecord{}).
		Scopes(tenant.Scope(companyID)).
		Where("scenario_id = ?", scenarioID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []ExecutionRecord
	err := db.
		Order("created_at ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, total, err
}
