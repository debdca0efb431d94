package job

import (
	"context"
	"database/sql"
	"time"

	"go-twk/internal/shared/dbtx"
	"go-twk/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, j *Job) error
	FindByID(ctx context.Context, companyID, id string) (*Job, error)
	// Load reads a job without tenant scope, for workers acting on an event.
	Load(ctx context.Context, id string) (*Job, error)
	MarkRunning(ctx context.Context, id string, total int) (bool, error)
	UpdateProgress(ctx context.Context, id string, processed, total int) error
	Finish(ctx context.Context, id string, status Status, processed int, message string) error
	// CancelQueued cancels a job no worker has claimed yet.
	CancelQueued(ctx context.Context, id string) (bool, error)
	// ListStale lists running jobs whose heartbeat is older than before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]Job, error)
	// FailStale fails a running job if its heartbeat is still older than before.
	FailStale(ctx context.Context, id string, before time.Time, message string) (bool, error)
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

func (r *repository) Create(ctx context.Context, j *Job) error {
	return r.conn(ctx).Create(j).Error
}

func (r *repository) FindByID(ctx context.Context, companyID, id string) (*Job, error) {
	var j Job
	err := r.conn(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("id = ?", id).
		First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *repository) Load(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.conn(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// MarkRunning claims a queued job. A redelivered event finds it running and
// gets false.
func (r *repository) MarkRunning(ctx context.Context, id string, total int) (bool, error) {
	now := time.Now().UTC()
	res := r.conn(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusQueued).
		Updates(map[string]any{
			"status":      StatusRunning,
			"total_units": total,
			"started_at":  now,
			"updated_at":  now,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) UpdateProgress(ctx context.Context, id string, processed, total int) error {
	return r.conn(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusRunning).
		Updates(map[string]any{
			"processed_units": processed,
			"total_units":     total,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *repository) Finish(ctx context.Context, id string, status Status, processed int, message string) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":          status,
		"processed_units": processed,
		"finished_at":     now,
		"updated_at":      now,
	}
	if message != "" {
		updates["error_message"] = message
	}
	return r.conn(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, []Status{StatusQueued, StatusRunning}).
		Updates(updates).Error
}

func (r *repository) CancelQueued(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	res := r.conn(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusQueued).
		Updates(map[string]any{
			"status":      StatusCancelled,
			"finished_at": now,
			"updated_at":  now,
		})
	return res.RowsAffected == 1, res.Error
}

// ListStale relies on the runner's progress flush bumping updated_at on every
// poll while a job runs.
func (r *repository) ListStale(ctx context.Context, before time.Time, limit int) ([]Job, error) {
	var jobs []Job
	err := r.conn(ctx).
		Where("status = ? AND updated_at < ?", StatusRunning, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *repository) FailStale(ctx context.Context, id string, before time.Time, message string) (bool, error) {
	now := time.Now().UTC()
	res := r.conn(ctx).Model(&Job{}).
		Where("id = ? AND status = ? AND updated_at < ?", id, StatusRunning, before).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": message,
			"finished_at":   now,
			"updated_at":    now,
		})
	return res.RowsAffected == 1, res.Error
}
