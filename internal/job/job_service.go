package job

import (
	"context"
	"database/sql"
	"errors"

	"go-twk/internal/audit"
	joberrors "go-twk/internal/job/errors"
	"go-twk/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Get(ctx context.Context, companyID, id string) (JobResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string) (JobResponse, error)
}

type service struct {
	db      *sql.DB
	repo    Repository
	flags   CancelFlags
	abandon Abandoner
	audit   audit.Recorder
	logger  *zap.Logger
}

func NewService(db *sql.DB, repo Repository, flags CancelFlags, abandon Abandoner, recorder audit.Recorder) Service {
	return &service{
		db:      db,
		repo:    repo,
		flags:   flags,
		abandon: abandon,
		audit:   recorder,
		logger:  zap.L().Named("job.service"),
	}
}

func (s *service) find(ctx context.Context, companyID, id string) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, joberrors.ErrJobNotFound
	}
	j, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, joberrors.ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

func (s *service) Get(ctx context.Context, companyID, id string) (JobResponse, error) {
	j, err := s.find(ctx, companyID, id)
	if err != nil {
		return JobResponse{}, err
	}
	requested := false
	if !j.Status.Terminal() {
		requested, err = s.flags.Requested(ctx, id)
		if err != nil {
			contextutil.GetLogger(ctx, s.logger).Warn("read cancel flag failed", zap.String("job_id", id), zap.Error(err))
		}
	}
	return mapToResponse(*j, requested), nil
}

// Cancel finishes a queued job on the spot and releases what its trigger
// holds. A running job gets the cooperative flag instead; it stops at the next
// unit boundary and keeps what it already produced.
func (s *service) Cancel(ctx context.Context, companyID, actorID, id string) (JobResponse, error) {
	j, err := s.find(ctx, companyID, id)
	if err != nil {
		return JobResponse{}, err
	}
	if j.Status.Terminal() {
		return JobResponse{}, joberrors.ErrJobFinished.WithDetails(map[string]string{"status": string(j.Status)})
	}
	if j.Status == StatusQueued {
		cancelled, err := s.cancelQueued(ctx, actorID, j)
		if err != nil {
			return JobResponse{}, err
		}
		if cancelled {
			contextutil.GetLogger(ctx, s.logger).Info("queued job cancelled",
				zap.String("job_id", id),
				zap.String("kind", string(j.Kind)),
			)
			j.Status = StatusCancelled
			return mapToResponse(*j, false), nil
		}
		// a worker claimed it in the meantime
	}
	if err := s.flags.Request(ctx, id); err != nil {
		return JobResponse{}, err
	}

	if err := s.audit.Record(ctx, nil, audit.Entry{
		CompanyID:  companyID,
		ScenarioID: j.ScenarioID.String(),
		JobID:      id,
		ActorID:    actorID,
		Action:     audit.ActionCancel,
		Outcome:    audit.OutcomeRequested,
		Details:    map[string]any{"kind": string(j.Kind), "status": string(j.Status)},
	}); err != nil {
		return JobResponse{}, err
	}

	contextutil.GetLogger(ctx, s.logger).Info("job cancel requested",
		zap.String("job_id", id),
		zap.String("kind", string(j.Kind)),
	)
	return mapToResponse(*j, true), nil
}

func (s *service) cancelQueued(ctx context.Context, actorID string, j *Job) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ok, err := s.repo.WithTx(tx).CancelQueued(ctx, j.ID.String())
	if err != nil || !ok {
		return false, err
	}
	if err := s.abandon.Abandon(ctx, tx, j, StatusCancelled); err != nil {
		return false, err
	}
	if err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  j.CompanyID.String(),
		ScenarioID: j.ScenarioID.String(),
		JobID:      j.ID.String(),
		ActorID:    actorID,
		Action:     audit.ActionCancel,
		Outcome:    audit.OutcomeCancelled,
		Details:    map[string]any{"kind": string(j.Kind), "status": string(StatusQueued)},
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
