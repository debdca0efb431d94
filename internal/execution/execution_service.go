package execution

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"go-twk/internal/audit"
	executionerrors "go-twk/internal/execution/errors"
	"go-twk/internal/job"
	"go-twk/internal/scenario"
	scenarioerrors "go-twk/internal/scenario/errors"
	"go-twk/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Trigger(ctx context.Context, companyID, actorID, scenarioID string, req ExecuteRequest) (ExecuteResponse, error)
}

type service struct {
	db         *sql.DB
	scenarios  scenario.Repository
	jobs       job.Repository
	dispatcher job.Dispatcher
	audit      audit.Recorder
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	scenarios scenario.Repository,
	jobs job.Repository,
	dispatcher job.Dispatcher,
	recorder audit.Recorder,
) Service {
	return &service{
		db:         db,
		scenarios:  scenarios,
		jobs:       jobs,
		dispatcher: dispatcher,
		audit:      recorder,
		logger:     zap.L().Named("execution.service"),
	}
}

// Trigger queues an execute job for the approved snapshot. An executed
// scenario may be triggered again to retry its unpaid results.
func (s *service) Trigger(ctx context.Context, companyID, actorID, scenarioID string, req ExecuteRequest) (ExecuteResponse, error) {
	if _, err := uuid.Parse(scenarioID); err != nil {
		return ExecuteResponse{}, scenarioerrors.ErrScenarioNotFound
	}
	runID := strings.TrimSpace(req.PayrollRunID)
	if len(runID) > 64 {
		return ExecuteResponse{}, executionerrors.ErrInvalidPayrollRunID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ExecuteResponse{}, err
	}
	defer tx.Rollback()

	sqtx := s.scenarios.WithTx(tx)
	sc, err := sqtx.FindByIDForUpdate(ctx, companyID, scenarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExecuteResponse{}, scenarioerrors.ErrScenarioNotFound
		}
		return ExecuteResponse{}, err
	}
	if sc.Locked() {
		return ExecuteResponse{}, scenarioerrors.ErrScenarioLocked.WithDetails(map[string]string{"active_job_id": sc.ActiveJobID.String()})
	}
	if !slices.Contains(scenario.ExecutableStatuses, sc.Status) {
		return ExecuteResponse{}, executionerrors.ErrNotExecutable.WithDetails(map[string]string{"status": string(sc.Status)})
	}
	if sc.ApprovedSimulationID == nil {
		return ExecuteResponse{}, executionerrors.ErrNoApprovedSnapshot
	}

	j := &job.Job{
		ID:           uuid.New(),
		CompanyID:    sc.CompanyID,
		ScenarioID:   sc.ID,
		SimulationID: sc.ApprovedSimulationID,
		Kind:         job.KindExecute,
		Status:       job.StatusQueued,
		RequestedBy:  actorID,
	}
	if runID != "" {
		j.PayrollRunID = &runID
	}

	ok, err := sqtx.AcquireLock(ctx, companyID, scenarioID, j.ID.String(), scenario.ExecutableStatuses)
	if err != nil {
		return ExecuteResponse{}, err
	}
	if !ok {
		return ExecuteResponse{}, scenarioerrors.ErrScenarioLocked
	}
	if err := s.jobs.WithTx(tx).Create(ctx, j); err != nil {
		return ExecuteResponse{}, err
	}

	details := map[string]any{
		"simulation_id": sc.ApprovedSimulationID.String(),
		"from_status":   string(sc.Status),
	}
	if runID != "" {
		details["payroll_run_id"] = runID
	}
	if err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  companyID,
		ScenarioID: scenarioID,
		JobID:      j.ID.String(),
		ActorID:    actorID,
		Action:     audit.ActionExecute,
		Outcome:    audit.OutcomeRequested,
		Details:    details,
	}); err != nil {
		return ExecuteResponse{}, err
	}
	if err := s.dispatcher.Enqueue(ctx, tx, j); err != nil {
		return ExecuteResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return ExecuteResponse{}, err
	}

	s.dispatcher.Start(ctx, j)
	contextutil.GetLogger(ctx, s.logger).Info("execution queued",
		zap.String("scenario_id", scenarioID),
		zap.String("job_id", j.ID.String()),
	)
	return ExecuteResponse{
		JobID:        j.ID.String(),
		ScenarioID:   scenarioID,
		SimulationID: sc.ApprovedSimulationID.String(),
		PayrollRunID: j.PayrollRunID,
		Status:       string(job.StatusQueued),
	}, nil
}
