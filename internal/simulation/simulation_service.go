package simulation

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/job"
	"go-twk/internal/scenario"
	scenarioerrors "go-twk/internal/scenario/errors"
	"go-twk/internal/shared/contextutil"
	"go-twk/internal/shared/response"
	simulationerrors "go-twk/internal/simulation/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Trigger(ctx context.Context, companyID, actorID, scenarioID string) (TriggerResponse, error)
	GetSummary(ctx context.Context, companyID, id string) (SummaryResponse, error)
	ListResults(ctx context.Context, companyID, id string, req ListResultsRequest) ([]ResultResponse, response.PaginationMeta, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	scenarios  scenario.Repository
	jobs       job.Repository
	dispatcher job.Dispatcher
	audit      audit.Recorder
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	scenarios scenario.Repository,
	jobs job.Repository,
	dispatcher job.Dispatcher,
	recorder audit.Recorder,
) Service {
	return &service{
		db:         db,
		repo:       repo,
		scenarios:  scenarios,
		jobs:       jobs,
		dispatcher: dispatcher,
		audit:      recorder,
		now:        time.Now,
		logger:     zap.L().Named("simulation.service"),
	}
}

// Trigger locks the scenario and queues a simulate job. The caller polls the
// job for progress.
func (s *service) Trigger(ctx context.Context, companyID, actorID, scenarioID string) (TriggerResponse, error) {
	if _, err := uuid.Parse(scenarioID); err != nil {
		return TriggerResponse{}, scenarioerrors.ErrScenarioNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TriggerResponse{}, err
	}
	defer tx.Rollback()

	sqtx := s.scenarios.WithTx(tx)
	sc, err := sqtx.FindByIDForUpdate(ctx, companyID, scenarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TriggerResponse{}, scenarioerrors.ErrScenarioNotFound
		}
		return TriggerResponse{}, err
	}
	if sc.Locked() {
		return TriggerResponse{}, scenarioerrors.ErrScenarioLocked.WithDetails(map[string]string{"active_job_id": sc.ActiveJobID.String()})
	}
	if !slices.Contains(scenario.SimulatableStatuses, sc.Status) {
		return TriggerResponse{}, simulationerrors.ErrNotSimulatable.WithDetails(map[string]string{"status": string(sc.Status)})
	}
	if len(sc.UsableRules()) == 0 {
		return TriggerResponse{}, scenarioerrors.ErrNoUsableRules
	}

	simID := uuid.New()
	j := &job.Job{
		ID:           uuid.New(),
		CompanyID:    sc.CompanyID,
		ScenarioID:   sc.ID,
		SimulationID: &simID,
		Kind:         job.KindSimulate,
		Status:       job.StatusQueued,
		RequestedBy:  actorID,
	}

	ok, err := sqtx.AcquireLock(ctx, companyID, scenarioID, j.ID.String(), scenario.SimulatableStatuses)
	if err != nil {
		return TriggerResponse{}, err
	}
	if !ok {
		return TriggerResponse{}, scenarioerrors.ErrScenarioLocked
	}

	if err := s.jobs.WithTx(tx).Create(ctx, j); err != nil {
		return TriggerResponse{}, err
	}
	if err := s.repo.WithTx(tx).CreateSimulation(ctx, &Simulation{
		ID:         simID,
		CompanyID:  sc.CompanyID,
		ScenarioID: sc.ID,
		JobID:      j.ID,
		Status:     StatusRunning,
		StartedAt:  s.now().UTC(),
	}); err != nil {
		return TriggerResponse{}, err
	}
	if err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  companyID,
		ScenarioID: scenarioID,
		JobID:      j.ID.String(),
		ActorID:    actorID,
		Action:     audit.ActionSimulate,
		Outcome:    audit.OutcomeRequested,
		Details:    map[string]any{"simulation_id": simID.String(), "from_status": string(sc.Status)},
	}); err != nil {
		return TriggerResponse{}, err
	}
	if err := s.dispatcher.Enqueue(ctx, tx, j); err != nil {
		return TriggerResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return TriggerResponse{}, err
	}

	s.dispatcher.Start(ctx, j)
	contextutil.GetLogger(ctx, s.logger).Info("simulation queued",
		zap.String("scenario_id", scenarioID),
		zap.String("job_id", j.ID.String()),
		zap.String("simulation_id", simID.String()),
	)
	return TriggerResponse{
		JobID:        j.ID.String(),
		SimulationID: simID.String(),
		ScenarioID:   scenarioID,
		Status:       string(job.StatusQueued),
	}, nil
}

func (s *service) GetSummary(ctx context.Context, companyID, id string) (SummaryResponse, error) {
	sim, err := s.find(ctx, companyID, id)
	if err != nil {
		return SummaryResponse{}, err
	}
	return mapToSummaryResponse(*sim), nil
}

func (s *service) ListResults(ctx context.Context, companyID, id string, req ListResultsRequest) ([]ResultResponse, response.PaginationMeta, error) {
	if _, err := s.find(ctx, companyID, id); err != nil {
		return nil, response.PaginationMeta{}, err
	}
	page, pageSize := response.Page(req.Page, req.PageSize)
	items, total, err := s.repo.ListResults(ctx, companyID, id, ResultFilter{
		EmployeeID: req.EmployeeID,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, response.PaginationMeta{}, err
	}
	return mapToResultListResponse(items), response.NewPaginationMeta(total, page, pageSize), nil
}

func (s *service) find(ctx context.Context, companyID, id string) (*Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, simulationerrors.ErrSimulationNotFound
	}
	sim, err := s.repo.FindSimulation(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, simulationerrors.ErrSimulationNotFound
		}
		return nil, err
	}
	return sim, nil
}
