package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-twk/internal/shared/contextutil"
	"go-twk/internal/shared/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder appends audit records. tx may be nil when the action has no
// surrounding transaction.
type Recorder interface {
	Record(ctx context.Context, tx *sql.Tx, e Entry) error
}

type Service interface {
	Recorder
	List(ctx context.Context, companyID, scenarioID string, page, pageSize int) ([]RecordResponse, response.PaginationMeta, error)
}

type service struct {
	repo   Repository
	mirror *Mirror
	now    func() time.Time
}

func NewService(repo Repository, mirror *Mirror) Service {
	if mirror == nil {
		mirror = NewMirror(nil)
	}
	return &service{repo: repo, mirror: mirror, now: time.Now}
}

func (s *service) Record(ctx context.Context, tx *sql.Tx, e Entry) error {
	companyID, err := uuid.Parse(e.CompanyID)
	if err != nil {
		return fmt.Errorf("audit: invalid company id %q: %w", e.CompanyID, err)
	}
	scenarioID, err := uuid.Parse(e.ScenarioID)
	if err != nil {
		return fmt.Errorf("audit: invalid scenario id %q: %w", e.ScenarioID, err)
	}

	rec := &ExecutionRecord{
		ID:            uuid.New(),
		CompanyID:     companyID,
		ScenarioID:    scenarioID,
		ActorID:       e.ActorID,
		Action:        e.Action,
		Outcome:       e.Outcome,
		EmployeeCount: e.EmployeeCount,
		PeriodCount:   e.PeriodCount,
		Total:         e.Total.Round(2),
		ErrorCount:    e.ErrorCount,
		WarningCount:  e.WarningCount,
		Details:       e.Details,
		RequestID:     contextutil.GetRequestID(ctx),
		CreatedAt:     s.now().UTC(),
	}
	if e.JobID != "" {
		if jobID, err := uuid.Parse(e.JobID); err == nil {
			rec.JobID = &jobID
		}
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	if err := repo.Create(ctx, rec); err != nil {
		contextutil.GetLogger(ctx, zap.L()).Error("write audit record failed",
			zap.String("scenario_id", e.ScenarioID),
			zap.String("action", string(e.Action)),
			zap.Error(err),
		)
		return err
	}

	s.mirror.Record(ctx, *rec)
	return nil
}

func (s *service) List(ctx context.Context, companyID, scenarioID string, page, pageSize int) ([]RecordResponse, response.PaginationMeta, error) {
	page, pageSize = response.Page(page, pageSize)
	records, total, err := s.repo.ListByScenario(ctx, companyID, scenarioID, page, pageSize)
	if err != nil {
		return nil, response.PaginationMeta{}, err
	}

	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, mapToResponse(r))
	}
	return out, response.NewPaginationMeta(total, page, pageSize), nil
}
