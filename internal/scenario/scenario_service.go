package scenario

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/formula"
	"go-twk/internal/history"
	scenarioerrors "go-twk/internal/scenario/errors"
	"go-twk/internal/shared/contextutil"
	"go-twk/internal/shared/counter"
	"go-twk/internal/shared/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const codeCounterType = "twk_scenario"

// SnapshotApprover marks a simulation snapshot's results approved inside the
// approval transaction.
type SnapshotApprover interface {
	ApproveSnapshot(ctx context.Context, tx *sql.Tx, simulationID string) (int64, error)
}

type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateScenarioRequest) (ScenarioResponse, error)
	GetAll(ctx context.Context, companyID string, req ListScenariosRequest) ([]ScenarioResponse, response.PaginationMeta, error)
	GetByID(ctx context.Context, companyID, id string) (ScenarioResponse, error)
	Update(ctx context.Context, companyID, id string, req UpdateScenarioRequest) (ScenarioResponse, error)
	Delete(ctx context.Context, companyID, id string) error

	AddComponentRule(ctx context.Context, companyID, scenarioID string, req AddComponentRuleRequest) (ComponentRuleResponse, error)
	RemoveComponentRule(ctx context.Context, companyID, scenarioID, ruleID string) error
	AddFormulaRule(ctx context.Context, companyID, scenarioID string, req AddFormulaRuleRequest) (FormulaRuleResponse, error)
	RemoveFormulaRule(ctx context.Context, companyID, scenarioID, ruleID string) error
	ValidateFormula(ctx context.Context, req ValidateFormulaRequest) (ValidateFormulaResponse, error)

	Submit(ctx context.Context, companyID, actorID, id string) (ScenarioResponse, error)
	Approve(ctx context.Context, companyID, actorID, id string) (ScenarioResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string) (ScenarioResponse, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	counter  counter.Repository
	audit    audit.Recorder
	approver SnapshotApprover
	limits   formula.Limits
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*service)

func WithFormulaLimits(lim formula.Limits) Option {
	return func(s *service) { s.limits = lim }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(
	db *sql.DB,
	repo Repository,
	counterRepo counter.Repository,
	recorder audit.Recorder,
	approver SnapshotApprover,
	opts ...Option,
) Service {
	s := &service{
		db:       db,
		repo:     repo,
		counter:  counterRepo,
		audit:    recorder,
		approver: approver,
		limits:   formula.DefaultLimits,
		now:      time.Now,
		logger:   zap.L().Named("scenario.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateScenarioRequest) (ScenarioResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidActorID
	}
	method := Method(req.Method)
	if !method.Valid() {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidMethod
	}
	eff, err := validateEffectiveDate(req.EffectiveDate, s.now())
	if err != nil {
		return ScenarioResponse{}, err
	}
	scope, err := validateEmployeeScope(req.EmployeeIDs)
	if err != nil {
		return ScenarioResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScenarioResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code, err = counter.NextCode(ctx, s.counter.WithTx(tx), companyID, codeCounterType, "TWK")
		if err != nil {
			return ScenarioResponse{}, err
		}
	}

	sc := &Scenario{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		EffectiveDate: eff,
		Method:        method,
		Status:        StatusDraft,
		EmployeeIDs:   scope,
		CreatedBy:     actorUUID,
	}
	if err := qtx.Create(ctx, sc); err != nil {
		return ScenarioResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		return ScenarioResponse{}, err
	}

	contextutil.GetLogger(ctx, s.logger).Info("scenario created",
		zap.String("scenario_id", sc.ID.String()),
		zap.String("code", sc.Code),
		zap.String("effective_date", req.EffectiveDate),
	)
	return mapToResponse(*sc), nil
}

func (s *service) GetAll(ctx context.Context, companyID string, req ListScenariosRequest) ([]ScenarioResponse, response.PaginationMeta, error) {
	page, pageSize := response.Page(req.Page, req.PageSize)
	items, total, err := s.repo.FindAll(ctx, companyID, ListFilter{Status: req.Status, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, response.PaginationMeta{}, err
	}
	return mapToListResponse(items), response.NewPaginationMeta(total, page, pageSize), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (ScenarioResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ScenarioResponse{}, scenarioerrors.ErrScenarioNotFound
	}
	sc, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return ScenarioResponse{}, mapRepositoryError(err)
	}
	return mapToResponse(*sc), nil
}

func (s *service) Update(ctx context.Context, companyID, id string, req UpdateScenarioRequest) (ScenarioResponse, error) {
	eff, err := validateEffectiveDate(req.EffectiveDate, s.now())
	if err != nil {
		return ScenarioResponse{}, err
	}
	scope, err := validateEmployeeScope(req.EmployeeIDs)
	if err != nil {
		return ScenarioResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScenarioResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadEditable(ctx, qtx, companyID, id)
	if err != nil {
		return ScenarioResponse{}, err
	}

	method := Method(req.Method)
	if err := validateMethodRules(method, sc); err != nil {
		return ScenarioResponse{}, err
	}

	sc.Name = strings.TrimSpace(req.Name)
	sc.Description = req.Description
	sc.EffectiveDate = eff
	sc.Method = method
	sc.EmployeeIDs = scope
	if err := qtx.Update(ctx, sc); err != nil {
		return ScenarioResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		return ScenarioResponse{}, err
	}
	return mapToResponse(*sc), nil
}

func (s *service) Delete(ctx context.Context, companyID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if _, err := s.loadEditable(ctx, qtx, companyID, id); err != nil {
		return err
	}
	if err := qtx.Delete(ctx, companyID, id); err != nil {
		return mapRepositoryError(err)
	}
	return tx.Commit()
}

func (s *service) AddComponentRule(ctx context.Context, companyID, scenarioID string, req AddComponentRuleRequest) (ComponentRuleResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ComponentRuleResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadEditable(ctx, qtx, companyID, scenarioID)
	if err != nil {
		return ComponentRuleResponse{}, err
	}
	if err := validateComponentRule(sc.Method, req); err != nil {
		return ComponentRuleResponse{}, err
	}

	order := req.ExecutionOrder
	if order <= 0 {
		order = nextComponentOrder(sc)
	}
	filter := toFilter(req.Filter)
	filter.EmployeeIDs, _ = validateEmployeeScope(filter.EmployeeIDs)

	rule := &ComponentRule{
		ID:             uuid.New(),
		ScenarioID:     sc.ID,
		ComponentCode:  history.NormalizeComponentCode(req.ComponentCode),
		ChangeType:     ChangeType(req.ChangeType),
		ChangeValue:    req.ChangeValue,
		Filter:         filter,
		Prorate:        req.Prorate,
		ExecutionOrder: order,
	}
	if err := qtx.CreateComponentRule(ctx, rule); err != nil {
		return ComponentRuleResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		return ComponentRuleResponse{}, err
	}
	return mapComponentRule(*rule), nil
}

func (s *service) RemoveComponentRule(ctx context.Context, companyID, scenarioID, ruleID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadEditable(ctx, qtx, companyID, scenarioID)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(ruleID); err != nil {
		return scenarioerrors.ErrRuleNotFound
	}
	n, err := qtx.DeleteComponentRule(ctx, sc.ID.String(), ruleID)
	if err != nil {
		return err
	}
	if n == 0 {
		return scenarioerrors.ErrRuleNotFound
	}
	return tx.Commit()
}

func (s *service) AddFormulaRule(ctx context.Context, companyID, scenarioID string, req AddFormulaRuleRequest) (FormulaRuleResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return FormulaRuleResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadEditable(ctx, qtx, companyID, scenarioID)
	if err != nil {
		return FormulaRuleResponse{}, err
	}

	order := req.ExecutionOrder
	if order <= 0 {
		order = nextFormulaOrder(sc)
	}
	if err := validateFormulaRule(ctx, sc, req, order, s.limits); err != nil {
		return FormulaRuleResponse{}, err
	}

	mode := ResultMode(req.ResultMode)
	if mode == "" {
		mode = ResultDelta
	}
	affected := make([]string, 0, len(req.AffectedComponents))
	for _, code := range req.AffectedComponents {
		affected = append(affected, history.NormalizeComponentCode(code))
	}
	filter := toFilter(req.Filter)
	filter.EmployeeIDs, _ = validateEmployeeScope(filter.EmployeeIDs)

	rule := &FormulaRule{
		ID:                    uuid.New(),
		ScenarioID:            sc.ID,
		Code:                  req.Code,
		Expression:            req.Expression,
		AffectedComponents:    affected,
		ExecutionOrder:        order,
		ResultMode:            mode,
		DependsOnPriorPeriods: req.DependsOnPriorPeriods,
		Filter:                filter,
		Prorate:               req.Prorate,
		Validated:             true,
	}
	if err := qtx.CreateFormulaRule(ctx, rule); err != nil {
		return FormulaRuleResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		return FormulaRuleResponse{}, err
	}
	return mapFormulaRule(*rule), nil
}

func (s *service) RemoveFormulaRule(ctx context.Context, companyID, scenarioID, ruleID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadEditable(ctx, qtx, companyID, scenarioID)
	if err != nil {
		return err
	}

	var target *FormulaRule
	for i := range sc.FormulaRules {
		if sc.FormulaRules[i].ID.String() == ruleID {
			target = &sc.FormulaRules[i]
			break
		}
	}
	if target == nil {
		return scenarioerrors.ErrRuleNotFound
	}
	if users := referencedBy(sc, target.Code); len(users) > 0 {
		return scenarioerrors.ErrRuleInUse.WithDetails(map[string]any{"referenced_by": users})
	}

	if _, err := qtx.DeleteFormulaRule(ctx, sc.ID.String(), ruleID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *service) ValidateFormula(ctx context.Context, req ValidateFormulaRequest) (ValidateFormulaResponse, error) {
	prog, err := formula.Validate(ctx, req.Expression, s.limits)
	if err != nil {
		return ValidateFormulaResponse{}, err
	}
	sample, err := prog.Eval(ctx, formula.SampleEnv(prog), s.limits)
	if err != nil {
		return ValidateFormulaResponse{}, err
	}
	return ValidateFormulaResponse{
		Valid:            true,
		Identifiers:      prog.Identifiers(),
		RuleRefs:         prog.RuleRefs(),
		UsesPriorPeriods: prog.UsesPriorPeriods(),
		SampleResult:     sample,
	}, nil
}

func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (ScenarioResponse, error) {
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScenarioResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadUnlocked(ctx, qtx, companyID, id)
	if err != nil {
		return ScenarioResponse{}, err
	}
	if sc.Status != StatusSimulated {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidTransition.WithDetails(map[string]string{"from": string(sc.Status), "action": "submit"})
	}
	if sc.LatestSimulationID == nil {
		return ScenarioResponse{}, scenarioerrors.ErrNoSimulation
	}
	if sc.SubmittedAt != nil {
		return ScenarioResponse{}, scenarioerrors.ErrAlreadySubmitted
	}
	if !sc.HasUsableRules() {
		return ScenarioResponse{}, scenarioerrors.ErrNoUsableRules
	}

	now := s.now().UTC()
	sc.SubmittedAt = &now
	sc.SubmittedBy = &actorUUID
	if err := qtx.Update(ctx, sc); err != nil {
		return ScenarioResponse{}, mapRepositoryError(err)
	}

	if err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  companyID,
		ScenarioID: sc.ID.String(),
		ActorID:    actorID,
		Action:     audit.ActionSubmit,
		Outcome:    audit.OutcomeSucceeded,
		Details:    map[string]any{"simulation_id": sc.LatestSimulationID.String()},
	}); err != nil {
		return ScenarioResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return ScenarioResponse{}, err
	}
	return mapToResponse(*sc), nil
}

func (s *service) Approve(ctx context.Context, companyID, actorID, id string) (ScenarioResponse, error) {
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScenarioResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadUnlocked(ctx, qtx, companyID, id)
	if err != nil {
		return ScenarioResponse{}, err
	}
	if sc.Status != StatusSimulated || !sc.Status.CanTransitionTo(StatusApproved) {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidTransition.WithDetails(map[string]string{"from": string(sc.Status), "to": string(StatusApproved)})
	}
	if sc.LatestSimulationID == nil {
		return ScenarioResponse{}, scenarioerrors.ErrNoSimulation
	}
	if sc.SubmittedAt == nil {
		return ScenarioResponse{}, scenarioerrors.ErrNotSubmitted
	}

	approved, err := s.approver.ApproveSnapshot(ctx, tx, sc.LatestSimulationID.String())
	if err != nil {
		return ScenarioResponse{}, err
	}

	now := s.now().UTC()
	snapshot := *sc.LatestSimulationID
	sc.Status = StatusApproved
	sc.ApprovedSimulationID = &snapshot
	sc.ApprovedAt = &now
	sc.ApprovedBy = &actorUUID
	if err := qtx.Update(ctx, sc); err != nil {
		return ScenarioResponse{}, mapRepositoryError(err)
	}

	if err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  companyID,
		ScenarioID: sc.ID.String(),
		ActorID:    actorID,
		Action:     audit.ActionApprove,
		Outcome:    audit.OutcomeSucceeded,
		Details: map[string]any{
			"simulation_id":    snapshot.String(),
			"approved_results": approved,
		},
	}); err != nil {
		return ScenarioResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return ScenarioResponse{}, err
	}

	contextutil.GetLogger(ctx, s.logger).Info("scenario approved",
		zap.String("scenario_id", sc.ID.String()),
		zap.String("simulation_id", snapshot.String()),
		zap.Int64("results", approved),
	)
	return mapToResponse(*sc), nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string) (ScenarioResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScenarioResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	sc, err := s.loadUnlocked(ctx, qtx, companyID, id)
	if err != nil {
		return ScenarioResponse{}, err
	}
	if !sc.Status.CanTransitionTo(StatusCancelled) {
		return ScenarioResponse{}, scenarioerrors.ErrInvalidTransition.WithDetails(map[string]string{"from": string(sc.Status), "to": string(StatusCancelled)})
	}

	from := sc.Status
	sc.Status = StatusCancelled
	if err := qtx.Update(ctx, sc); err != nil {
		return ScenarioResponse{}, mapRepositoryError(err)
	}

	if err := s.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  companyID,
		ScenarioID: sc.ID.String(),
		ActorID:    actorID,
		Action:     audit.ActionCancel,
		Outcome:    audit.OutcomeSucceeded,
		Details:    map[string]any{"from_status": string(from)},
	}); err != nil {
		return ScenarioResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return ScenarioResponse{}, err
	}
	return mapToResponse(*sc), nil
}

func (s *service) loadUnlocked(ctx context.Context, qtx Repository, companyID, id string) (*Scenario, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, scenarioerrors.ErrScenarioNotFound
	}
	sc, err := qtx.FindByIDForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if sc.Locked() {
		return nil, scenarioerrors.ErrScenarioLocked.WithDetails(map[string]string{"active_job_id": sc.ActiveJobID.String()})
	}
	return sc, nil
}

// loadEditable returns the scenario when its definition may still change.
func (s *service) loadEditable(ctx context.Context, qtx Repository, companyID, id string) (*Scenario, error) {
	sc, err := s.loadUnlocked(ctx, qtx, companyID, id)
	if err != nil {
		return nil, err
	}
	if sc.Status != StatusDraft {
		return nil, scenarioerrors.ErrNotDraft
	}
	return sc, nil
}
