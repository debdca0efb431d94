package scenario_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go-twk/internal/audit"
	formulaerrors "go-twk/internal/formula/errors"
	"go-twk/internal/scenario"
	scenarioerrors "go-twk/internal/scenario/errors"
	scenarioMock "go-twk/internal/scenario/mock"
	"go-twk/internal/shared/counter"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeCounter struct {
	next int64
}

func (f *fakeCounter) WithTx(*sql.Tx) counter.Repository { return f }

func (f *fakeCounter) GetNextValue(context.Context, string, string) (int64, error) {
	f.next++
	return f.next, nil
}

type fakeRecorder struct {
	entries []audit.Entry
}

func (f *fakeRecorder) Record(_ context.Context, _ *sql.Tx, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeApprover struct {
	simulationID string
	count        int64
	err          error
}

func (f *fakeApprover) ApproveSnapshot(_ context.Context, _ *sql.Tx, simulationID string) (int64, error) {
	f.simulationID = simulationID
	return f.count, f.err
}

type serviceDeps struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	repo     *scenarioMock.MockRepository
	counter  *fakeCounter
	recorder *fakeRecorder
	approver *fakeApprover
	service  scenario.Service
}

var fixedNow = time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

func setupServiceTest(t *testing.T) *serviceDeps {
	t.Helper()
	ctrl := gomock.NewController(t)
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	deps := &serviceDeps{
		db:       db,
		sqlMock:  sqlMock,
		repo:     scenarioMock.NewMockRepository(ctrl),
		counter:  &fakeCounter{next: 6},
		recorder: &fakeRecorder{},
		approver: &fakeApprover{count: 12},
	}
	deps.repo.EXPECT().WithTx(gomock.Any()).Return(deps.repo).AnyTimes()
	deps.service = scenario.NewService(db, deps.repo, deps.counter, deps.recorder, deps.approver,
		scenario.WithClock(func() time.Time { return fixedNow }))
	return deps
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func draftScenario(companyID uuid.UUID, method scenario.Method) *scenario.Scenario {
	return &scenario.Scenario{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Code:          "TWK-000001",
		Name:          "Mid-year adjustment",
		EffectiveDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Method:        method,
		Status:        scenario.StatusDraft,
	}
}

func TestScenarioService_Create(t *testing.T) {
	companyID := uuid.New().String()
	actorID := uuid.New().String()

	t.Run("generates a code when none is given", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		var created *scenario.Scenario
		deps.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s *scenario.Scenario) error {
			created = s
			return nil
		})

		resp, err := deps.service.Create(context.Background(), companyID, actorID, scenario.CreateScenarioRequest{
			Name:          "Raise",
			EffectiveDate: "2025-01-01",
			Method:        "component",
			EmployeeIDs:   []string{"6F9619FF-8B86-D011-B42D-00C04FC964FF", "6f9619ff-8b86-d011-b42d-00c04fc964ff"},
		})
		require.NoError(t, err)
		assert.Equal(t, "TWK-000007", resp.Code)
		assert.Equal(t, "draft", resp.Status)
		assert.Equal(t, []string{"6f9619ff-8b86-d011-b42d-00c04fc964ff"}, created.EmployeeIDs)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("rejects a future effective date", func(t *testing.T) {
		deps := setupServiceTest(t)
		_, err := deps.service.Create(context.Background(), companyID, actorID, scenario.CreateScenarioRequest{
			Name:          "Raise",
			EffectiveDate: "2025-07-16",
			Method:        "component",
		})
		assert.ErrorIs(t, err, scenarioerrors.ErrEffectiveDateInFuture)
	})

	t.Run("rejects an unknown method", func(t *testing.T) {
		deps := setupServiceTest(t)
		_, err := deps.service.Create(context.Background(), companyID, actorID, scenario.CreateScenarioRequest{
			Name:          "Raise",
			EffectiveDate: "2025-01-01",
			Method:        "magic",
		})
		assert.ErrorIs(t, err, scenarioerrors.ErrInvalidMethod)
	})

	t.Run("maps repository failure", func(t *testing.T) {
		deps := setupServiceTest(t)
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

		_, err := deps.service.Create(context.Background(), companyID, actorID, scenario.CreateScenarioRequest{
			Code:          "Q3",
			Name:          "Raise",
			EffectiveDate: "2025-01-01",
			Method:        "hybrid",
		})
		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestScenarioService_AddComponentRule(t *testing.T) {
	companyID := uuid.New()

	t.Run("appends after existing rules", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		sc.ComponentRules = []scenario.ComponentRule{{ID: uuid.New(), ExecutionOrder: 4}}
		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), companyID.String(), sc.ID.String()).Return(sc, nil)
		deps.repo.EXPECT().CreateComponentRule(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := deps.service.AddComponentRule(context.Background(), companyID.String(), sc.ID.String(), scenario.AddComponentRuleRequest{
			ComponentCode: " transport-allowance",
			ChangeType:    "percentage",
			ChangeValue:   decimal.NewFromInt(5),
		})
		require.NoError(t, err)
		assert.Equal(t, "TRANSPORT_ALLOWANCE", resp.ComponentCode)
		assert.Equal(t, 5, resp.ExecutionOrder)
	})

	t.Run("refuses a scenario that left draft", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		sc.Status = scenario.StatusSimulated
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.AddComponentRule(context.Background(), companyID.String(), sc.ID.String(), scenario.AddComponentRuleRequest{
			ComponentCode: "BASE",
			ChangeType:    "fixed_amount",
			ChangeValue:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, scenarioerrors.ErrNotDraft)
	})

	t.Run("refuses a locked scenario", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		jobID := uuid.New()
		sc.ActiveJobID = &jobID
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.AddComponentRule(context.Background(), companyID.String(), sc.ID.String(), scenario.AddComponentRuleRequest{
			ComponentCode: "BASE",
			ChangeType:    "fixed_amount",
			ChangeValue:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, scenarioerrors.ErrScenarioLocked)
	})

	t.Run("rejects percentage below minus one hundred", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.AddComponentRule(context.Background(), companyID.String(), sc.ID.String(), scenario.AddComponentRuleRequest{
			ComponentCode: "BASE",
			ChangeType:    "percentage",
			ChangeValue:   decimal.NewFromInt(-101),
		})
		assert.ErrorIs(t, err, scenarioerrors.ErrInvalidChangeValue)
	})

	t.Run("formula method takes no component rules", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodFormula)
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.AddComponentRule(context.Background(), companyID.String(), sc.ID.String(), scenario.AddComponentRuleRequest{
			ComponentCode: "BASE",
			ChangeType:    "fixed_amount",
			ChangeValue:   decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, scenarioerrors.ErrMethodMismatch)
	})
}

func TestScenarioService_AddFormulaRule(t *testing.T) {
	companyID := uuid.New()

	tests := []struct {
		name     string
		existing []scenario.FormulaRule
		req      scenario.AddFormulaRuleRequest
		wantErr  error
	}{
		{
			name: "valid tiered bonus",
			req: scenario.AddFormulaRuleRequest{
				Code:               "TIER_BONUS",
				Expression:         "base < 3000 ? base * 0.10 : base * 0.05",
				AffectedComponents: []string{"base"},
			},
		},
		{
			name: "prior period reference must be declared",
			req: scenario.AddFormulaRuleRequest{
				Code:               "CATCH_UP",
				Expression:         "cumulative_delta * 0.1",
				AffectedComponents: []string{"BASE"},
			},
			wantErr: scenarioerrors.ErrPriorPeriodUndeclared,
		},
		{
			name: "reference to a later formula",
			existing: []scenario.FormulaRule{
				{ID: uuid.New(), Code: "LATER", Expression: "base", ExecutionOrder: 5, Validated: true},
			},
			req: scenario.AddFormulaRuleRequest{
				Code:               "EARLY",
				Expression:         "rule.LATER * 2",
				AffectedComponents: []string{"BASE"},
				ExecutionOrder:     1,
			},
			wantErr: scenarioerrors.ErrRuleReference,
		},
		{
			name: "duplicate code",
			existing: []scenario.FormulaRule{
				{ID: uuid.New(), Code: "BONUS", Expression: "base", ExecutionOrder: 1, Validated: true},
			},
			req: scenario.AddFormulaRuleRequest{
				Code:               "bonus",
				Expression:         "base",
				AffectedComponents: []string{"BASE"},
			},
			wantErr: scenarioerrors.ErrDuplicateRuleCode,
		},
		{
			name: "variable outside the whitelist",
			req: scenario.AddFormulaRuleRequest{
				Code:               "BAD",
				Expression:         "salary * 2",
				AffectedComponents: []string{"BASE"},
			},
			wantErr: formulaerrors.ErrUnknownIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := setupServiceTest(t)
			sc := draftScenario(companyID, scenario.MethodHybrid)
			sc.FormulaRules = tt.existing
			expectTx(t, deps.sqlMock, tt.wantErr == nil)
			deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)
			if tt.wantErr == nil {
				deps.repo.EXPECT().CreateFormulaRule(gomock.Any(), gomock.Any()).Return(nil)
			}

			resp, err := deps.service.AddFormulaRule(context.Background(), companyID.String(), sc.ID.String(), tt.req)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.True(t, resp.Validated)
				assert.Equal(t, "delta", resp.ResultMode)
				assert.Equal(t, []string{"BASE"}, resp.AffectedComponents)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestScenarioService_RemoveFormulaRule(t *testing.T) {
	companyID := uuid.New()
	base := scenario.FormulaRule{ID: uuid.New(), Code: "BONUS", Expression: "base * 0.1", ExecutionOrder: 1, Validated: true}
	user := scenario.FormulaRule{ID: uuid.New(), Code: "TOPUP", Expression: "rule.BONUS / 2", ExecutionOrder: 2, Validated: true}

	t.Run("blocked while referenced", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodFormula)
		sc.FormulaRules = []scenario.FormulaRule{base, user}
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		err := deps.service.RemoveFormulaRule(context.Background(), companyID.String(), sc.ID.String(), base.ID.String())
		assert.ErrorIs(t, err, scenarioerrors.ErrRuleInUse)
	})

	t.Run("removes an unreferenced rule", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodFormula)
		sc.FormulaRules = []scenario.FormulaRule{base, user}
		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)
		deps.repo.EXPECT().DeleteFormulaRule(gomock.Any(), sc.ID.String(), user.ID.String()).Return(int64(1), nil)

		err := deps.service.RemoveFormulaRule(context.Background(), companyID.String(), sc.ID.String(), user.ID.String())
		assert.NoError(t, err)
	})

	t.Run("unknown rule", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodFormula)
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		err := deps.service.RemoveFormulaRule(context.Background(), companyID.String(), sc.ID.String(), uuid.NewString())
		assert.ErrorIs(t, err, scenarioerrors.ErrRuleNotFound)
	})
}

func simulatedScenario(companyID uuid.UUID) *scenario.Scenario {
	sc := draftScenario(companyID, scenario.MethodComponent)
	simID := uuid.New()
	sc.Status = scenario.StatusSimulated
	sc.LatestSimulationID = &simID
	sc.ComponentRules = []scenario.ComponentRule{{
		ID:            uuid.New(),
		ComponentCode: "BASE",
		ChangeType:    scenario.ChangePercentage,
		ChangeValue:   decimal.NewFromInt(5),
	}}
	return sc
}

func TestScenarioService_SubmitApprove(t *testing.T) {
	companyID := uuid.New()
	actorID := uuid.NewString()

	t.Run("submit then approve", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := simulatedScenario(companyID)
		ctx := context.Background()

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)
		deps.repo.EXPECT().Update(gomock.Any(), sc).Return(nil)

		resp, err := deps.service.Submit(ctx, companyID.String(), actorID, sc.ID.String())
		require.NoError(t, err)
		require.NotNil(t, resp.SubmittedAt)
		assert.Equal(t, "simulated", resp.Status)

		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)
		deps.repo.EXPECT().Update(gomock.Any(), sc).Return(nil)

		resp, err = deps.service.Approve(ctx, companyID.String(), actorID, sc.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "approved", resp.Status)
		require.NotNil(t, resp.ApprovedSimulationID)
		assert.Equal(t, sc.LatestSimulationID.String(), *resp.ApprovedSimulationID)
		assert.Equal(t, sc.LatestSimulationID.String(), deps.approver.simulationID)

		require.Len(t, deps.recorder.entries, 2)
		assert.Equal(t, audit.ActionSubmit, deps.recorder.entries[0].Action)
		assert.Equal(t, audit.ActionApprove, deps.recorder.entries[1].Action)
		assert.Equal(t, int64(12), deps.recorder.entries[1].Details["approved_results"])
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("approve requires submission", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := simulatedScenario(companyID)
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.Approve(context.Background(), companyID.String(), actorID, sc.ID.String())
		assert.ErrorIs(t, err, scenarioerrors.ErrNotSubmitted)
	})

	t.Run("submit requires a simulation", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.Submit(context.Background(), companyID.String(), actorID, sc.ID.String())
		assert.ErrorIs(t, err, scenarioerrors.ErrInvalidTransition)
	})

	t.Run("approver failure rolls back", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := simulatedScenario(companyID)
		submitted := fixedNow
		sc.SubmittedAt = &submitted
		deps.approver.err = errors.New("boom")
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.Approve(context.Background(), companyID.String(), actorID, sc.ID.String())
		assert.Error(t, err)
		assert.Empty(t, deps.recorder.entries)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestScenarioService_Cancel(t *testing.T) {
	companyID := uuid.New()
	actorID := uuid.NewString()

	t.Run("draft can be cancelled", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		expectTx(t, deps.sqlMock, true)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)
		deps.repo.EXPECT().Update(gomock.Any(), sc).Return(nil)

		resp, err := deps.service.Cancel(context.Background(), companyID.String(), actorID, sc.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		require.Len(t, deps.recorder.entries, 1)
		assert.Equal(t, "draft", deps.recorder.entries[0].Details["from_status"])
	})

	t.Run("executed is terminal", func(t *testing.T) {
		deps := setupServiceTest(t)
		sc := draftScenario(companyID, scenario.MethodComponent)
		sc.Status = scenario.StatusExecuted
		expectTx(t, deps.sqlMock, false)
		deps.repo.EXPECT().FindByIDForUpdate(gomock.Any(), gomock.Any(), gomock.Any()).Return(sc, nil)

		_, err := deps.service.Cancel(context.Background(), companyID.String(), actorID, sc.ID.String())
		assert.ErrorIs(t, err, scenarioerrors.ErrInvalidTransition)
	})
}

func TestScenarioService_ValidateFormula(t *testing.T) {
	deps := setupServiceTest(t)

	resp, err := deps.service.ValidateFormula(context.Background(), scenario.ValidateFormulaRequest{
		Expression: "max(base * 0.05, 150) + components.ALLOWANCE * 0",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "250", resp.SampleResult.String())
	assert.Contains(t, resp.Identifiers, "components.ALLOWANCE")

	_, err = deps.service.ValidateFormula(context.Background(), scenario.ValidateFormulaRequest{Expression: "base / (hours - 160)"})
	assert.Error(t, err)
}
