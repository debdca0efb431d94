package simulation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/directory"
	"go-twk/internal/history"
	"go-twk/internal/job"
	"go-twk/internal/period"
	"go-twk/internal/scenario"
	scenarioMock "go-twk/internal/scenario/mock"
	"go-twk/internal/simulation"
	simulationerrors "go-twk/internal/simulation/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	companyID = uuid.MustParse("7f1c1f1e-0000-4000-8000-000000000001")
	empA      = "00000000-0000-4000-8000-00000000000a"
	empB      = "00000000-0000-4000-8000-00000000000b"
)

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func clock() time.Time { return day("2025-03-10") }

func payroll(employeeID, start, end string, baseMinor int64) history.Payroll {
	return history.Payroll{
		ID:          uuid.New(),
		CompanyID:   companyID,
		EmployeeID:  uuid.MustParse(employeeID),
		PeriodStart: day(start),
		PeriodEnd:   day(end),
		BaseSalary:  baseMinor,
		Status:      history.StatusPaid,
	}
}

// twoMonthStore has January and February paid for both employees.
func twoMonthStore() *fakeStore {
	return &fakeStore{
		boundaries: []period.Boundary{
			{Start: day("2025-01-01"), End: day("2025-01-31")},
			{Start: day("2025-02-01"), End: day("2025-02-28")},
		},
		payrolls: map[string][]history.Payroll{
			empA: {
				payroll(empA, "2025-01-01", "2025-01-31", 500000),
				payroll(empA, "2025-02-01", "2025-02-28", 500000),
			},
			empB: {
				payroll(empB, "2025-01-01", "2025-01-31", 400000),
				payroll(empB, "2025-02-01", "2025-02-28", 400000),
			},
		},
		paid: []string{empA, empB},
	}
}

func employees() *fakeDirectory {
	return &fakeDirectory{employees: []directory.Employee{
		{ID: empA, DepartmentID: "dept-ops", DepartmentName: "Operations", BaseSalary: decimal.NewFromInt(5000), HireDate: day("2020-01-01")},
		{ID: empB, DepartmentID: "dept-fin", DepartmentName: "Finance", BaseSalary: decimal.NewFromInt(4000), HireDate: day("2023-06-01")},
	}}
}

func percentRule(filter scenario.Filter) scenario.ComponentRule {
	return scenario.ComponentRule{
		ID:            uuid.New(),
		ComponentCode: history.ComponentBase,
		ChangeType:    scenario.ChangePercentage,
		ChangeValue:   decimal.NewFromInt(10),
		Filter:        filter,
		Prorate:       true,
	}
}

type runnerFixture struct {
	t         *testing.T
	sqlMock   sqlmock.Sqlmock
	scenarios *scenarioMock.MockRepository
	repo      *fakeRepo
	recorder  *fakeRecorder
	runner    *simulation.Runner
	sc        *scenario.Scenario
	job       *job.Job
}

func newRunnerFixture(t *testing.T, sc *scenario.Scenario, store *fakeStore, dir *fakeDirectory, opts ...simulation.RunnerOption) *runnerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sc.CompanyID = companyID
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	if sc.EffectiveDate.IsZero() {
		sc.EffectiveDate = day("2025-01-16")
	}
	simID := uuid.New()

	f := &runnerFixture{
		t:         t,
		sqlMock:   sqlMock,
		scenarios: scenarioMock.NewMockRepository(ctrl),
		repo:      newFakeRepo(),
		recorder:  &fakeRecorder{},
		sc:        sc,
		job: &job.Job{
			ID:           uuid.New(),
			CompanyID:    companyID,
			ScenarioID:   sc.ID,
			SimulationID: &simID,
			Kind:         job.KindSimulate,
			Status:       job.StatusRunning,
			RequestedBy:  uuid.NewString(),
		},
	}
	f.scenarios.EXPECT().WithTx(gomock.Any()).Return(f.scenarios).AnyTimes()
	f.scenarios.EXPECT().FindByID(gomock.Any(), companyID.String(), sc.ID.String()).Return(sc, nil).AnyTimes()
	opts = append([]simulation.RunnerOption{simulation.WithWorkers(2), simulation.WithClock(clock)}, opts...)
	f.runner = simulation.NewRunner(db, f.scenarios, f.repo, store, dir, f.recorder, opts...)
	return f
}

func (f *runnerFixture) expectComplete() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
	f.scenarios.EXPECT().
		CompleteSimulation(gomock.Any(), f.sc.ID.String(), f.job.ID.String(), f.job.SimulationID.String()).
		Return(true, nil)
}

func (f *runnerFixture) expectRelease() {
	f.scenarios.EXPECT().ReleaseLock(gomock.Any(), f.sc.ID.String(), f.job.ID.String()).Return(nil)
}

func (f *runnerFixture) run() (*job.Control, error) {
	ctl := job.NewControl(f.job.ID.String())
	return ctl, f.runner.Run(context.Background(), f.job, ctl)
}

func (f *runnerFixture) summary() simulation.Summary {
	return f.repo.summary[f.job.SimulationID.String()]
}

func TestRunner_ComponentRules(t *testing.T) {
	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{})},
	}
	f := newRunnerFixture(t, sc, twoMonthStore(), employees())
	f.expectComplete()

	ctl, err := f.run()
	require.NoError(t, err)
	assert.Equal(t, 4, ctl.Total())
	assert.Equal(t, 4, ctl.Processed())

	results := f.repo.sortedResults()
	require.Len(t, results, 4)

	want := []string{"250", "500", "200", "400"}
	total := decimal.Zero
	for i, r := range results {
		assert.Equal(t, want[i], r.Delta.String(), "result %d", i)
		assert.True(t, r.Recomputed.Equal(r.Original.Add(r.Delta)))
		assert.Equal(t, simulation.ResultCalculated, r.Status)
		total = total.Add(r.Delta)
	}
	assert.Equal(t, "0.5", results[0].Proration.String())
	assert.Equal(t, 1, results[0].PeriodIndex)

	summary := f.summary()
	assert.Equal(t, simulation.StatusCompleted, f.repo.finished[f.job.SimulationID.String()])
	assert.True(t, summary.GrandTotal.Equal(total))
	assert.Equal(t, "1350", summary.GrandTotal.String())
	assert.Equal(t, 2, summary.EmployeeCount)
	assert.Equal(t, 2, summary.PeriodCount)
	assert.Equal(t, "750", summary.ByDepartment["dept-ops"].String())
	assert.Equal(t, "600", summary.ByDepartment["dept-fin"].String())
	assert.Equal(t, "450", summary.ByPeriod["2025-01-01/2025-01-31"].String())
	assert.Empty(t, summary.Warnings)
	assert.Equal(t, []string{f.job.SimulationID.String()}, f.repo.voided)

	entry := f.recorder.last()
	assert.Equal(t, audit.ActionSimulate, entry.Action)
	assert.Equal(t, audit.OutcomeSucceeded, entry.Outcome)
	assert.Equal(t, 2, entry.EmployeeCount)
	assert.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestRunner_Deterministic(t *testing.T) {
	rule := percentRule(scenario.Filter{})
	deltas := func() []string {
		sc := &scenario.Scenario{
			ID:             uuid.MustParse("11111111-1111-4111-8111-111111111111"),
			Method:         scenario.MethodHybrid,
			ComponentRules: []scenario.ComponentRule{rule},
			FormulaRules: []scenario.FormulaRule{{
				ID:                 uuid.New(),
				Code:               "SENIORITY",
				Expression:         "tenure_years >= 2 ? base * 0.013 : 0",
				AffectedComponents: []string{history.ComponentBase},
				ResultMode:         scenario.ResultDelta,
				Validated:          true,
			}},
		}
		f := newRunnerFixture(t, sc, twoMonthStore(), employees())
		f.expectComplete()
		_, err := f.run()
		require.NoError(t, err)

		var out []string
		for _, r := range f.repo.sortedResults() {
			out = append(out, r.EmployeeID.String()+"|"+r.PeriodStart.Format(time.DateOnly)+"|"+r.Delta.String())
		}
		return append(out, f.summary().GrandTotal.String())
	}

	first := deltas()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, deltas())
	}
	// A has 5 years tenure: 250 + 65 in January, 500 + 65 in February.
	assert.Contains(t, first, empA+"|2025-01-01|315")
	assert.Contains(t, first, empB+"|2025-02-01|400")
}

func TestRunner_ChainedFormula(t *testing.T) {
	sc := &scenario.Scenario{
		Method:      scenario.MethodFormula,
		EmployeeIDs: []string{empA},
		FormulaRules: []scenario.FormulaRule{{
			ID:                    uuid.New(),
			Code:                  "STEP",
			Expression:            "prior_delta + 100",
			AffectedComponents:    []string{history.ComponentBase},
			ResultMode:            scenario.ResultDelta,
			DependsOnPriorPeriods: true,
			Validated:             true,
		}},
	}
	f := newRunnerFixture(t, sc, twoMonthStore(), employees())
	f.expectComplete()

	_, err := f.run()
	require.NoError(t, err)

	results := f.repo.sortedResults()
	require.Len(t, results, 2)
	assert.Equal(t, "100", results[0].Delta.String())
	assert.Equal(t, "200", results[1].Delta.String())
	assert.Equal(t, "300", f.summary().GrandTotal.String())
}

func TestRunner_NewValueFormula(t *testing.T) {
	sc := &scenario.Scenario{
		Method:      scenario.MethodFormula,
		EmployeeIDs: []string{empB},
		FormulaRules: []scenario.FormulaRule{{
			ID:                 uuid.New(),
			Code:               "FLOOR",
			Expression:         "max(base, 4500)",
			AffectedComponents: []string{history.ComponentBase},
			ResultMode:         scenario.ResultNewValue,
			Prorate:            true,
			Validated:          true,
		}},
	}
	f := newRunnerFixture(t, sc, twoMonthStore(), employees())
	f.expectComplete()

	_, err := f.run()
	require.NoError(t, err)

	results := f.repo.sortedResults()
	require.Len(t, results, 2)
	assert.Equal(t, "250", results[0].Delta.String())
	assert.Equal(t, "500", results[1].Delta.String())
	assert.Equal(t, "500", results[1].Breakdown[history.ComponentBase].String())
}

func TestRunner_DataGapIsWarning(t *testing.T) {
	store := twoMonthStore()
	store.payrolls[empB] = store.payrolls[empB][:1]

	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{})},
	}
	f := newRunnerFixture(t, sc, store, employees())
	f.expectComplete()

	ctl, err := f.run()
	require.NoError(t, err)
	assert.Equal(t, 4, ctl.Processed())

	assert.Len(t, f.repo.sortedResults(), 3)
	summary := f.summary()
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, simulation.IssueDataGap, summary.Warnings[0].Code)
	assert.Equal(t, empB, summary.Warnings[0].EmployeeID)
	assert.Equal(t, "2025-02-01/2025-02-28", summary.Warnings[0].Period)
	assert.Equal(t, "950", summary.GrandTotal.String())
	assert.Equal(t, 1, f.recorder.last().WarningCount)
}

func TestRunner_FormulaErrorFailsOnlyItsUnit(t *testing.T) {
	sc := &scenario.Scenario{
		Method: scenario.MethodFormula,
		FormulaRules: []scenario.FormulaRule{{
			ID:                 uuid.New(),
			Code:               "RISKY",
			Expression:         "department == \"Finance\" ? base / (hours - hours) : 10",
			AffectedComponents: []string{history.ComponentBase},
			ResultMode:         scenario.ResultDelta,
			Validated:          true,
		}},
	}
	f := newRunnerFixture(t, sc, twoMonthStore(), employees())
	f.expectComplete()

	_, err := f.run()
	require.NoError(t, err)

	results := f.repo.sortedResults()
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, empA, r.EmployeeID.String())
	}
	summary := f.summary()
	require.Len(t, summary.Errors, 2)
	assert.Equal(t, simulation.IssueFormula, summary.Errors[0].Code)
	assert.Equal(t, "RISKY", summary.Errors[0].Rule)
	assert.Equal(t, "20", summary.GrandTotal.String())
}

func TestRunner_FilterSkipped(t *testing.T) {
	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{DepartmentIDs: []string{"dept-ops"}})},
	}
	f := newRunnerFixture(t, sc, twoMonthStore(), employees())
	f.expectComplete()

	ctl, err := f.run()
	require.NoError(t, err)
	assert.Equal(t, 2, ctl.Total())

	summary := f.summary()
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, simulation.IssueFilterSkipped, summary.Warnings[0].Code)
	assert.Equal(t, empB, summary.Warnings[0].EmployeeID)
	assert.Equal(t, "750", summary.GrandTotal.String())
}

func TestRunner_FatalConditions(t *testing.T) {
	tests := []struct {
		name    string
		store   func() *fakeStore
		filter  scenario.Filter
		wantErr error
	}{
		{
			name: "no affected periods",
			store: func() *fakeStore {
				s := twoMonthStore()
				s.boundaries = nil
				return s
			},
			wantErr: simulationerrors.ErrNoPeriods,
		},
		{
			name:    "no applicable employees",
			store:   twoMonthStore,
			filter:  scenario.Filter{DepartmentIDs: []string{"dept-none"}},
			wantErr: simulationerrors.ErrNoApplicableEmployees,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &scenario.Scenario{
				Method:         scenario.MethodComponent,
				Status:         scenario.StatusDraft,
				ComponentRules: []scenario.ComponentRule{percentRule(tt.filter)},
			}
			f := newRunnerFixture(t, sc, tt.store(), employees())
			f.expectRelease()

			_, err := f.run()
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, simulation.StatusFailed, f.repo.finished[f.job.SimulationID.String()])
			assert.NotEmpty(t, f.summary().Fatal)
			assert.Empty(t, f.repo.sortedResults())
			assert.Empty(t, f.repo.voided)
			assert.Equal(t, audit.OutcomeFailed, f.recorder.last().Outcome)
		})
	}
}

func TestRunner_HistoryOutageFails(t *testing.T) {
	store := twoMonthStore()
	store.payrollErr = errors.New("connection refused")
	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{})},
	}
	f := newRunnerFixture(t, sc, store, employees())
	f.expectRelease()

	_, err := f.run()
	require.Error(t, err)
	assert.Equal(t, simulation.StatusFailed, f.repo.finished[f.job.SimulationID.String()])
}

func TestRunner_CancelledBeforeFirstUnit(t *testing.T) {
	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{})},
	}
	f := newRunnerFixture(t, sc, twoMonthStore(), employees())
	f.expectRelease()

	ctl := job.NewControl(f.job.ID.String())
	ctl.Cancel()
	err := f.runner.Run(context.Background(), f.job, ctl)

	assert.ErrorIs(t, err, job.ErrCancelled)
	assert.Equal(t, simulation.StatusCancelled, f.repo.finished[f.job.SimulationID.String()])
	assert.True(t, f.summary().Incomplete)
	assert.Equal(t, audit.OutcomeCancelled, f.recorder.last().Outcome)
	assert.Empty(t, f.repo.voided)
}

func shift(employeeID, date string) history.Attendance {
	in := day(date).Add(9 * time.Hour)
	out := in.Add(8 * time.Hour)
	return history.Attendance{
		ID:             uuid.New(),
		CompanyID:      companyID,
		EmployeeID:     uuid.MustParse(employeeID),
		AttendanceDate: day(date),
		ClockIn:        in,
		ClockOut:       &out,
	}
}

func TestRunner_RateChangeWithoutTimeRecordsIsDataGap(t *testing.T) {
	store := twoMonthStore()
	for i := range store.payrolls[empA] {
		store.payrolls[empA][i].Components = []history.PayrollComponent{
			{ID: uuid.New(), ComponentType: "EARNING", ComponentName: "Hourly Pay", TotalAmount: 80000},
		}
	}
	// January has two 8 hour shifts, February has none.
	store.attendances = map[string][]history.Attendance{
		empA: {shift(empA, "2025-01-20"), shift(empA, "2025-01-21")},
	}

	sc := &scenario.Scenario{
		Method:      scenario.MethodComponent,
		EmployeeIDs: []string{empA},
		ComponentRules: []scenario.ComponentRule{{
			ID:            uuid.New(),
			ComponentCode: "HOURLY_PAY",
			ChangeType:    scenario.ChangeRateChange,
			ChangeValue:   decimal.NewFromInt(55),
		}},
	}
	f := newRunnerFixture(t, sc, store, employees())
	f.expectComplete()

	ctl, err := f.run()
	require.NoError(t, err)
	assert.Equal(t, 2, ctl.Processed())

	results := f.repo.sortedResults()
	require.Len(t, results, 1)
	assert.Equal(t, "2025-01-01", results[0].PeriodStart.Format(time.DateOnly))
	// 16h at 55 is 880 against 800 paid.
	assert.Equal(t, "80", results[0].Delta.String())

	summary := f.summary()
	require.Len(t, summary.Warnings, 1)
	assert.Equal(t, simulation.IssueDataGap, summary.Warnings[0].Code)
	assert.Equal(t, empA, summary.Warnings[0].EmployeeID)
	assert.Equal(t, "2025-02-01/2025-02-28", summary.Warnings[0].Period)
	assert.Equal(t, "80", summary.GrandTotal.String())
}

func TestRunner_FormulaComponentCodesAreNormalized(t *testing.T) {
	store := twoMonthStore()
	for i := range store.payrolls[empA] {
		store.payrolls[empA][i].Components = []history.PayrollComponent{
			{ID: uuid.New(), ComponentType: "EARNING", ComponentName: "Meal Allowance", TotalAmount: 20000},
		}
	}

	sc := &scenario.Scenario{
		Method:      scenario.MethodFormula,
		EmployeeIDs: []string{empA},
		FormulaRules: []scenario.FormulaRule{
			{
				ID:                 uuid.New(),
				Code:               "MEAL",
				Expression:         "components.meal_allowance * 0.5",
				AffectedComponents: []string{"meal-allowance"},
				ResultMode:         scenario.ResultDelta,
				Validated:          true,
			},
			{
				ID:                 uuid.New(),
				Code:               "TOPUP",
				Expression:         "current.Meal_Allowance - components.MEAL_ALLOWANCE",
				AffectedComponents: []string{"base"},
				ResultMode:         scenario.ResultDelta,
				Validated:          true,
			},
		},
	}
	f := newRunnerFixture(t, sc, store, employees())
	f.expectComplete()

	_, err := f.run()
	require.NoError(t, err)

	results := f.repo.sortedResults()
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "200", r.Delta.String())
		assert.Equal(t, "100", r.Breakdown["MEAL_ALLOWANCE"].String())
		assert.Equal(t, "100", r.Breakdown[history.ComponentBase].String())
	}
	assert.Equal(t, "400", f.summary().GrandTotal.String())
}

func TestRunner_CancelledMidRunVoidsSavedResults(t *testing.T) {
	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{})},
	}
	ctl := job.NewControl("")
	store := twoMonthStore()
	store.onLoad = func(employeeID string) {
		if employeeID == empA {
			ctl.Cancel()
		}
	}
	// one worker keeps empB from being scheduled once empA cancels
	f := newRunnerFixture(t, sc, store, employees(), simulation.WithWorkers(1))
	f.expectRelease()

	err := f.runner.Run(context.Background(), f.job, ctl)
	assert.ErrorIs(t, err, job.ErrCancelled)

	simID := f.job.SimulationID.String()
	assert.Equal(t, simulation.StatusCancelled, f.repo.finished[simID])
	assert.Equal(t, []string{simID}, f.repo.abandoned)

	results := f.repo.sortedResults()
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, empA, r.EmployeeID.String())
		assert.Equal(t, simulation.ResultVoided, r.Status)
	}
	entry := f.recorder.last()
	assert.Equal(t, audit.OutcomeCancelled, entry.Outcome)
	assert.Equal(t, int64(len(results)), entry.Details["voided_results"])
	assert.Empty(t, f.repo.voided)
}

func TestRunner_FailedMidRunVoidsSavedResults(t *testing.T) {
	store := twoMonthStore()
	store.failFor = empB
	sc := &scenario.Scenario{
		Method:         scenario.MethodComponent,
		ComponentRules: []scenario.ComponentRule{percentRule(scenario.Filter{})},
	}
	f := newRunnerFixture(t, sc, store, employees(), simulation.WithWorkers(1))
	f.expectRelease()

	_, err := f.run()
	require.Error(t, err)

	simID := f.job.SimulationID.String()
	assert.Equal(t, simulation.StatusFailed, f.repo.finished[simID])
	assert.Equal(t, []string{simID}, f.repo.abandoned)

	results := f.repo.sortedResults()
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, simulation.ResultVoided, r.Status)
	}
	entry := f.recorder.last()
	assert.Equal(t, audit.OutcomeFailed, entry.Outcome)
	assert.Equal(t, int64(2), entry.Details["voided_results"])
}

func TestRunner_AbandonClosesSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		status job.Status
		want   simulation.Status
	}{
		{name: "queued job cancelled", status: job.StatusCancelled, want: simulation.StatusCancelled},
		{name: "stale job reclaimed", status: job.StatusFailed, want: simulation.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &scenario.Scenario{Method: scenario.MethodComponent}
			f := newRunnerFixture(t, sc, twoMonthStore(), employees())
			f.expectRelease()
			f.repo.results = []simulation.CalculationResult{{
				ID:           uuid.New(),
				SimulationID: *f.job.SimulationID,
				EmployeeID:   uuid.MustParse(empA),
				Status:       simulation.ResultCalculated,
			}}

			require.NoError(t, f.runner.Abandon(context.Background(), nil, f.job, tt.status))

			simID := f.job.SimulationID.String()
			assert.Equal(t, tt.want, f.repo.finished[simID])
			assert.True(t, f.summary().Incomplete)
			assert.Equal(t, simulation.ResultVoided, f.repo.results[0].Status)
		})
	}
}
