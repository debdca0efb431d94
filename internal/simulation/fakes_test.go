package simulation_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/directory"
	"go-twk/internal/history"
	"go-twk/internal/period"
	"go-twk/internal/simulation"

	"gorm.io/gorm"
)

type fakeRepo struct {
	mu       sync.Mutex
	sims     map[string]*simulation.Simulation
	results  []simulation.CalculationResult
	finished map[string]simulation.Status
	summary  map[string]simulation.Summary
	voided   []string
	// abandoned lists snapshots voided after a cancelled or failed run.
	abandoned []string
	saveErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sims:     make(map[string]*simulation.Simulation),
		finished: make(map[string]simulation.Status),
		summary:  make(map[string]simulation.Summary),
	}
}

func (f *fakeRepo) WithTx(*sql.Tx) simulation.Repository { return f }

func (f *fakeRepo) CreateSimulation(_ context.Context, s *simulation.Simulation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sims[s.ID.String()] = s
	return nil
}

func (f *fakeRepo) FindSimulation(_ context.Context, companyID, id string) (*simulation.Simulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sims[id]
	if !ok || s.CompanyID.String() != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeRepo) FinishSimulation(_ context.Context, id string, status simulation.Status, summary simulation.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[id] = status
	f.summary[id] = summary
	return nil
}

func (f *fakeRepo) SaveResults(_ context.Context, results []simulation.CalculationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.results = append(f.results, results...)
	return nil
}

func (f *fakeRepo) ListResults(_ context.Context, _ string, simulationID string, filter simulation.ResultFilter) ([]simulation.CalculationResult, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []simulation.CalculationResult
	for _, r := range f.results {
		if r.SimulationID.String() != simulationID {
			continue
		}
		if filter.EmployeeID != "" && r.EmployeeID.String() != filter.EmployeeID {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) VoidOtherSnapshots(_ context.Context, _ string, keep string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voided = append(f.voided, keep)
	return 0, nil
}

func (f *fakeRepo) VoidSnapshot(_ context.Context, simulationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, simulationID)
	var n int64
	for i := range f.results {
		if f.results[i].SimulationID.String() == simulationID && f.results[i].Status == simulation.ResultCalculated {
			f.results[i].Status = simulation.ResultVoided
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ApproveSnapshot(context.Context, *sql.Tx, string) (int64, error) {
	return 0, nil
}

// sortedResults orders saved results by employee then period.
func (f *fakeRepo) sortedResults() []simulation.CalculationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]simulation.CalculationResult(nil), f.results...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID.String() < out[j].EmployeeID.String()
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out
}

type fakeStore struct {
	boundaries  []period.Boundary
	payrolls    map[string][]history.Payroll
	attendances map[string][]history.Attendance
	paid        []string
	payrollErr  error
	// failFor makes history loads of one employee fail.
	failFor string
	// onLoad runs before each employee's payroll history is read.
	onLoad func(employeeID string)
}

func (f *fakeStore) Boundaries(context.Context, string, time.Time, time.Time) ([]period.Boundary, error) {
	return f.boundaries, nil
}

func (f *fakeStore) PaidPayrolls(_ context.Context, _ string, employeeID string, _, _ time.Time) ([]history.Payroll, error) {
	if f.onLoad != nil {
		f.onLoad(employeeID)
	}
	if f.payrollErr != nil {
		return nil, f.payrollErr
	}
	if employeeID == f.failFor {
		return nil, errors.New("connection reset")
	}
	return f.payrolls[employeeID], nil
}

func (f *fakeStore) Attendances(_ context.Context, _ string, employeeID string, _, _ time.Time) ([]history.Attendance, error) {
	return f.attendances[employeeID], nil
}

func (f *fakeStore) PaidEmployeeIDs(context.Context, string, time.Time, time.Time) ([]string, error) {
	return f.paid, nil
}

type fakeDirectory struct {
	employees []directory.Employee
}

func (f *fakeDirectory) List(_ context.Context, _ string, ids []string) ([]directory.Employee, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []directory.Employee
	for _, e := range f.employees {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeRecorder) Record(_ context.Context, _ *sql.Tx, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeRecorder) last() audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return audit.Entry{}
	}
	return f.entries[len(f.entries)-1]
}
