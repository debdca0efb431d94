package simulation

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/directory"
	"go-twk/internal/formula"
	"go-twk/internal/history"
	"go-twk/internal/job"
	"go-twk/internal/metrics"
	"go-twk/internal/period"
	"go-twk/internal/scenario"
	"go-twk/internal/shared/apperror"
	"go-twk/internal/shared/contextutil"
	"go-twk/internal/shared/money"
	simulationerrors "go-twk/internal/simulation/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner is the job handler for simulate jobs.
type Runner struct {
	db        *sql.DB
	scenarios scenario.Repository
	repo      Repository
	store     history.Store
	resolver  *period.Resolver
	directory directory.Directory
	audit     audit.Recorder
	metrics   *metrics.Metrics
	rounder   money.Rounder
	limits    formula.Limits
	workers   int
	logger    *zap.Logger
}

type RunnerOption func(*Runner)

func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithRounder(rounder money.Rounder) RunnerOption {
	return func(r *Runner) { r.rounder = rounder }
}

func WithLimits(lim formula.Limits) RunnerOption {
	return func(r *Runner) { r.limits = lim }
}

// WithClock fixes the date used to bound the affected periods.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.resolver = r.resolver.WithClock(now) }
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(
	db *sql.DB,
	scenarios scenario.Repository,
	repo Repository,
	store history.Store,
	dir directory.Directory,
	recorder audit.Recorder,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		db:        db,
		scenarios: scenarios,
		repo:      repo,
		store:     store,
		resolver:  period.NewResolver(store),
		directory: dir,
		audit:     recorder,
		rounder:   money.NewRounder(string(money.HalfUp)),
		limits:    formula.DefaultLimits,
		workers:   4,
		logger:    zap.L().Named("simulation.runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// batch accumulates unit outputs from concurrent workers.
type batch struct {
	mu        sync.Mutex
	employees map[string]struct{}
	periods   map[string]struct{}
	results   int
	total     decimal.Decimal
	byDept    map[string]decimal.Decimal
	byPeriod  map[string]decimal.Decimal
	warnings  []Issue
	errors    []Issue
}

func newBatch() *batch {
	return &batch{
		employees: make(map[string]struct{}),
		periods:   make(map[string]struct{}),
		byDept:    make(map[string]decimal.Decimal),
		byPeriod:  make(map[string]decimal.Decimal),
	}
}

func (b *batch) add(out unitOutput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, res := range out.results {
		b.results++
		b.employees[res.EmployeeID.String()] = struct{}{}
		key := res.PeriodStart.Format(time.DateOnly) + "/" + res.PeriodEnd.Format(time.DateOnly)
		b.periods[key] = struct{}{}
		b.total = b.total.Add(res.Delta)
		b.byDept[res.DepartmentID] = b.byDept[res.DepartmentID].Add(res.Delta)
		b.byPeriod[key] = b.byPeriod[key].Add(res.Delta)
	}
	b.warnings = append(b.warnings, out.warnings...)
	b.errors = append(b.errors, out.errors...)
}

func (b *batch) warn(issue Issue) {
	b.mu.Lock()
	b.warnings = append(b.warnings, issue)
	b.mu.Unlock()
}

func (b *batch) summary() Summary {
	sortIssues(b.warnings)
	sortIssues(b.errors)
	return Summary{
		GrandTotal:    b.total,
		EmployeeCount: len(b.employees),
		PeriodCount:   len(b.periods),
		ResultCount:   b.results,
		ByDepartment:  b.byDept,
		ByPeriod:      b.byPeriod,
		Warnings:      b.warnings,
		Errors:        b.errors,
	}
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Code < b.Code
	})
}

// Run recalculates the scenario into the job's snapshot. It owns the
// scenario lock taken at trigger time and always releases it.
func (r *Runner) Run(ctx context.Context, j *job.Job, ctl *job.Control) error {
	logger := contextutil.GetLogger(ctx, r.logger).With(
		zap.String("job_id", j.ID.String()),
		zap.String("scenario_id", j.ScenarioID.String()),
	)
	companyID := j.CompanyID.String()
	if j.SimulationID == nil {
		return r.fail(ctx, j, Summary{}, errors.New("simulate job has no simulation id"))
	}

	sc, err := r.scenarios.FindByID(ctx, companyID, j.ScenarioID.String())
	if err != nil {
		return r.fail(ctx, j, Summary{}, err)
	}

	b := newBatch()
	err = r.simulate(ctx, sc, j, ctl, b)
	summary := b.summary()

	switch {
	case err != nil && !errors.Is(err, job.ErrCancelled):
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			summary.Fatal = appErr.Message
		}
		logger.Warn("simulation failed", zap.Error(err))
		return r.fail(ctx, j, summary, err)
	case err != nil:
		summary.Incomplete = true
		return r.cancel(ctx, j, summary)
	}

	if err := r.complete(ctx, j, summary); err != nil {
		return err
	}
	logger.Info("simulation completed",
		zap.Int("results", summary.ResultCount),
		zap.String("grand_total", money.String(summary.GrandTotal)),
		zap.Int("warnings", len(summary.Warnings)),
		zap.Int("errors", len(summary.Errors)),
	)
	return nil
}

func (r *Runner) simulate(ctx context.Context, sc *scenario.Scenario, j *job.Job, ctl *job.Control, b *batch) error {
	companyID := sc.CompanyID.String()

	windows, err := r.resolver.Resolve(ctx, companyID, sc.EffectiveDate)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return simulationerrors.ErrNoPeriods
	}

	p, err := newPlan(sc, *j.SimulationID, windows, r.rounder, r.limits)
	if err != nil {
		return err
	}

	ids := sc.EmployeeIDs
	if len(ids) == 0 {
		ids, err = r.store.PaidEmployeeIDs(ctx, companyID, windows[0].Start, windows[len(windows)-1].End)
		if err != nil {
			return err
		}
	}
	employees, err := r.directory.List(ctx, companyID, ids)
	if err != nil {
		return err
	}

	var applicable []directory.Employee
	for _, emp := range employees {
		if p.applies(emp) {
			applicable = append(applicable, emp)
			continue
		}
		b.warn(Issue{
			Code:       IssueFilterSkipped,
			EmployeeID: emp.ID,
			Message:    "no rule applies to employee",
		})
	}
	if len(applicable) == 0 {
		return simulationerrors.ErrNoApplicableEmployees
	}
	sort.Slice(applicable, func(i, k int) bool { return applicable[i].ID < applicable[k].ID })

	ctl.SetTotal(len(applicable) * len(windows))
	agg := history.NewAggregator(r.store, companyID, windows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	schedule := func(emp directory.Employee, ws []period.Window) {
		g.Go(func() error {
			out, err := p.employeePeriods(gctx, agg, emp, ws)
			if err != nil {
				return err
			}
			if len(out.results) > 0 {
				if err := r.repo.SaveResults(gctx, out.results); err != nil {
					return err
				}
			}
			for range out.warnings {
				r.metrics.DataGap()
			}
			for range out.errors {
				r.metrics.FormulaFailed()
			}
			for range out.results {
				r.metrics.Unit("calculated")
			}
			b.add(out)
			ctl.Advance(out.periods)
			return nil
		})
	}

scheduling:
	for _, emp := range applicable {
		if p.chain {
			if ctl.Cancelled() {
				break
			}
			schedule(emp, windows)
			continue
		}
		for _, w := range windows {
			if ctl.Cancelled() {
				break scheduling
			}
			schedule(emp, []period.Window{w})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if ctl.Cancelled() && ctl.Processed() < ctl.Total() {
		return job.ErrCancelled
	}
	return nil
}

func (r *Runner) complete(ctx context.Context, j *job.Job, summary Summary) error {
	simID := j.SimulationID.String()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := r.repo.WithTx(tx)
	if err := qtx.FinishSimulation(ctx, simID, StatusCompleted, summary); err != nil {
		return err
	}
	ok, err := r.scenarios.WithTx(tx).CompleteSimulation(ctx, j.ScenarioID.String(), j.ID.String(), simID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("scenario lock lost before completion")
	}
	voided, err := qtx.VoidOtherSnapshots(ctx, j.ScenarioID.String(), simID)
	if err != nil {
		return err
	}
	if err := r.record(ctx, tx, j, audit.OutcomeSucceeded, summary, map[string]any{
		"simulation_id":  simID,
		"voided_results": voided,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Runner) cancel(ctx context.Context, j *job.Job, summary Summary) error {
	ctx = context.WithoutCancel(ctx)
	voided := r.finishDetached(ctx, j, StatusCancelled, summary)
	_ = r.record(ctx, nil, j, audit.OutcomeCancelled, summary, map[string]any{
		"simulation_id":  j.SimulationID.String(),
		"voided_results": voided,
	})
	return job.ErrCancelled
}

func (r *Runner) fail(ctx context.Context, j *job.Job, summary Summary, cause error) error {
	ctx = context.WithoutCancel(ctx)
	details := map[string]any{"error": cause.Error()}
	if j.SimulationID != nil {
		details["simulation_id"] = j.SimulationID.String()
		details["voided_results"] = r.finishDetached(ctx, j, StatusFailed, summary)
	} else if err := r.scenarios.ReleaseLock(ctx, j.ScenarioID.String(), j.ID.String()); err != nil {
		r.logger.Error("release scenario lock", zap.Error(err))
	}
	_ = r.record(ctx, nil, j, audit.OutcomeFailed, summary, details)
	return cause
}

// finishDetached closes the snapshot, voids the results it saved and releases
// the lock without touching the scenario's status. The voided rows stay
// readable through the snapshot for inspection.
func (r *Runner) finishDetached(ctx context.Context, j *job.Job, status Status, summary Summary) int64 {
	simID := j.SimulationID.String()
	if err := r.repo.FinishSimulation(ctx, simID, status, summary); err != nil {
		r.logger.Error("finish simulation", zap.String("status", string(status)), zap.Error(err))
	}
	voided, err := r.repo.VoidSnapshot(ctx, simID)
	if err != nil {
		r.logger.Error("void simulation results", zap.String("simulation_id", simID), zap.Error(err))
	}
	if err := r.scenarios.ReleaseLock(ctx, j.ScenarioID.String(), j.ID.String()); err != nil {
		r.logger.Error("release scenario lock", zap.Error(err))
	}
	return voided
}

// Abandon closes the snapshot of a job that will not run to the end, voids
// whatever it saved and releases the scenario, all inside tx.
func (r *Runner) Abandon(ctx context.Context, tx *sql.Tx, j *job.Job, status job.Status) error {
	if j.SimulationID != nil {
		simID := j.SimulationID.String()
		summary := Summary{Incomplete: true}
		final := StatusCancelled
		if status != job.StatusCancelled {
			final = StatusFailed
			summary.Fatal = "simulation abandoned"
		}
		qtx := r.repo.WithTx(tx)
		if err := qtx.FinishSimulation(ctx, simID, final, summary); err != nil {
			return err
		}
		if _, err := qtx.VoidSnapshot(ctx, simID); err != nil {
			return err
		}
	}
	return r.scenarios.WithTx(tx).ReleaseLock(ctx, j.ScenarioID.String(), j.ID.String())
}

func (r *Runner) record(ctx context.Context, tx *sql.Tx, j *job.Job, outcome string, summary Summary, details map[string]any) error {
	err := r.audit.Record(ctx, tx, audit.Entry{
		CompanyID:     j.CompanyID.String(),
		ScenarioID:    j.ScenarioID.String(),
		JobID:         j.ID.String(),
		ActorID:       j.RequestedBy,
		Action:        audit.ActionSimulate,
		Outcome:       outcome,
		EmployeeCount: summary.EmployeeCount,
		PeriodCount:   summary.PeriodCount,
		Total:         summary.GrandTotal,
		ErrorCount:    len(summary.Errors),
		WarningCount:  len(summary.Warnings),
		Details:       details,
	})
	if err != nil {
		r.logger.Error("record simulation audit", zap.String("outcome", outcome), zap.Error(err))
	}
	return err
}
