package execution

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-twk/internal/audit"
	executionerrors "go-twk/internal/execution/errors"
	"go-twk/internal/job"
	"go-twk/internal/metrics"
	"go-twk/internal/scenario"
	"go-twk/internal/shared/apperror"
	"go-twk/internal/shared/contextutil"
	"go-twk/internal/shared/money"
	"go-twk/internal/simulation"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner is the job handler for execute jobs.
type Runner struct {
	db        *sql.DB
	scenarios scenario.Repository
	repo      Repository
	tax       TaxEngine
	payroll   PayrollRunCreator
	audit     audit.Recorder
	metrics   *metrics.Metrics
	workers   int
	retries   int
	backoff   func() backoff.BackOff
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

// WithRetries bounds the attempts per collaborator call.
func WithRetries(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.retries = n
		}
	}
}

func WithBackOff(fn func() backoff.BackOff) RunnerOption {
	return func(r *Runner) { r.backoff = fn }
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(
	db *sql.DB,
	scenarios scenario.Repository,
	repo Repository,
	tax TaxEngine,
	payroll PayrollRunCreator,
	recorder audit.Recorder,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		db:        db,
		scenarios: scenarios,
		repo:      repo,
		tax:       tax,
		payroll:   payroll,
		audit:     recorder,
		workers:   4,
		retries:   3,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: zap.L().Named("execution.runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// employeeBatch is one employee's unpaid results.
type employeeBatch struct {
	employeeID string
	results    []simulation.CalculationResult
	total      decimal.Decimal
}

func (b employeeBatch) resultIDs() []string {
	ids := make([]string, 0, len(b.results))
	for _, res := range b.results {
		ids = append(ids, res.ID.String())
	}
	sort.Strings(ids)
	return ids
}

func (b employeeBatch) periods() []string {
	out := make([]string, 0, len(b.results))
	for _, res := range b.results {
		out = append(out, res.PeriodStart.Format(time.DateOnly)+"/"+res.PeriodEnd.Format(time.DateOnly))
	}
	return out
}

// IdempotencyKey is stable for a given set of results, so a retried or
// re-executed payment reaches the collaborator with the same key.
func IdempotencyKey(resultIDs []string) string {
	ids := append([]string(nil), resultIDs...)
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return "twk-" + hex.EncodeToString(sum[:16])
}

func groupByEmployee(results []simulation.CalculationResult) []employeeBatch {
	index := make(map[string]int)
	var out []employeeBatch
	for _, res := range results {
		id := res.EmployeeID.String()
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, employeeBatch{employeeID: id})
		}
		out[i].results = append(out[i].results, res)
		out[i].total = out[i].total.Add(res.Delta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].employeeID < out[j].employeeID })
	return out
}

type tally struct {
	mu      sync.Mutex
	summary Summary
}

func (t *tally) paid(b employeeBatch, tax decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Paid++
	t.summary.Results += len(b.results)
	t.summary.Total = t.summary.Total.Add(b.total)
	t.summary.Tax = t.summary.Tax.Add(tax)
}

func (t *tally) skipped() {
	t.mu.Lock()
	t.summary.Skipped++
	t.mu.Unlock()
}

func (t *tally) failed(f Failure) {
	t.mu.Lock()
	t.summary.Failed++
	t.summary.Failures = append(t.summary.Failures, f)
	t.mu.Unlock()
}

func (t *tally) result() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.summary
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].EmployeeID < s.Failures[j].EmployeeID })
	return s
}

// Run pays the approved snapshot. Employees fail independently; the scenario
// becomes executed once every employee has been attempted.
func (r *Runner) Run(ctx context.Context, j *job.Job, ctl *job.Control) error {
	logger := contextutil.GetLogger(ctx, r.logger).With(
		zap.String("job_id", j.ID.String()),
		zap.String("scenario_id", j.ScenarioID.String()),
	)

	sc, err := r.scenarios.FindByID(ctx, j.CompanyID.String(), j.ScenarioID.String())
	if err != nil {
		return r.fail(ctx, j, Summary{}, err)
	}
	if sc.ApprovedSimulationID == nil {
		return r.fail(ctx, j, Summary{}, executionerrors.ErrNoApprovedSnapshot)
	}

	results, err := r.repo.PayableResults(ctx, sc.ApprovedSimulationID.String())
	if err != nil {
		return r.fail(ctx, j, Summary{}, err)
	}
	batches := groupByEmployee(results)
	ctl.SetTotal(len(batches))

	t := &tally{summary: Summary{Employees: len(batches)}}

	runID, err := r.payrollRun(ctx, j, sc, batches)
	if err != nil {
		return r.fail(ctx, j, t.result(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, b := range batches {
		if ctl.Cancelled() {
			break
		}
		g.Go(func() error {
			defer ctl.Advance(1)
			if b.total.IsZero() {
				t.skipped()
				r.metrics.Payment("skipped")
				return nil
			}
			tax, attempts, err := r.payEmployee(gctx, j, sc, runID, b)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("employee payment failed",
					zap.String("employee_id", b.employeeID),
					zap.Int("attempts", attempts),
					zap.Error(err),
				)
				t.failed(Failure{
					EmployeeID: b.employeeID,
					Code:       apperror.CodeOf(err),
					Message:    err.Error(),
					Attempts:   attempts,
				})
				r.metrics.Payment("failed")
				return nil
			}
			t.paid(b, tax)
			r.metrics.Payment("paid")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return r.fail(ctx, j, t.result(), err)
	}

	summary := t.result()
	if ctl.Cancelled() && ctl.Processed() < ctl.Total() {
		return r.cancel(ctx, j, summary)
	}
	if err := r.complete(ctx, j, summary); err != nil {
		return err
	}
	logger.Info("execution finished",
		zap.Int("paid", summary.Paid),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.String("total", money.String(summary.Total)),
	)
	return nil
}

// payrollRun returns the requested run, or opens a dedicated one the first
// time a non-zero payment needs it.
func (r *Runner) payrollRun(ctx context.Context, j *job.Job, sc *scenario.Scenario, batches []employeeBatch) (string, error) {
	if j.PayrollRunID != nil && *j.PayrollRunID != "" {
		return *j.PayrollRunID, nil
	}
	needed := false
	for _, b := range batches {
		if !b.total.IsZero() {
			needed = true
			break
		}
	}
	if !needed {
		return "", nil
	}

	req := CreateRunRequest{
		CompanyID:      j.CompanyID.String(),
		ScenarioID:     sc.ID.String(),
		Description:    fmt.Sprintf("TWK %s: %s", sc.Code, sc.Name),
		IdempotencyKey: "twk-run-" + j.ID.String(),
	}
	runID, _, err := retry(ctx, r, "payroll_run", func() (string, error) {
		return r.payroll.CreateRun(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("create payroll run: %w", err)
	}
	if err := r.repo.SetPayrollRun(ctx, j.ID.String(), runID); err != nil {
		return "", err
	}
	j.PayrollRunID = &runID
	return runID, nil
}

func (r *Runner) payEmployee(ctx context.Context, j *job.Job, sc *scenario.Scenario, runID string, b employeeBatch) (decimal.Decimal, int, error) {
	ids := b.resultIDs()
	key := IdempotencyKey(ids)

	tax, taxAttempts, err := retry(ctx, r, "tax_engine", func() (decimal.Decimal, error) {
		return r.tax.Withhold(ctx, WithholdingRequest{
			CompanyID:      j.CompanyID.String(),
			EmployeeID:     b.employeeID,
			GrossDelta:     b.total,
			Periods:        b.periods(),
			IdempotencyKey: key + ":tax",
		})
	})
	if err != nil {
		return decimal.Zero, taxAttempts, executionerrors.ErrPaymentFailed.WithCause(err)
	}
	tax = money.Round(tax)

	lineID, lineAttempts, err := retry(ctx, r, "payroll_run", func() (string, error) {
		return r.payroll.AddPaymentLine(ctx, runID, PaymentLine{
			EmployeeID:     b.employeeID,
			GrossDelta:     b.total,
			TaxWithheld:    tax,
			Description:    "TWK " + sc.Code,
			ResultIDs:      ids,
			IdempotencyKey: key + ":line",
		})
	})
	attempts := taxAttempts + lineAttempts
	if err != nil {
		return decimal.Zero, attempts, executionerrors.ErrPaymentFailed.WithCause(err)
	}

	if err := r.recordPaid(ctx, j, runID, lineID, tax, b, ids); err != nil {
		return decimal.Zero, attempts, err
	}
	return tax, attempts, nil
}

// recordPaid inserts the payment rows and moves the results to paid in one
// transaction. Results already paid elsewhere roll the whole employee back.
func (r *Runner) recordPaid(ctx context.Context, j *job.Job, runID, lineID string, tax decimal.Decimal, b employeeBatch, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := r.repo.WithTx(tx)
	moved, err := qtx.MarkPaid(ctx, ids)
	if err != nil {
		return err
	}
	if moved != int64(len(ids)) {
		return executionerrors.ErrAlreadyPaid
	}

	employeeID := uuid.MustParse(b.employeeID)
	payments := make([]Payment, 0, len(b.results))
	for _, res := range b.results {
		payments = append(payments, Payment{
			ID:                  uuid.New(),
			CompanyID:           j.CompanyID,
			ScenarioID:          j.ScenarioID,
			CalculationResultID: res.ID,
			EmployeeID:          employeeID,
			JobID:               j.ID,
			PayrollRunID:        runID,
			PaymentLineID:       lineID,
			GrossDelta:          b.total,
			TaxWithheld:         tax,
		})
	}
	if err := qtx.CreatePayments(ctx, payments); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return executionerrors.ErrAlreadyPaid
		}
		return err
	}
	return tx.Commit()
}

// retry calls op with bounded exponential backoff. Errors that report
// themselves as not temporary stop immediately.
func retry[T any](ctx context.Context, r *Runner, collaborator string, op func() (T, error)) (T, int, error) {
	attempts := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op()
		if err == nil {
			return v, nil
		}
		r.metrics.CollaboratorFailed(collaborator)
		var t temporary
		if errors.As(err, &t) && !t.Temporary() {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(r.backoff()), backoff.WithMaxTries(uint(r.retries)))
	return v, attempts, err
}

func (r *Runner) complete(ctx context.Context, j *job.Job, summary Summary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := r.scenarios.WithTx(tx).MarkExecuted(ctx, j.ScenarioID.String(), j.ID.String())
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("scenario lock lost before execution finished")
	}

	outcome := audit.OutcomeSucceeded
	if summary.Failed > 0 {
		outcome = audit.OutcomePartial
	}
	if err := r.record(ctx, tx, j, outcome, summary); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Runner) cancel(ctx context.Context, j *job.Job, summary Summary) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.scenarios.ReleaseLock(ctx, j.ScenarioID.String(), j.ID.String()); err != nil {
		r.logger.Error("release scenario lock", zap.Error(err))
	}
	_ = r.record(ctx, nil, j, audit.OutcomeCancelled, summary)
	return job.ErrCancelled
}

func (r *Runner) fail(ctx context.Context, j *job.Job, summary Summary, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.scenarios.ReleaseLock(ctx, j.ScenarioID.String(), j.ID.String()); err != nil {
		r.logger.Error("release scenario lock", zap.Error(err))
	}
	_ = r.record(ctx, nil, j, audit.OutcomeFailed, summary, "error", cause.Error())
	return cause
}

// Abandon releases the scenario for a job that will not run to the end.
// Payments already recorded stay paid; a rerun skips them by idempotency key.
func (r *Runner) Abandon(ctx context.Context, tx *sql.Tx, j *job.Job, _ job.Status) error {
	return r.scenarios.WithTx(tx).ReleaseLock(ctx, j.ScenarioID.String(), j.ID.String())
}

func (r *Runner) record(ctx context.Context, tx *sql.Tx, j *job.Job, outcome string, summary Summary, extra ...string) error {
	details := map[string]any{
		"paid":     summary.Paid,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
		"tax":      money.String(summary.Tax),
		"failures": summary.Failures,
	}
	if j.PayrollRunID != nil {
		details["payroll_run_id"] = *j.PayrollRunID
	}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i]] = extra[i+1]
	}
	err := r.audit.Record(ctx, tx, audit.Entry{
		CompanyID:     j.CompanyID.String(),
		ScenarioID:    j.ScenarioID.String(),
		JobID:         j.ID.String(),
		ActorID:       j.RequestedBy,
		Action:        audit.ActionExecute,
		Outcome:       outcome,
		EmployeeCount: summary.Employees,
		PeriodCount:   summary.Results,
		Total:         summary.Total,
		ErrorCount:    summary.Failed,
		Details:       details,
	})
	if err != nil {
		r.logger.Error("record execution audit", zap.String("outcome", outcome), zap.Error(err))
	}
	return err
}
