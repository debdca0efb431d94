package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	joberrors "go-twk/internal/job/errors"
	"go-twk/internal/metrics"
	"go-twk/internal/shared/contextutil"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrJobFailed wraps the processor error of a job that was finalized as failed.
var ErrJobFailed = errors.New("job failed")

// Processor performs the work of one job kind.
type Processor interface {
	Run(ctx context.Context, j *Job, ctl *Control) error
}

type ProcessorFunc func(ctx context.Context, j *Job, ctl *Control) error

func (f ProcessorFunc) Run(ctx context.Context, j *Job, ctl *Control) error {
	return f(ctx, j, ctl)
}

// Abandoner is implemented by processors that hold state for a job outside
// the jobs table. Abandon undoes it for a job that will never run to the end,
// inside tx, leaving the job in status.
type Abandoner interface {
	Abandon(ctx context.Context, tx *sql.Tx, j *Job, status Status) error
}

// Runner claims queued jobs and drives them through their processor while a
// watcher polls the cancel flag and flushes progress.
type Runner struct {
	repo       Repository
	flags      CancelFlags
	metrics    *metrics.Metrics
	processors map[Kind]Processor
	poll       time.Duration
	logger     *zap.Logger
}

func NewRunner(repo Repository, flags CancelFlags, m *metrics.Metrics, poll time.Duration) *Runner {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Runner{
		repo:       repo,
		flags:      flags,
		metrics:    m,
		processors: make(map[Kind]Processor),
		poll:       poll,
		logger:     zap.L().Named("job.runner"),
	}
}

func (r *Runner) Register(kind Kind, p Processor) {
	r.processors[kind] = p
}

// Abandon hands j to its processor's Abandoner, if it has one.
func (r *Runner) Abandon(ctx context.Context, tx *sql.Tx, j *Job, status Status) error {
	if a, ok := r.processors[j.Kind].(Abandoner); ok {
		return a.Abandon(ctx, tx, j, status)
	}
	return nil
}

func (r *Runner) Run(ctx context.Context, jobID string) error {
	j, err := r.repo.Load(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return joberrors.ErrJobNotFound
		}
		return err
	}

	log := contextutil.GetLogger(ctx, r.logger).With(
		zap.String("job_id", jobID),
		zap.String("kind", string(j.Kind)),
		zap.String("scenario_id", j.ScenarioID.String()),
	)

	if j.Status != StatusQueued {
		log.Info("job already claimed, skipping", zap.String("status", string(j.Status)))
		return nil
	}

	proc, ok := r.processors[j.Kind]
	if !ok {
		_ = r.repo.Finish(ctx, jobID, StatusFailed, 0, joberrors.ErrUnknownKind.Message)
		return joberrors.ErrUnknownKind
	}

	claimed, err := r.repo.MarkRunning(ctx, jobID, 0)
	if err != nil {
		return err
	}
	if !claimed {
		log.Info("job claimed by another worker")
		return nil
	}
	j.Status = StatusRunning

	ctl := NewControl(jobID)
	if requested, err := r.flags.Requested(ctx, jobID); err == nil && requested {
		ctl.Cancel()
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.watch(watchCtx, ctl, log)
	}()

	start := time.Now()
	r.metrics.JobStarted()
	log.Info("job started")

	runErr := r.invoke(ctx, proc, j, ctl)

	stopWatch()
	wg.Wait()

	status, message := outcome(runErr, ctl)
	if err := r.repo.Finish(context.WithoutCancel(ctx), jobID, status, ctl.Processed(), message); err != nil {
		log.Error("finish job failed", zap.Error(err))
	}
	if err := r.flags.Clear(context.WithoutCancel(ctx), jobID); err != nil {
		log.Warn("clear cancel flag failed", zap.Error(err))
	}
	r.metrics.JobFinished(string(j.Kind), string(status), time.Since(start))

	log.Info("job finished",
		zap.String("status", string(status)),
		zap.Int("processed", ctl.Processed()),
		zap.Int("total", ctl.Total()),
		zap.Duration("took", time.Since(start)),
	)
	if status == StatusFailed {
		return fmt.Errorf("%w: %w", ErrJobFailed, runErr)
	}
	return nil
}

func (r *Runner) invoke(ctx context.Context, p Processor, j *Job, ctl *Control) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job processor panic: %v", rec)
		}
	}()
	return p.Run(ctx, j, ctl)
}

func (r *Runner) watch(ctx context.Context, ctl *Control, log *zap.Logger) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ctl.Cancelled() {
				requested, err := r.flags.Requested(ctx, ctl.JobID())
				if err != nil {
					log.Warn("read cancel flag failed", zap.Error(err))
				} else if requested {
					log.Info("cancel requested")
					ctl.Cancel()
				}
			}
			if err := r.repo.UpdateProgress(ctx, ctl.JobID(), ctl.Processed(), ctl.Total()); err != nil && ctx.Err() == nil {
				log.Warn("flush job progress failed", zap.Error(err))
			}
		}
	}
}

func outcome(err error, ctl *Control) (Status, string) {
	switch {
	case errors.Is(err, ErrCancelled):
		return StatusCancelled, ""
	case err != nil:
		return StatusFailed, err.Error()
	case ctl.Cancelled() && ctl.Processed() < ctl.Total():
		return StatusCancelled, ""
	default:
		return StatusCompleted, ""
	}
}
