package job

import (
	"context"
	"database/sql"
	"time"

	"go-twk/internal/audit"

	"go.uber.org/zap"
)

const staleMessage = "worker stopped reporting progress"

const reclaimBatch = 50

// Reclaimer fails running jobs whose worker died. A live runner refreshes
// updated_at every poll period, so a job silent for longer than staleAfter
// has no worker left to finish it or release its scenario.
type Reclaimer struct {
	db         *sql.DB
	repo       Repository
	abandon    Abandoner
	audit      audit.Recorder
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewReclaimer(db *sql.DB, repo Repository, abandon Abandoner, recorder audit.Recorder, staleAfter time.Duration) *Reclaimer {
	return &Reclaimer{
		db:         db,
		repo:       repo,
		abandon:    abandon,
		audit:      recorder,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     zap.L().Named("job.reclaimer"),
	}
}

// WithClock replaces the clock used to compute the heartbeat cutoff.
func (r *Reclaimer) WithClock(now func() time.Time) *Reclaimer {
	r.now = now
	return r
}

// Reclaim fails every stale job and returns how many it took over.
func (r *Reclaimer) Reclaim(ctx context.Context) (int, error) {
	before := r.now().UTC().Add(-r.staleAfter)
	jobs, err := r.repo.ListStale(ctx, before, reclaimBatch)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range jobs {
		ok, err := r.reclaim(ctx, &jobs[i], before)
		if err != nil {
			r.logger.Error("reclaim stale job", zap.String("job_id", jobs[i].ID.String()), zap.Error(err))
			continue
		}
		if ok {
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (r *Reclaimer) reclaim(ctx context.Context, j *Job, before time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// the heartbeat may have moved since the listing
	ok, err := r.repo.WithTx(tx).FailStale(ctx, j.ID.String(), before, staleMessage)
	if err != nil || !ok {
		return false, err
	}
	if err := r.abandon.Abandon(ctx, tx, j, StatusFailed); err != nil {
		return false, err
	}
	if err := r.audit.Record(ctx, tx, audit.Entry{
		CompanyID:  j.CompanyID.String(),
		ScenarioID: j.ScenarioID.String(),
		JobID:      j.ID.String(),
		ActorID:    j.RequestedBy,
		Action:     audit.Action(j.Kind),
		Outcome:    audit.OutcomeFailed,
		Details:    map[string]any{"error": staleMessage, "last_heartbeat": j.UpdatedAt},
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	r.logger.Warn("stale job reclaimed",
		zap.String("job_id", j.ID.String()),
		zap.String("kind", string(j.Kind)),
		zap.Time("last_heartbeat", j.UpdatedAt),
	)
	return true, nil
}

// Run reclaims on every tick until ctx is done.
func (r *Reclaimer) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reclaim(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("list stale jobs failed", zap.Error(err))
			}
		}
	}
}
