package job_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go-twk/internal/audit"
	"go-twk/internal/job"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReclaimer_FailsStaleJobs(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	stale := queued(job.KindSimulate)
	stale.Status = job.StatusRunning
	stale.UpdatedAt = now.Add(-10 * time.Minute)

	alive := queued(job.KindExecute)
	alive.Status = job.StatusRunning
	alive.UpdatedAt = now.Add(-time.Minute)

	waiting := queued(job.KindSimulate)
	waiting.UpdatedAt = now.Add(-time.Hour)

	repo := newFakeRepo(stale, alive, waiting)
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()

	abandoner := &fakeAbandoner{}
	rec := &fakeRecorder{}
	reclaimer := job.NewReclaimer(db, repo, abandoner, rec, 5*time.Minute).
		WithClock(func() time.Time { return now })

	n, err := reclaimer.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	final := repo.get(stale.ID)
	assert.Equal(t, job.StatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "stopped reporting progress")
	assert.Equal(t, job.StatusRunning, repo.get(alive.ID).Status)
	assert.Equal(t, job.StatusQueued, repo.get(waiting.ID).Status)

	assert.Equal(t, []abandoned{{jobID: stale.ID.String(), status: job.StatusFailed}}, abandoner.calls)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, audit.ActionSimulate, rec.entries[0].Action)
	assert.Equal(t, audit.OutcomeFailed, rec.entries[0].Outcome)
	assert.NoError(t, sqlMock.ExpectationsWereMet())

	// a second pass finds nothing left
	n, err = reclaimer.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type abandoningProcessor struct {
	job.ProcessorFunc
	calls int
}

func (p *abandoningProcessor) Abandon(context.Context, *sql.Tx, *job.Job, job.Status) error {
	p.calls++
	return nil
}

func TestRunner_AbandonDispatchesByKind(t *testing.T) {
	runner := job.NewRunner(newFakeRepo(), job.NewMemoryFlags(), nil, time.Millisecond)
	sim := &abandoningProcessor{ProcessorFunc: func(context.Context, *job.Job, *job.Control) error { return nil }}
	runner.Register(job.KindSimulate, sim)
	runner.Register(job.KindExecute, job.ProcessorFunc(func(context.Context, *job.Job, *job.Control) error { return nil }))

	require.NoError(t, runner.Abandon(context.Background(), nil, queued(job.KindSimulate), job.StatusFailed))
	require.NoError(t, runner.Abandon(context.Background(), nil, queued(job.KindExecute), job.StatusFailed))
	assert.Equal(t, 1, sim.calls)
}
