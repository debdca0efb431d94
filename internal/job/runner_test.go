package job_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"go-twk/internal/job"
	joberrors "go-twk/internal/job/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepo struct {
	mu       sync.Mutex
	jobs     map[string]*job.Job
	progress []int
}

func newFakeRepo(jobs ...*job.Job) *fakeRepo {
	r := &fakeRepo{jobs: make(map[string]*job.Job)}
	for _, j := range jobs {
		r.jobs[j.ID.String()] = j
	}
	return r
}

func (r *fakeRepo) WithTx(*sql.Tx) job.Repository { return r }

func (r *fakeRepo) Create(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID.String()] = j
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, companyID, id string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.CompanyID.String() != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeRepo) Load(_ context.Context, id string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeRepo) MarkRunning(_ context.Context, id string, total int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status != job.StatusQueued {
		return false, nil
	}
	j.Status = job.StatusRunning
	j.TotalUnits = total
	return true, nil
}

func (r *fakeRepo) UpdateProgress(_ context.Context, id string, processed, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].ProcessedUnits = processed
	r.jobs[id].TotalUnits = total
	r.progress = append(r.progress, processed)
	return nil
}

func (r *fakeRepo) Finish(_ context.Context, id string, status job.Status, processed int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	j.Status = status
	j.ProcessedUnits = processed
	if message != "" {
		j.ErrorMessage = &message
	}
	return nil
}

func (r *fakeRepo) CancelQueued(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status != job.StatusQueued {
		return false, nil
	}
	j.Status = job.StatusCancelled
	return true, nil
}

func (r *fakeRepo) ListStale(_ context.Context, before time.Time, limit int) ([]job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []job.Job
	for _, j := range r.jobs {
		if j.Status == job.StatusRunning && j.UpdatedAt.Before(before) && len(out) < limit {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *fakeRepo) FailStale(_ context.Context, id string, before time.Time, message string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status != job.StatusRunning || !j.UpdatedAt.Before(before) {
		return false, nil
	}
	j.Status = job.StatusFailed
	j.ErrorMessage = &message
	return true, nil
}

func (r *fakeRepo) get(id uuid.UUID) job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.jobs[id.String()]
}

func queued(kind job.Kind) *job.Job {
	return &job.Job{
		ID:         uuid.New(),
		CompanyID:  uuid.New(),
		ScenarioID: uuid.New(),
		Kind:       kind,
		Status:     job.StatusQueued,
	}
}

func TestRunner_Completes(t *testing.T) {
	j := queued(job.KindSimulate)
	repo := newFakeRepo(j)
	runner := job.NewRunner(repo, job.NewMemoryFlags(), nil, 5*time.Millisecond)
	runner.Register(job.KindSimulate, job.ProcessorFunc(func(_ context.Context, got *job.Job, ctl *job.Control) error {
		assert.Equal(t, j.ID, got.ID)
		ctl.SetTotal(3)
		for i := 0; i < 3; i++ {
			ctl.Advance(1)
		}
		return nil
	}))

	require.NoError(t, runner.Run(context.Background(), j.ID.String()))

	final := repo.get(j.ID)
	assert.Equal(t, job.StatusCompleted, final.Status)
	assert.Equal(t, 3, final.ProcessedUnits)
}

func TestRunner_SkipsClaimedJob(t *testing.T) {
	j := queued(job.KindSimulate)
	j.Status = job.StatusRunning
	repo := newFakeRepo(j)
	runner := job.NewRunner(repo, job.NewMemoryFlags(), nil, time.Millisecond)
	called := false
	runner.Register(job.KindSimulate, job.ProcessorFunc(func(context.Context, *job.Job, *job.Control) error {
		called = true
		return nil
	}))

	require.NoError(t, runner.Run(context.Background(), j.ID.String()))
	assert.False(t, called)
}

func TestRunner_Failure(t *testing.T) {
	j := queued(job.KindExecute)
	repo := newFakeRepo(j)
	runner := job.NewRunner(repo, job.NewMemoryFlags(), nil, time.Millisecond)
	runner.Register(job.KindExecute, job.ProcessorFunc(func(context.Context, *job.Job, *job.Control) error {
		return errors.New("payroll run creator unavailable")
	}))

	err := runner.Run(context.Background(), j.ID.String())
	assert.ErrorIs(t, err, job.ErrJobFailed)

	final := repo.get(j.ID)
	assert.Equal(t, job.StatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "unavailable")
}

func TestRunner_PanicBecomesFailure(t *testing.T) {
	j := queued(job.KindExecute)
	repo := newFakeRepo(j)
	runner := job.NewRunner(repo, job.NewMemoryFlags(), nil, time.Millisecond)
	runner.Register(job.KindExecute, job.ProcessorFunc(func(context.Context, *job.Job, *job.Control) error {
		panic("boom")
	}))

	assert.Error(t, runner.Run(context.Background(), j.ID.String()))
	assert.Equal(t, job.StatusFailed, repo.get(j.ID).Status)
}

func TestRunner_CooperativeCancel(t *testing.T) {
	j := queued(job.KindSimulate)
	repo := newFakeRepo(j)
	flags := job.NewMemoryFlags()
	runner := job.NewRunner(repo, flags, nil, 2*time.Millisecond)

	runner.Register(job.KindSimulate, job.ProcessorFunc(func(ctx context.Context, _ *job.Job, ctl *job.Control) error {
		ctl.SetTotal(1000)
		for i := 0; i < 1000; i++ {
			if ctl.Cancelled() {
				return nil
			}
			if i == 10 {
				require.NoError(t, flags.Request(ctx, ctl.JobID()))
			}
			ctl.Advance(1)
			time.Sleep(time.Millisecond)
		}
		return nil
	}))

	require.NoError(t, runner.Run(context.Background(), j.ID.String()))

	final := repo.get(j.ID)
	assert.Equal(t, job.StatusCancelled, final.Status)
	assert.Less(t, final.ProcessedUnits, 1000)
	assert.GreaterOrEqual(t, final.ProcessedUnits, 11)

	requested, _ := flags.Requested(context.Background(), j.ID.String())
	assert.False(t, requested, "flag cleared after the job ends")
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	j := queued(job.KindSimulate)
	repo := newFakeRepo(j)
	flags := job.NewMemoryFlags()
	require.NoError(t, flags.Request(context.Background(), j.ID.String()))
	runner := job.NewRunner(repo, flags, nil, time.Hour)
	runner.Register(job.KindSimulate, job.ProcessorFunc(func(_ context.Context, _ *job.Job, ctl *job.Control) error {
		ctl.SetTotal(5)
		if ctl.Cancelled() {
			return job.ErrCancelled
		}
		return nil
	}))

	require.NoError(t, runner.Run(context.Background(), j.ID.String()))
	assert.Equal(t, job.StatusCancelled, repo.get(j.ID).Status)
}

func TestRunner_UnknownKindAndMissingJob(t *testing.T) {
	j := queued(job.Kind("reindex"))
	repo := newFakeRepo(j)
	runner := job.NewRunner(repo, job.NewMemoryFlags(), nil, time.Millisecond)

	assert.ErrorIs(t, runner.Run(context.Background(), j.ID.String()), joberrors.ErrUnknownKind)
	assert.Equal(t, job.StatusFailed, repo.get(j.ID).Status)

	assert.ErrorIs(t, runner.Run(context.Background(), uuid.NewString()), joberrors.ErrJobNotFound)
}
