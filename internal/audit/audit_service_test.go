package audit_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"go-twk/internal/audit"
	"go-twk/internal/shared/contextutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRepo struct {
	tx       *sql.Tx
	created  []audit.ExecutionRecord
	createFn func(rec *audit.ExecutionRecord) error
	listFn   func(companyID, scenarioID string, page, pageSize int) ([]audit.ExecutionRecord, int64, error)
}

func (f *fakeRepo) WithTx(tx *sql.Tx) audit.Repository {
	f.tx = tx
	return f
}

func (f *fakeRepo) Create(_ context.Context, rec *audit.ExecutionRecord) error {
	if f.createFn != nil {
		if err := f.createFn(rec); err != nil {
			return err
		}
	}
	f.created = append(f.created, *rec)
	return nil
}

func (f *fakeRepo) ListByScenario(_ context.Context, companyID, scenarioID string, page, pageSize int) ([]audit.ExecutionRecord, int64, error) {
	return f.listFn(companyID, scenarioID, page, pageSize)
}

func TestService_Record(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	repo := &fakeRepo{}
	svc := audit.NewService(repo, audit.NewMirror(zap.New(core)))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	companyID, scenarioID, jobID := uuid.New(), uuid.New(), uuid.New()
	ctx := contextutil.WithRequestID(context.Background(), "req-1")

	err = svc.Record(ctx, tx, audit.Entry{
		CompanyID:     companyID.String(),
		ScenarioID:    scenarioID.String(),
		JobID:         jobID.String(),
		ActorID:       "actor-1",
		Action:        audit.ActionSimulate,
		Outcome:       audit.OutcomeSucceeded,
		EmployeeCount: 3,
		PeriodCount:   2,
		Total:         decimal.RequireFromString("1200.005"),
		WarningCount:  1,
	})
	require.NoError(t, err)

	assert.Same(t, tx, repo.tx)
	require.Len(t, repo.created, 1)
	rec := repo.created[0]
	assert.Equal(t, scenarioID, rec.ScenarioID)
	assert.Equal(t, jobID, *rec.JobID)
	assert.Equal(t, "1200.01", rec.Total.StringFixed(2))
	assert.Equal(t, "req-1", rec.RequestID)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit event", entry.Message)
	assert.Equal(t, "simulate", entry.ContextMap()["action"])
}

func TestService_RecordErrors(t *testing.T) {
	svc := audit.NewService(&fakeRepo{}, nil)
	err := svc.Record(context.Background(), nil, audit.Entry{CompanyID: "bad", ScenarioID: uuid.NewString()})
	assert.Error(t, err)

	repo := &fakeRepo{createFn: func(*audit.ExecutionRecord) error { return errors.New("insert failed") }}
	svc = audit.NewService(repo, nil)
	err = svc.Record(context.Background(), nil, audit.Entry{CompanyID: uuid.NewString(), ScenarioID: uuid.NewString()})
	assert.EqualError(t, err, "insert failed")
	assert.Nil(t, repo.tx)
}

func TestService_List(t *testing.T) {
	scenarioID := uuid.New()
	repo := &fakeRepo{listFn: func(companyID, sid string, page, pageSize int) ([]audit.ExecutionRecord, int64, error) {
		assert.Equal(t, "company-1", companyID)
		assert.Equal(t, 1, page)
		assert.Equal(t, 20, pageSize)
		return []audit.ExecutionRecord{{ID: uuid.New(), ScenarioID: scenarioID, Action: audit.ActionApprove, Total: decimal.NewFromInt(5)}}, 1, nil
	}}
	svc := audit.NewService(repo, nil)

	items, meta, err := svc.List(context.Background(), "company-1", scenarioID.String(), 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "approve", items[0].Action)
	assert.Equal(t, "5.00", items[0].Total)
	assert.Equal(t, int64(1), meta.Total)
}
