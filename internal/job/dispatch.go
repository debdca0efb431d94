package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go-twk/internal/events"
	"go-twk/internal/messaging/kafka"
	"go-twk/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher hands a freshly created job to whatever runs it. Enqueue is
// called inside the transaction that created the job; Start after commit.
type Dispatcher interface {
	Enqueue(ctx context.Context, tx *sql.Tx, j *Job) error
	Start(ctx context.Context, j *Job)
}

type outboxDispatcher struct {
	outbox kafka.OutboxRepository
}

// NewOutboxDispatcher publishes a JobRequested event through the outbox; the
// consumer process runs the job.
func NewOutboxDispatcher(outbox kafka.OutboxRepository) Dispatcher {
	return &outboxDispatcher{outbox: outbox}
}

func (d *outboxDispatcher) Enqueue(ctx context.Context, tx *sql.Tx, j *Job) error {
	rid := contextutil.GetRequestID(ctx)
	event := events.JobRequestedEvent{
		EventType:   events.JobRequestedEventType,
		JobID:       j.ID.String(),
		Kind:        string(j.Kind),
		CompanyID:   j.CompanyID.String(),
		ScenarioID:  j.ScenarioID.String(),
		RequestedBy: j.RequestedBy,
		RequestID:   rid,
		OccurredAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return d.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "scenario",
		AggregateID:   j.ScenarioID.String(),
		EventType:     event.EventType,
		Topic:         events.JobRequestedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (d *outboxDispatcher) Start(context.Context, *Job) {}

type inlineDispatcher struct {
	runner *Runner
	logger *zap.Logger
}

// NewInlineDispatcher runs jobs on a goroutine of the API process.
func NewInlineDispatcher(runner *Runner) Dispatcher {
	return &inlineDispatcher{runner: runner, logger: zap.L().Named("job.inline")}
}

func (d *inlineDispatcher) Enqueue(context.Context, *sql.Tx, *Job) error { return nil }

func (d *inlineDispatcher) Start(ctx context.Context, j *Job) {
	bg := contextutil.Detach(ctx)
	jobID := j.ID.String()
	go func() {
		if err := d.runner.Run(bg, jobID); err != nil {
			contextutil.GetLogger(bg, d.logger).Error("inline job failed",
				zap.String("job_id", jobID),
				zap.Error(err),
			)
		}
	}()
}
