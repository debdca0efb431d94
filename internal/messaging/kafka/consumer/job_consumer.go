// Package consumer runs jobs requested over Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"go-twk/internal/events"
	"go-twk/internal/job"
	joberrors "go-twk/internal/job/errors"
	"go-twk/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader is the subset of *kafkago.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type JobRunner interface {
	Run(ctx context.Context, jobID string) error
}

// ConsumeJobRequests runs each requested job and commits its message once
// the job reached a terminal state. Infrastructure errors leave the message
// uncommitted so a restarted consumer picks it up again.
func ConsumeJobRequests(ctx context.Context, reader Reader, runner JobRunner, logger *zap.Logger) {
	log := logger.Named("kafka.consumer.jobs")
	log.Info("job consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("job consumer stopped")
				return
			}
			log.Error("fetch job message failed", zap.Error(err))
			continue
		}

		var event events.JobRequestedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil || event.JobID == "" {
			log.Error("discarding malformed job event", zap.Int64("offset", msg.Offset), zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		jobCtx := contextutil.WithRequestID(ctx, event.RequestID)
		jobCtx = contextutil.WithActorID(jobCtx, event.RequestedBy)
		jobCtx = contextutil.WithCompanyID(jobCtx, event.CompanyID)
		jobLog := log.With(
			zap.String("job_id", event.JobID),
			zap.String("kind", event.Kind),
			zap.String("request_id", event.RequestID),
		)
		jobCtx = contextutil.WithLogger(jobCtx, jobLog)

		err = runner.Run(jobCtx, event.JobID)
		if err != nil && !settled(err) {
			jobLog.Error("job run interrupted, leaving message uncommitted", zap.Error(err))
			continue
		}
		if err != nil {
			jobLog.Warn("job ended without success", zap.Error(err))
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			jobLog.Error("commit job message failed", zap.Error(err))
		}
	}
}

// settled reports whether err leaves the job in a state where redelivery
// cannot change the outcome.
func settled(err error) bool {
	return errors.Is(err, job.ErrJobFailed) ||
		errors.Is(err, joberrors.ErrJobNotFound) ||
		errors.Is(err, joberrors.ErrUnknownKind)
}
