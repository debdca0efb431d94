// Package producer relays committed outbox rows to Kafka.
package producer

import (
	"context"
	"time"

	"go-twk/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Writer is the subset of *kafkago.Writer the relay needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

const (
	defaultBatch       = 50
	defaultMaxAttempts = 10
	maxRetryDelay      = 5 * time.Minute
)

type Relay struct {
	repo        kafka.OutboxRepository
	writer      Writer
	batch       int
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

func NewRelay(repo kafka.OutboxRepository, writer Writer, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.L()
	}
	return &Relay{
		repo:        repo,
		writer:      writer,
		batch:       defaultBatch,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		logger:      logger.Named("kafka.producer.relay"),
	}
}

// Run polls the outbox until ctx is done.
func (r *Relay) Run(ctx context.Context, poll time.Duration) {
	if poll <= 0 {
		poll = 3 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("poll_interval", poll))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				r.logger.Error("flush outbox failed", zap.Error(err))
			}
		}
	}
}

// Flush publishes one batch of due events and returns how many were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.repo.ListDue(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, event := range events {
		log := r.logger.With(
			zap.String("outbox_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("topic", event.Topic),
		)

		if err := r.writer.WriteMessages(ctx, message(event)); err != nil {
			attempt := event.Attempts + 1
			dead := attempt >= r.maxAttempts
			log.Error("publish outbox event failed",
				zap.Int("attempt", attempt),
				zap.Bool("dead", dead),
				zap.Error(err),
			)
			if markErr := r.repo.MarkFailed(ctx, event.ID, err.Error(), r.now().Add(retryDelay(attempt)), dead); markErr != nil {
				log.Error("mark outbox failed", zap.Error(markErr))
			}
			continue
		}

		if err := r.repo.MarkSent(ctx, event.ID); err != nil {
			// The consumer tolerates the duplicate publish this causes.
			log.Error("mark outbox sent failed", zap.Error(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		r.logger.Info("outbox events sent", zap.Int("count", sent))
	}
	return sent, nil
}

func message(event kafka.OutboxEvent) kafkago.Message {
	headers := []kafkago.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "aggregate_type", Value: []byte(event.AggregateType)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: "request_id", Value: []byte(event.RequestID)})
	}
	return kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}

// retryDelay doubles from one second up to maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	if attempt > 9 {
		return maxRetryDelay
	}
	d := time.Second << attempt
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
