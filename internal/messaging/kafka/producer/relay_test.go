package producer

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go-twk/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failure struct {
	id   string
	next time.Time
	dead bool
}

type fakeOutbox struct {
	due    []kafka.OutboxEvent
	sent   []string
	failed []failure
}

func (f *fakeOutbox) WithTx(*sql.Tx) kafka.OutboxRepository           { return f }
func (f *fakeOutbox) Create(context.Context, kafka.OutboxEvent) error { return nil }

func (f *fakeOutbox) ListDue(_ context.Context, limit int) ([]kafka.OutboxEvent, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id, _ string, next time.Time, dead bool) error {
	f.failed = append(f.failed, failure{id: id, next: next, dead: dead})
	return nil
}

type fakeWriter struct {
	writeFn func(msgs ...kafkago.Message) error
	written []kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.writeFn != nil {
		if err := w.writeFn(msgs...); err != nil {
			return err
		}
	}
	w.written = append(w.written, msgs...)
	return nil
}

func event(id string, attempts int) kafka.OutboxEvent {
	return kafka.OutboxEvent{
		ID:            id,
		RequestID:     "rid-" + id,
		AggregateType: "scenario",
		AggregateID:   "sc-1",
		EventType:     "twk.job.requested",
		Topic:         "twk.jobs.requested.v1",
		Payload:       []byte(`{"job_id":"` + id + `"}`),
		Status:        kafka.OutboxStatusPending,
		Attempts:      attempts,
	}
}

func TestRelay_Flush(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeOutbox{due: []kafka.OutboxEvent{event("e1", 0), event("e2", 2), event("e3", 9)}}
	writer := &fakeWriter{writeFn: func(msgs ...kafkago.Message) error {
		if string(msgs[0].Value) == `{"job_id":"e1"}` {
			return nil
		}
		return errors.New("broker unavailable")
	}}

	relay := NewRelay(repo, writer, zap.NewNop())
	relay.now = func() time.Time { return now }

	sent, err := relay.Flush(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"e1"}, repo.sent)
	require.Len(t, writer.written, 1)
	msg := writer.written[0]
	assert.Equal(t, "twk.jobs.requested.v1", msg.Topic)
	assert.Equal(t, "sc-1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafkago.Header{Key: "request_id", Value: []byte("rid-e1")})

	require.Len(t, repo.failed, 2)
	assert.Equal(t, failure{id: "e2", next: now.Add(8 * time.Second)}, repo.failed[0])
	assert.Equal(t, failure{id: "e3", next: now.Add(maxRetryDelay), dead: true}, repo.failed[1])
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 256*time.Second, retryDelay(8))
	assert.Equal(t, maxRetryDelay, retryDelay(9))
	assert.Equal(t, maxRetryDelay, retryDelay(40))
}
