package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go-twk/internal/events"
	"go-twk/internal/job"
	joberrors "go-twk/internal/job/errors"
	"go-twk/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafkago.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

type runnerFunc func(ctx context.Context, jobID string) error

func (f runnerFunc) Run(ctx context.Context, jobID string) error { return f(ctx, jobID) }

func jobMessage(offset int64, jobID string) kafkago.Message {
	payload, _ := json.Marshal(events.JobRequestedEvent{
		EventType: events.JobRequestedEventType,
		JobID:     jobID,
		Kind:      string(job.KindSimulate),
		RequestID: "rid-" + jobID,
	})
	return kafkago.Message{Offset: offset, Value: payload}
}

func TestConsumeJobRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			jobMessage(1, "ok"),
			jobMessage(2, "failed"),
			jobMessage(3, "db-down"),
			{Offset: 4, Value: []byte("not json")},
			jobMessage(5, "missing"),
		},
	}

	var seen []string
	runner := runnerFunc(func(ctx context.Context, jobID string) error {
		seen = append(seen, jobID)
		assert.Equal(t, "rid-"+jobID, contextutil.GetRequestID(ctx))
		switch jobID {
		case "failed":
			return fmt.Errorf("%w: %w", job.ErrJobFailed, errors.New("tax engine down"))
		case "db-down":
			return errors.New("connection refused")
		case "missing":
			return joberrors.ErrJobNotFound
		}
		return nil
	})

	ConsumeJobRequests(ctx, reader, runner, zap.NewNop())

	assert.Equal(t, []string{"ok", "failed", "db-down", "missing"}, seen)
	assert.Equal(t, []int64{1, 2, 4, 5}, reader.committed)
}
