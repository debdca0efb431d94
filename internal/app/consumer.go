package app

import (
	"context"
	"errors"

	"go-twk/internal/audit"
	"go-twk/internal/bootstrap"
	"go-twk/internal/config"
	"go-twk/internal/events"
	"go-twk/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunConsumer runs simulate and execute jobs requested over Kafka.
func RunConsumer(cfg *config.Config) error {
	logger := zap.L().Named("app.consumer")
	if cfg.Kafka.Broker == "" {
		return errors.New("KAFKA_BROKER is required")
	}

	in, closeFn, err := connect(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	e := newEngine(in)
	stopReclaim := startReclaimer(in, e)
	defer stopReclaim()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  []string{cfg.Kafka.Broker},
		GroupID:  cfg.Kafka.GroupID,
		Topic:    events.JobRequestedTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.ConsumeJobRequests(ctx, reader, e.runner, logger)
	}()

	sig := bootstrap.WaitForSignal()
	audit.NewMirror(logger).Log(ctx, "CONSUMER_SHUTDOWN", "job consumer is shutting down", map[string]any{"signal": sig})
	cancel()
	<-done
	return nil
}
