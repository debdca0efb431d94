package app

import (
	"context"

	"go-twk/internal/bootstrap"
	"go-twk/internal/config"
	"go-twk/internal/messaging/kafka"
	"go-twk/internal/messaging/kafka/producer"
	"go-twk/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker relays committed outbox rows to Kafka until a shutdown signal.
func RunWorker(cfg *config.Config) error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	writer, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, cfg.Database.MaxRetries)
	if err != nil {
		return err
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := producer.NewRelay(kafka.NewOutboxRepository(sqlDB), writer, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx, cfg.Engine.OutboxPoll)
	}()

	sig := bootstrap.WaitForSignal()
	logger.Info("worker shutting down", zap.String("signal", sig))
	cancel()
	<-done
	return nil
}
