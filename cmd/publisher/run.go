package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/avelichko/memorylane/internal/config"
	"github.com/avelichko/memorylane/internal/memory/kafka"
	"github.com/avelichko/memorylane/internal/memory/outbox"
	pg "github.com/avelichko/memorylane/internal/storage/postgres"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is empty")
	}

	log := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", "publisher").
		Logger()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("producer close failed")
		}
	}()

	publisher, err := outbox.NewPublisher(outbox.PublisherConfig{
		OutboxRepo: pg.NewOutboxRepo(db),
		Producer:   producer,
		Interval:   cfg.OutboxInterval,
		BatchSize:  cfg.OutboxBatchSize,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	log.Info().
		Str("topic", cfg.KafkaTopic).
		Dur("interval", cfg.OutboxInterval).
		Int("batch_size", cfg.OutboxBatchSize).
		Msg("publisher started")

	return publisher.Start(ctx)
}
