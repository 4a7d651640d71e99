package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/taskfi/marketplace/internal/outbox"
	"github.com/taskfi/marketplace/internal/version"
)

const (
	PollInterval = 2 * time.Second
	BatchSize    = 100
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("outbox_relay_starting", "version", version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_HOST"),
		os.Getenv("POSTGRES_DB"),
		os.Getenv("POSTGRES_SSL"),
	))
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	publisher, err := outbox.NewKafkaPublisher(os.Getenv("KAFKA_BROKERS"), outbox.TopicNotifications)
	if err != nil {
		logger.Error("kafka_init_failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = publisher.Close()
	}()

	relay := outbox.NewRelay(outbox.NewStore(pool), publisher, PollInterval, BatchSize, logger)

	logger.Info("outbox_relay_running", "interval", PollInterval.String(), "batch_size", BatchSize)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("outbox_relay_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("outbox_relay_stopped")
}
