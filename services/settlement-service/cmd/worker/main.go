package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/buynow/services/settlement-service/internal/adapters/cache"
	"github.com/floroz/buynow/services/settlement-service/internal/adapters/events"
	"github.com/floroz/buynow/services/settlement-service/internal/config"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down worker...")
		cancel()
	}()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Connect to RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	// 3. Initialize Producer
	producer, err := events.NewSettlementEventsProducer(pool, amqpConn, events.RelayConfig{
		BatchSize:   cfg.RelayBatchSize,
		Interval:    cfg.RelayInterval,
		LockTimeout: cfg.LockTimeout,
		MaxAttempts: cfg.RelayMaxAttempt,
	}, logger)
	if err != nil {
		logger.Error("Failed to create producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Settlement Events Producer...")
		return producer.Run(gctx)
	})

	// 4. Settled cache consumer, only when Redis is configured
	if cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		defer rdb.Close()
		if pingErr := rdb.Ping(ctx).Err(); pingErr != nil {
			logger.Error("Failed to connect to Redis", "error", pingErr)
			os.Exit(1)
		}
		logger.Info("Redis Connected")

		consumer := events.NewSettlementConsumer(amqpConn, cache.NewRedisSettledCache(rdb, cache.DefaultSettledTTL), logger)
		g.Go(func() error {
			logger.Info("Starting Settlement Cache Consumer...")
			return consumer.Run(gctx)
		})
	} else {
		logger.Warn("REDIS_URL is not set, settled cache consumer disabled")
	}

	if runErr := g.Wait(); runErr != nil {
		logger.Error("Worker failed", "error", runErr)
		// Run returns nil on context cancel.
		if ctx.Err() == nil {
			os.Exit(1)
		}
	}

	logger.Info("Worker stopped")
}
