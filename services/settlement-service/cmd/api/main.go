package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/buynow/pkg/api/settlementv1/settlementv1connect"
	"github.com/floroz/buynow/pkg/auth"
	pkgdb "github.com/floroz/buynow/pkg/database"
	"github.com/floroz/buynow/services/settlement-service/internal/adapters/api"
	"github.com/floroz/buynow/services/settlement-service/internal/adapters/cache"
	"github.com/floroz/buynow/services/settlement-service/internal/adapters/database"
	"github.com/floroz/buynow/services/settlement-service/internal/config"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/auctions"
	"github.com/floroz/buynow/services/settlement-service/internal/domain/ledger"
	"github.com/floroz/buynow/services/settlement-service/migrations"
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
	if err := cfg.RequireAPI(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	if cfg.RunMigrations {
		if err := migrations.Up(ctx, cfg.DatabaseURL, logger); err != nil {
			logger.Error("Migrations failed", "error", err)
			os.Exit(1)
		}
	}

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

	// 2. Auth
	publicKey, err := os.ReadFile(cfg.JWTPublicKey)
	if err != nil {
		logger.Error("Failed to read JWT public key", "error", err)
		os.Exit(1)
	}
	signer, err := auth.NewSignerFromPublicKey(publicKey, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to create token validator", "error", err)
		os.Exit(1)
	}
	if cfg.OperatorKeyHash == "" {
		logger.Warn("OPERATOR_KEY_HASH is not set, deposits need the ledger:deposit permission")
	}

	// 3. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.LockTimeout)
	auctionRepo := database.NewPostgresAuctionRepository(pool)
	ledgerRepo := database.NewPostgresLedger(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	// 4. Initialize Services (Domain Layer)
	auctionService := auctions.NewService(txManager, auctionRepo, ledgerRepo, outboxRepo, auctions.SystemClock{})
	ledgerService := ledger.NewService(txManager, ledgerRepo)

	// Redis is an optional fast path for settled auctions
	if cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis connection failed, settled cache disabled", "error", err)
		} else {
			logger.Info("Redis Connected")
			auctionService.WithSettledCache(cache.NewRedisSettledCache(rdb, cache.DefaultSettledTTL))
		}
	}

	// 5. Initialize API Handler (ConnectRPC)
	settlementHandler := api.NewSettlementServiceHandler(auctionService, ledgerService)
	path, handler := settlementv1connect.NewSettlementServiceHandler(
		settlementHandler,
		connect.WithInterceptors(auth.NewAuthInterceptor(signer, cfg.OperatorKeyHash)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Settlement Service API", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("API stopped")
}
