package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ejuuz/wallet-service/config"
	httpHandler "github.com/ejuuz/wallet-service/internal/adapter/http/handler"
	"github.com/ejuuz/wallet-service/internal/adapter/notifier"
	pgStorage "github.com/ejuuz/wallet-service/internal/adapter/storage/postgres"
	redisStorage "github.com/ejuuz/wallet-service/internal/adapter/storage/redis"
	"github.com/ejuuz/wallet-service/internal/core/ports"
	"github.com/ejuuz/wallet-service/internal/service"
	"github.com/ejuuz/wallet-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	walletTxRepo := pgStorage.NewWalletTransactionRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	orderTxRepo := pgStorage.NewOrderTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	otpStore := redisStorage.NewOTPStore(rdb)

	// Initialize event notifier: AMQP when configured, logger otherwise
	var events ports.Notifier
	if cfg.AMQP.URL != "" {
		amqpNotifier, err := notifier.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
		}
		defer amqpNotifier.Close()
		events = amqpNotifier
		log.Info().Str("exchange", cfg.AMQP.Exchange).Msg("AMQP notifier connected")
	} else {
		events = notifier.NewLogNotifier(log)
		log.Info().Msg("AMQP not configured, events go to the log")
	}

	// Initialize core services
	snapshotSvc, err := service.NewSnapshotService(cfg.Snapshot.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot codec")
	}
	hasher := service.NewArgon2Hasher()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, otpStore, hasher, tokenSvc, events, cfg.OTP.TTL, cfg.OTP.Digits, log)
	ledgerSvc := service.NewLedgerService(accountRepo, walletTxRepo, idempotencyCache, snapshotSvc, transactor, events, log)
	checkoutSvc := service.NewCheckoutService(accountRepo, orderRepo, orderTxRepo, snapshotSvc, transactor, events, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		LedgerSvc:      ledgerSvc,
		CheckoutSvc:    checkoutSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
