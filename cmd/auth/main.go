package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docvault/internal/app/auth"
	"docvault/internal/config"
	"docvault/internal/contracts"
	rpc_handler "docvault/internal/handler/rpc"
	"docvault/internal/infrastructure/database"
	kafka_infra "docvault/internal/infrastructure/kafka"
	"docvault/internal/infrastructure/tokens"
	"docvault/internal/logger"
	postgres_user_repo "docvault/internal/repository/user_repo/postgres"
	"docvault/internal/transport"
)

func main() {
	cfg, err := config.LoadAuthConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New("auth", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Auth Service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Waiting for database to be available...")
	db, err := database.Connect(ctx, cfg.DB, 10, 5*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	if err := database.Migrate(cfg.DB.MigrationConnectionString(), database.SchemaAuth, appLogger); err != nil {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	producer := kafka_infra.NewProducer(cfg.Kafka.Brokers(), 10*time.Second, appLogger)
	bus := transport.NewKafkaBus(cfg.Kafka.Brokers(), cfg.Kafka.ReplicationFactor, producer, appLogger)
	defer func() {
		// Closes the consumers and the producer.
		if err := bus.Close(); err != nil {
			appLogger.Error("Error closing message bus", zap.Error(err))
		}
	}()
	if err := bus.DeclareQueues(ctx, contracts.Queues()...); err != nil {
		appLogger.Fatal("Failed to declare queues", zap.Error(err))
	}

	// The auth service only emits, so its client never needs a reply queue.
	client := transport.NewClient(bus, cfg.RPC.ReplyQueue, cfg.RPC.Timeout, appLogger)

	tokenManager := tokens.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.VerifyTokenTTL, cfg.JWT.ResetTokenTTL)
	userRepository := postgres_user_repo.NewUserRepository(db)
	authService := auth.NewAuthService(userRepository, tokenManager, client.Proxy(contracts.EmailQueue), appLogger)

	server := transport.NewServer(bus, contracts.AuthQueue, "auth-service", appLogger)
	rpc_handler.RegisterAuthRoutes(server, authService, appLogger.With(zap.String("component", "AuthRPCHandler")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		appLogger.Error("Auth Service stopped with error", zap.Error(err))
		return
	}
	appLogger.Info("Auth Service stopped.")
}
