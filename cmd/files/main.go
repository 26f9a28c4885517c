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

	"docvault/internal/app/files"
	"docvault/internal/config"
	"docvault/internal/contracts"
	rpc_handler "docvault/internal/handler/rpc"
	"docvault/internal/infrastructure/database"
	kafka_infra "docvault/internal/infrastructure/kafka"
	"docvault/internal/infrastructure/storage"
	"docvault/internal/logger"
	postgres_file_repo "docvault/internal/repository/file_repo/postgres"
	"docvault/internal/transport"
)

func main() {
	cfg, err := config.LoadFilesConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New("files", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("File Service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DB, 10, 5*time.Second, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(cfg.DB.MigrationConnectionString(), database.SchemaFiles, appLogger); err != nil {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	objects, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		UseSSL:          cfg.S3.UseSSL,
		URLExpiry:       cfg.S3.URLExpiry,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create object storage client", zap.Error(err))
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		appLogger.Fatal("Failed to ensure storage bucket", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
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

	client := transport.NewClient(bus, cfg.RPC.ReplyQueue, cfg.RPC.Timeout, appLogger)

	fileRepository := postgres_file_repo.NewFileRepository(db)
	fileService := files.NewFileService(fileRepository, objects, client.Proxy(contracts.EmailQueue), cfg.S3.URLExpiry, appLogger)

	// Uploads carry the whole document, so they get the longer handler budget.
	server := transport.NewServer(bus, contracts.FileQueue, "file-service", appLogger,
		transport.WithRequestTimeout(cfg.RPC.UploadTimeout))
	rpc_handler.RegisterFileRoutes(server, fileService, appLogger.With(zap.String("component", "FileRPCHandler")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		appLogger.Error("File Service stopped with error", zap.Error(err))
		return
	}
	appLogger.Info("File Service stopped.")
}
