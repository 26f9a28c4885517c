package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docvault/internal/config"
	"docvault/internal/contracts"
	gateway_http "docvault/internal/handler/http/gateway"
	kafka_infra "docvault/internal/infrastructure/kafka"
	"docvault/internal/infrastructure/tokens"
	"docvault/internal/logger"
	"docvault/internal/transport"
)

func main() {
	cfg, err := config.LoadGatewayConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New("gateway", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("API Gateway starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka_infra.NewProducer(cfg.Kafka.Brokers(), 10*time.Second, appLogger)
	bus := transport.NewKafkaBus(cfg.Kafka.Brokers(), cfg.Kafka.ReplicationFactor, producer, appLogger)
	defer func() {
		// Closes the consumers and the producer.
		if err := bus.Close(); err != nil {
			appLogger.Error("Error closing message bus", zap.Error(err))
		}
	}()

	queues := append(contracts.Queues(), cfg.RPC.ReplyQueue)
	if err := bus.DeclareQueues(ctx, queues...); err != nil {
		appLogger.Fatal("Failed to declare queues", zap.Error(err))
	}

	client := transport.NewClient(bus, cfg.RPC.ReplyQueue, cfg.RPC.Timeout, appLogger)

	// Only access tokens are checked here; the other TTLs are unused.
	tokenManager := tokens.NewManager(cfg.JWTSecret, 0, 0, 0)

	router := gateway_http.NewRouter(gateway_http.Config{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		UploadTimeout:  cfg.RPC.UploadTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, client.Proxy(contracts.AuthQueue), client.Proxy(contracts.FileQueue), tokenManager,
		appLogger.With(zap.String("component", "GatewayHTTPHandler")))

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RPC.UploadTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Listen(gctx) })
	g.Go(func() error {
		appLogger.Info("API Gateway listening", zap.String("address", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down API Gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		appLogger.Error("API Gateway stopped with error", zap.Error(err))
		return
	}
	appLogger.Info("API Gateway stopped.")
}
