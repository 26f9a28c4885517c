package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"docvault/internal/app/email"
	"docvault/internal/config"
	"docvault/internal/contracts"
	event_handler "docvault/internal/handler/events"
	kafka_infra "docvault/internal/infrastructure/kafka"
	"docvault/internal/infrastructure/mailer"
	"docvault/internal/logger"
	badger_inbox_repo "docvault/internal/repository/inbox_repo/badger"
	"docvault/internal/transport"
)

func main() {
	cfg, err := config.LoadEmailConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New("email", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Email Service starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inboxDB, err := badger_inbox_repo.Open(cfg.InboxPath)
	if err != nil {
		appLogger.Fatal("Failed to open inbox store", zap.String("path", cfg.InboxPath), zap.Error(err))
	}
	defer func() {
		if err := inboxDB.Close(); err != nil {
			appLogger.Error("Error closing inbox store", zap.Error(err))
		}
	}()

	templates, err := mailer.NewTemplateMailer(mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, appLogger))
	if err != nil {
		appLogger.Fatal("Failed to load email templates", zap.Error(err))
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

	emailService := email.NewEmailService(
		templates,
		badger_inbox_repo.NewInboxRepository(inboxDB, cfg.InboxTTL),
		cfg.FrontendURL,
		appLogger,
	)

	server := transport.NewServer(bus, contracts.EmailQueue, "email-service", appLogger)
	event_handler.RegisterEmailSubscribers(server, emailService, appLogger.With(zap.String("component", "EmailEventHandler")))

	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		appLogger.Error("Email Service stopped with error", zap.Error(err))
		return
	}
	appLogger.Info("Email Service stopped.")
}
