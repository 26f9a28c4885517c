package email

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"docvault/internal/contracts"
	"docvault/internal/infrastructure/mailer"
	"docvault/internal/repository/inbox_repo"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, template string, data mailer.TemplateData, to string) error
}

// EmailService turns emitted events into emails. Each method takes the
// event's message id; an id already recorded in the inbox is skipped so a
// redelivered event does not send a second email.
type EmailService interface {
	SendRegistrationEmail(ctx context.Context, messageID string, ev *contracts.UserRegisteredEvent) error
	SendPasswordResetEmail(ctx context.Context, messageID string, ev *contracts.PasswordResetRequestedEvent) error
	SendDocumentUploadedEmail(ctx context.Context, messageID string, ev *contracts.DocumentUploadedEvent) error
}

type emailService struct {
	mailer      Mailer
	inbox       inbox_repo.InboxRepository
	frontendURL string
	logger      *zap.Logger
}

func NewEmailService(m Mailer, inbox inbox_repo.InboxRepository, frontendURL string, logger *zap.Logger) EmailService {
	return &emailService{
		mailer:      m,
		inbox:       inbox,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

func (s *emailService) SendRegistrationEmail(ctx context.Context, messageID string, ev *contracts.UserRegisteredEvent) error {
	return s.deliver(ctx, messageID, contracts.EventUserRegistered, mailer.TemplateRegistration, ev.Email, mailer.TemplateData{
		Email: ev.Email,
		Link:  s.link("/verify-email", ev.Token),
	})
}

func (s *emailService) SendPasswordResetEmail(ctx context.Context, messageID string, ev *contracts.PasswordResetRequestedEvent) error {
	return s.deliver(ctx, messageID, contracts.EventPasswordResetRequested, mailer.TemplatePasswordReset, ev.Email, mailer.TemplateData{
		Email: ev.Email,
		Link:  s.link("/reset-password", ev.Token),
	})
}

func (s *emailService) SendDocumentUploadedEmail(ctx context.Context, messageID string, ev *contracts.DocumentUploadedEvent) error {
	return s.deliver(ctx, messageID, contracts.EventDocumentUploaded, mailer.TemplateDocumentUpload, ev.Email, mailer.TemplateData{
		Email:    ev.Email,
		Filename: ev.Filename,
		Link:     s.link("/dashboard", ""),
	})
}

func (s *emailService) link(path, token string) string {
	if token == "" {
		return s.frontendURL + path
	}
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func (s *emailService) deliver(ctx context.Context, messageID, pattern, template, to string, data mailer.TemplateData) error {
	log := s.logger.With(zap.String("message_id", messageID), zap.String("pattern", pattern))
	if to == "" {
		return errors.New("event has no recipient email")
	}

	if messageID != "" {
		done, err := s.inbox.IsProcessed(ctx, messageID)
		if err != nil {
			// Sending twice is acceptable; dropping the email is not.
			log.Warn("Inbox lookup failed, sending anyway", zap.Error(err))
		} else if done {
			log.Info("Skipping duplicate event")
			return nil
		}
	}

	if err := s.mailer.Send(ctx, template, data, to); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	log.Info("Email sent", zap.String("template", template))

	if messageID != "" {
		if err := s.inbox.MarkProcessed(ctx, messageID, pattern); err != nil && !errors.Is(err, inbox_repo.ErrMessageAlreadyProcessed) {
			log.Error("Failed to record processed event", zap.Error(err))
		}
	}
	return nil
}
