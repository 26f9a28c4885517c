package events

import (
	"context"

	"docvault/internal/app/email"
	"docvault/internal/contracts"
	"docvault/internal/transport"

	"go.uber.org/zap"
)

// RegisterEmailSubscribers binds the email service to every event it sends
// mail for. Failures are returned to the server, which logs them and moves on
// to the next event.
func RegisterEmailSubscribers(server *transport.Server, svc email.EmailService, logger *zap.Logger) {
	server.HandleEvent(contracts.EventUserRegistered, func(ctx context.Context, ev transport.Envelope) error {
		var payload contracts.UserRegisteredEvent
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		logger.Debug("Handling user_registered", zap.String("user_id", payload.UserID))
		return svc.SendRegistrationEmail(ctx, ev.MessageID, &payload)
	})

	server.HandleEvent(contracts.EventPasswordResetRequested, func(ctx context.Context, ev transport.Envelope) error {
		var payload contracts.PasswordResetRequestedEvent
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		logger.Debug("Handling password_reset_requested", zap.String("user_id", payload.UserID))
		return svc.SendPasswordResetEmail(ctx, ev.MessageID, &payload)
	})

	server.HandleEvent(contracts.EventDocumentUploaded, func(ctx context.Context, ev transport.Envelope) error {
		var payload contracts.DocumentUploadedEvent
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		logger.Debug("Handling document_uploaded",
			zap.String("user_id", payload.UserID),
			zap.String("file_id", payload.FileID))
		return svc.SendDocumentUploadedEmail(ctx, ev.MessageID, &payload)
	})
}
