package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"docvault/internal/contracts"
	"docvault/internal/infrastructure/mailer"
	inbox "docvault/internal/repository/inbox_repo/badger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) (EmailService, *mailer.MemorySender) {
	t.Helper()
	db, err := inbox.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sender := mailer.NewMemorySender()
	tm, err := mailer.NewTemplateMailer(sender)
	require.NoError(t, err)

	svc := NewEmailService(tm, inbox.NewInboxRepository(db, time.Hour), "https://app.example/", zaptest.NewLogger(t))
	return svc, sender
}

func TestSendRegistrationEmail(t *testing.T) {
	svc, sender := newTestService(t)

	err := svc.SendRegistrationEmail(context.Background(), "m1", &contracts.UserRegisteredEvent{
		UserID: "u1", Email: "alice@example.com", Token: "tok+en",
	})
	require.NoError(t, err)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, "https://app.example/verify-email?token=tok%2Ben")
}

func TestDuplicateEventSendsOnce(t *testing.T) {
	svc, sender := newTestService(t)
	ev := &contracts.PasswordResetRequestedEvent{UserID: "u1", Email: "alice@example.com", Token: "t"}

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "m1", ev))
	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "m1", ev))
	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "m2", ev))

	sent := sender.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "https://app.example/reset-password?token=t")
}

func TestFailedSendIsRetriedOnRedelivery(t *testing.T) {
	svc, sender := newTestService(t)
	ev := &contracts.DocumentUploadedEvent{UserID: "u1", FileID: "f1", Filename: "report.pdf", Email: "alice@example.com"}

	sender.FailWith(errors.New("smtp down"))
	require.Error(t, svc.SendDocumentUploadedEmail(context.Background(), "m1", ev))

	sender.FailWith(nil)
	require.NoError(t, svc.SendDocumentUploadedEmail(context.Background(), "m1", ev))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "report.pdf")
	assert.Contains(t, sent[0].Text, "https://app.example/dashboard")
}

func TestMissingRecipient(t *testing.T) {
	svc, sender := newTestService(t)
	err := svc.SendDocumentUploadedEmail(context.Background(), "m1", &contracts.DocumentUploadedEvent{FileID: "f1"})
	require.Error(t, err)
	assert.Empty(t, sender.Sent())
}
