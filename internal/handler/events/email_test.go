package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"docvault/internal/app/email"
	"docvault/internal/contracts"
	"docvault/internal/infrastructure/mailer"
	inbox "docvault/internal/repository/inbox_repo/badger"
	"docvault/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	bus    *transport.MemoryBus
	client *transport.Client
	sender *mailer.MemorySender
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := inbox.Open("")
	require.NoError(t, err)

	sender := mailer.NewMemorySender()
	tm, err := mailer.NewTemplateMailer(sender)
	require.NoError(t, err)
	svc := email.NewEmailService(tm, inbox.NewInboxRepository(db, time.Hour), "https://app.example", logger)

	bus := transport.NewMemoryBus()
	server := transport.NewServer(bus, contracts.EmailQueue, "email-service", logger)
	RegisterEmailSubscribers(server, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); _ = server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		_ = db.Close()
	})

	return &harness{
		bus:    bus,
		client: transport.NewClient(bus, "replies.test", time.Second, logger),
		sender: sender,
	}
}

func (h *harness) waitForSent(t *testing.T, n int) []mailer.Message {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.sender.Sent()) >= n }, 2*time.Second, 5*time.Millisecond)
	return h.sender.Sent()
}

func TestEventsAreMailedInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventUserRegistered,
		contracts.UserRegisteredEvent{UserID: "u1", Email: "a@example.com", Token: "v"})
	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventPasswordResetRequested,
		contracts.PasswordResetRequestedEvent{UserID: "u1", Email: "a@example.com", Token: "r"})
	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventDocumentUploaded,
		contracts.DocumentUploadedEvent{UserID: "u1", FileID: "f1", Filename: "report.pdf", Email: "a@example.com"})

	sent := h.waitForSent(t, 3)
	require.Len(t, sent, 3)
	assert.Contains(t, sent[0].Text, "/verify-email?token=v")
	assert.Contains(t, sent[1].Text, "/reset-password?token=r")
	assert.Contains(t, sent[2].Text, "report.pdf")
}

func TestRedeliveredEventIsMailedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventUserRegistered,
		contracts.UserRegisteredEvent{UserID: "u1", Email: "a@example.com", Token: "v"})
	h.waitForSent(t, 1)

	// Publish the identical message again, as a broker redelivery would.
	original := h.bus.Published(contracts.EmailQueue)[0]
	require.NoError(t, h.bus.Publish(ctx, contracts.EmailQueue, original))

	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventDocumentUploaded,
		contracts.DocumentUploadedEvent{UserID: "u1", FileID: "f1", Filename: "x.pdf", Email: "a@example.com"})

	sent := h.waitForSent(t, 2)
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Text, "x.pdf")
}

func TestFailingEventDoesNotBlockTheQueue(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// No recipient: the handler fails and the next event is still processed.
	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventDocumentUploaded,
		contracts.DocumentUploadedEvent{UserID: "u1", FileID: "f1"})
	h.client.Emit(ctx, contracts.EmailQueue, contracts.EventUserRegistered,
		contracts.UserRegisteredEvent{UserID: "u2", Email: "b@example.com", Token: "v"})

	sent := h.waitForSent(t, 1)
	require.Len(t, sent, 1)
	assert.Equal(t, "b@example.com", sent[0].To)
}
