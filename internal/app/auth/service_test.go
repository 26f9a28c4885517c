package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"docvault/internal/contracts"
	"docvault/internal/domain"
	"docvault/internal/infrastructure/tokens"
	"docvault/internal/repository/user_repo/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type emitted struct {
	pattern string
	payload any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(_ context.Context, pattern string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{pattern: pattern, payload: payload})
}

func (r *recordingEmitter) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.events...)
}

type fixture struct {
	svc    AuthService
	users  *memory.UserRepository
	tokens *tokens.Manager
	emails *recordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  memory.NewUserRepository(),
		tokens: tokens.NewManager("secret", time.Hour, 24*time.Hour, time.Hour),
		emails: &recordingEmitter{},
	}
	f.svc = NewAuthService(f.users, f.tokens, f.emails, zaptest.NewLogger(t), WithBcryptCost(bcrypt.MinCost))
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *contracts.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), &contracts.RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	u := f.register(t, "Alice@Example.com", "Secret1")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsEmailVerified)

	events := f.emails.all()
	require.Len(t, events, 1)
	assert.Equal(t, contracts.EventUserRegistered, events[0].pattern)
	ev := events[0].payload.(contracts.UserRegisteredEvent)
	assert.Equal(t, u.ID, ev.UserID)

	claims, err := f.tokens.Parse(ev.Token, tokens.PurposeVerifyEmail)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
}

func TestRegister_DuplicateIsAlwaysConflict(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "Secret1")

	for i := 0; i < 3; i++ {
		_, err := f.svc.Register(context.Background(), &contracts.RegisterRequest{Email: "ALICE@example.com", Password: "Other1x"})
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	}
	assert.Len(t, f.emails.all(), 1)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), &contracts.RegisterRequest{Email: "alice@example.com", Password: "weak"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.emails.all())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice@example.com", "Secret1")

	resp, err := f.svc.Login(context.Background(), &contracts.LoginRequest{Email: "alice@example.com", Password: "Secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)

	claims, err := f.tokens.Parse(resp.AccessToken, tokens.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
}

func TestLogin_WrongPasswordIssuesNoToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "Secret1")

	resp, err := f.svc.Login(context.Background(), &contracts.LoginRequest{Email: "alice@example.com", Password: "Wrong1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, resp)

	_, err = f.svc.Login(context.Background(), &contracts.LoginRequest{Email: "nobody@example.com", Password: "Secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice@example.com", "Secret1")
	token := f.emails.all()[0].payload.(contracts.UserRegisteredEvent).Token

	require.NoError(t, f.svc.VerifyEmail(context.Background(), token))
	profile, err := f.svc.GetUserProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsEmailVerified)

	// Verifying twice is harmless.
	require.NoError(t, f.svc.VerifyEmail(context.Background(), token))

	assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), "garbage"), domain.ErrInvalidToken)
}

func TestVerifyEmail_RejectsOtherPurposes(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice@example.com", "Secret1")
	access, err := f.tokens.Issue(tokens.PurposeAccess, u.ID, u.Email)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), access), domain.ErrInvalidToken)
}

func TestRequestPasswordReset_UnknownEmailEmitsNothing(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), &contracts.PasswordResetRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Empty(t, f.emails.all())
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "Secret1")
	ctx := context.Background()

	require.NoError(t, f.svc.RequestPasswordReset(ctx, &contracts.PasswordResetRequest{Email: "alice@example.com"}))
	events := f.emails.all()
	require.Len(t, events, 2)
	assert.Equal(t, contracts.EventPasswordResetRequested, events[1].pattern)
	resetToken := events[1].payload.(contracts.PasswordResetRequestedEvent).Token

	verifyToken := events[0].payload.(contracts.UserRegisteredEvent).Token
	err := f.svc.ResetPassword(ctx, &contracts.ResetPasswordRequest{Token: verifyToken, NewPassword: "NewSecret2"})
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "verification tokens cannot reset passwords")

	require.NoError(t, f.svc.ResetPassword(ctx, &contracts.ResetPasswordRequest{Token: resetToken, NewPassword: "NewSecret2"}))

	_, err = f.svc.Login(ctx, &contracts.LoginRequest{Email: "alice@example.com", Password: "Secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, &contracts.LoginRequest{Email: "alice@example.com", Password: "NewSecret2"})
	require.NoError(t, err)
}

func TestGetUserProfile_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetUserProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
