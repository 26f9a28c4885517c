package tokens

import (
	"testing"
	"time"

	"docvault/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("test-secret", time.Hour, 24*time.Hour, time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager()

	token, err := m.Issue(PurposeAccess, "user-1", "a@example.com")
	require.NoError(t, err)

	claims, err := m.Parse(token, PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestParse_WrongPurpose(t *testing.T) {
	m := newTestManager()
	token, err := m.Issue(PurposeVerifyEmail, "user-1", "a@example.com")
	require.NoError(t, err)

	_, err = m.Parse(token, PurposeResetPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = m.Parse(token, PurposeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	m := newTestManager()
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	token, err := m.Issue(PurposeResetPassword, "user-1", "a@example.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token, PurposeResetPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestParse_WrongSecretAndGarbage(t *testing.T) {
	token, err := newTestManager().Issue(PurposeAccess, "user-1", "a@example.com")
	require.NoError(t, err)

	other := NewManager("other-secret", time.Hour, time.Hour, time.Hour)
	_, err = other.Parse(token, PurposeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = other.Parse("not-a-jwt", PurposeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestIssue_UnknownPurpose(t *testing.T) {
	_, err := newTestManager().Issue(Purpose("admin"), "u", "e")
	assert.Error(t, err)
}
