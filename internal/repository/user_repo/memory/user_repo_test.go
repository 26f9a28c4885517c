package memory

import (
	"context"
	"testing"

	"docvault/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	u, err := domain.NewUser("u1", "alice@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, u))

	dup, err := domain.NewUser("u2", "ALICE@example.com", "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrUserAlreadyExists)

	found, err := repo.FindByEmail(ctx, " Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	found.MarkEmailVerified()
	require.NoError(t, repo.Save(ctx, found))

	byID, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, byID.IsEmailVerified)

	require.NoError(t, repo.Remove(ctx, "u1"))
	_, err = repo.FindByID(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = repo.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, "u1"), domain.ErrUserNotFound)
	assert.ErrorIs(t, repo.Save(ctx, byID), domain.ErrUserNotFound)
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	u, _ := domain.NewUser("u1", "bob@example.com", "hash")
	require.NoError(t, repo.Create(ctx, u))

	found, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	found.PasswordHash = "mutated"

	again, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hash", again.PasswordHash)
}
