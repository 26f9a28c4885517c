package user_repo

import (
	"context"

	"docvault/internal/domain"
)

// UserRepository is owned exclusively by the auth service.
// Lookups return domain.ErrUserNotFound when nothing matches and Create
// returns domain.ErrUserAlreadyExists on a duplicate email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Save(ctx context.Context, user *domain.User) error
	Remove(ctx context.Context, id string) error
}
