package file_repo

import (
	"context"

	"docvault/internal/domain"
)

// FileRepository is owned exclusively by the file service. Every read and
// delete is scoped to the owning user; a file that exists but belongs to
// someone else is reported as domain.ErrFileNotFound.
type FileRepository interface {
	FindByID(ctx context.Context, id, userID string) (*domain.File, error)
	ListByUser(ctx context.Context, userID string) ([]domain.File, error)
	Create(ctx context.Context, file *domain.File) error
	Remove(ctx context.Context, id, userID string) error
}
