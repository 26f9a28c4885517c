package memory

import (
	"context"
	"sort"
	"sync"

	"docvault/internal/domain"
)

type FileRepository struct {
	mu    sync.RWMutex
	files map[string]domain.File
}

func NewFileRepository() *FileRepository {
	return &FileRepository{files: make(map[string]domain.File)}
}

func (r *FileRepository) FindByID(_ context.Context, id, userID string) (*domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	if !ok || f.UserID != userID {
		return nil, domain.ErrFileNotFound
	}
	return &f, nil
}

func (r *FileRepository) ListByUser(_ context.Context, userID string) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.File{}
	for _, f := range r.files {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (r *FileRepository) Create(_ context.Context, f *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.ID] = *f
	return nil
}

func (r *FileRepository) Remove(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.UserID != userID {
		return domain.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

// Len reports how many records are stored.
func (r *FileRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}
