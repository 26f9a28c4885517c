package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type storedObject struct {
	body        []byte
	contentType string
}

// MemoryStorage is an in-process ObjectStorage. URLs it hands out are not
// fetchable; they only carry the key and expiry.
type MemoryStorage struct {
	bucket string
	now    func() time.Time

	mu      sync.RWMutex
	objects map[string]storedObject
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{bucket: bucket, now: time.Now, objects: make(map[string]storedObject)}
}

func (s *MemoryStorage) EnsureBucket(context.Context) error { return nil }

func (s *MemoryStorage) Put(ctx context.Context, key string, body []byte, contentType string) (Object, error) {
	s.mu.Lock()
	s.objects[key] = storedObject{body: append([]byte(nil), body...), contentType: contentType}
	s.mu.Unlock()

	u, err := s.SignedURL(ctx, key, time.Hour)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: u}, nil
}

func (s *MemoryStorage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", s.bucket, key, s.now().Add(ttl).Unix()), nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns the stored bytes of key.
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o.body, ok
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
