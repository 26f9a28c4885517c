package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"docvault/internal/repository/inbox_repo"

	badgerdb "github.com/dgraph-io/badger/v4"
)

const keyPrefix = "inbox:"

// Open opens the badger database at path. An empty path opens an in-memory
// database.
func Open(path string) (*badgerdb.DB, error) {
	var opts badgerdb.Options
	if path == "" {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
		opts = badgerdb.DefaultOptions(path)
	}
	db, err := badgerdb.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return db, nil
}

// InboxRepository stores processed message ids with a TTL, so the table stays
// bounded while still covering any realistic redelivery window.
type InboxRepository struct {
	db  *badgerdb.DB
	ttl time.Duration
}

func NewInboxRepository(db *badgerdb.DB, ttl time.Duration) *InboxRepository {
	return &InboxRepository{db: db, ttl: ttl}
}

func key(messageID string) []byte {
	return []byte(keyPrefix + messageID)
}

func (r *InboxRepository) IsProcessed(_ context.Context, messageID string) (bool, error) {
	err := r.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key(messageID))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badgerdb.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to read inbox entry %s: %w", messageID, err)
	}
}

func (r *InboxRepository) MarkProcessed(_ context.Context, messageID, pattern string) error {
	data, err := json.Marshal(inbox_repo.Entry{
		MessageID:   messageID,
		Pattern:     pattern,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode inbox entry: %w", err)
	}

	err = r.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(key(messageID)); err == nil {
			return inbox_repo.ErrMessageAlreadyProcessed
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		entry := badgerdb.NewEntry(key(messageID), data)
		if r.ttl > 0 {
			entry = entry.WithTTL(r.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		if errors.Is(err, inbox_repo.ErrMessageAlreadyProcessed) {
			return err
		}
		return fmt.Errorf("failed to write inbox entry %s: %w", messageID, err)
	}
	return nil
}
