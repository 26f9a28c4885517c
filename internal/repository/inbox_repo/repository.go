package inbox_repo

import (
	"context"
	"errors"
	"time"
)

// InboxRepository records which emitted events have already been handled so
// that a redelivered event does not repeat its side effect.
type InboxRepository interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID, pattern string) error
}

var ErrMessageAlreadyProcessed = errors.New("inbox message already processed")

type Entry struct {
	MessageID   string    `json:"messageId"`
	Pattern     string    `json:"pattern"`
	ProcessedAt time.Time `json:"processedAt"`
}
