package mailer

import (
	"context"
	"sync"
)

// MemorySender records messages instead of delivering them.
type MemorySender struct {
	mu   sync.Mutex
	sent []Message
	fail error
}

func NewMemorySender() *MemorySender { return &MemorySender{} }

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

// FailWith makes every later Send return err. A nil err restores delivery.
func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
