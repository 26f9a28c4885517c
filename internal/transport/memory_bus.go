package transport

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus. Each queue is an append-only log with one
// read position per consumer group, which gives the same buffering and
// redelivery-free FIFO behaviour as a single-partition topic.
type MemoryBus struct {
	mu     sync.Mutex
	queues map[string]*memoryQueue
	closed bool
}

type memoryQueue struct {
	mu       sync.Mutex
	messages []Message
	offsets  map[string]int
	notify   chan struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{queues: make(map[string]*memoryQueue)}
}

func (b *MemoryBus) queue(name string) *memoryQueue {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = &memoryQueue{offsets: make(map[string]int), notify: make(chan struct{})}
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBus) DeclareQueues(_ context.Context, queues ...string) error {
	for _, name := range queues {
		b.queue(name)
	}
	return nil
}

func (b *MemoryBus) Publish(ctx context.Context, queue string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	q := b.queue(queue)
	q.mu.Lock()
	q.messages = append(q.messages, msg)
	close(q.notify)
	q.notify = make(chan struct{})
	q.mu.Unlock()
	return nil
}

func (b *MemoryBus) Consume(ctx context.Context, queue, group string, handler Handler) error {
	q := b.queue(queue)
	for {
		q.mu.Lock()
		offset := q.offsets[group]
		if offset < len(q.messages) {
			msg := q.messages[offset]
			q.offsets[group] = offset + 1
			q.mu.Unlock()
			_ = handler(ctx, msg)
			continue
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-wait:
		}
	}
}

// Pending returns how many messages group has not consumed yet on queue.
func (b *MemoryBus) Pending(queue, group string) int {
	q := b.queue(queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages) - q.offsets[group]
}

// Published returns a copy of every message ever published to queue.
func (b *MemoryBus) Published(queue string) []Message {
	q := b.queue(queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.messages))
	copy(out, q.messages)
	return out
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
