package transport

import (
	"context"
	"errors"
)

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("bus is closed")

// Message is a single broker record addressed to a durable queue.
type Message struct {
	Key     string
	Body    []byte
	Headers map[string]string
}

// Handler processes one message. Consume calls it sequentially, in queue order.
type Handler func(ctx context.Context, msg Message) error

// Bus is the broker connection shared by everything in a process.
//
// Publish is safe for concurrent use and returns once the broker has accepted
// the message. Consume blocks until ctx is cancelled; messages published while
// no consumer was attached stay buffered in the queue.
type Bus interface {
	DeclareQueues(ctx context.Context, queues ...string) error
	Publish(ctx context.Context, queue string, msg Message) error
	Consume(ctx context.Context, queue, group string, handler Handler) error
	Close() error
}

const (
	headerPattern       = "pattern"
	headerCorrelationID = "x-correlation-id"
	headerReplyTo       = "x-reply-to"
)

func headersFor(env Envelope) map[string]string {
	h := map[string]string{headerPattern: env.Pattern}
	if env.ID != "" {
		h[headerCorrelationID] = env.ID
	}
	if env.ReplyTo != "" {
		h[headerReplyTo] = env.ReplyTo
	}
	return h
}
