package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"docvault/internal/util"

	"go.uber.org/zap"
)

const (
	DefaultCallTimeout = 10 * time.Second
	DefaultEmitTimeout = 5 * time.Second
)

type callOptions struct {
	timeout time.Duration
}

type CallOption func(*callOptions)

// WithTimeout overrides the client's default call deadline.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Client issues request–reply calls and emits events. One Client is shared by
// the whole process; it owns a private reply queue on which replies for every
// in-flight call arrive and are matched back by correlation id.
type Client struct {
	bus         Bus
	replyQueue  string
	timeout     time.Duration
	emitTimeout time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	pending map[string]chan Envelope
}

func NewClient(bus Bus, replyQueue string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{
		bus:         bus,
		replyQueue:  replyQueue,
		timeout:     timeout,
		emitTimeout: DefaultEmitTimeout,
		logger:      logger,
		pending:     make(map[string]chan Envelope),
	}
}

// ReplyQueue is the queue this client receives replies on.
func (c *Client) ReplyQueue() string { return c.replyQueue }

// Listen consumes the reply queue until ctx is cancelled.
func (c *Client) Listen(ctx context.Context) error {
	c.logger.Info("RPC client listening for replies", zap.String("reply_queue", c.replyQueue))
	return c.bus.Consume(ctx, c.replyQueue, c.replyQueue, c.handleReply)
}

func (c *Client) handleReply(_ context.Context, msg Message) error {
	env, err := unmarshalEnvelope(msg.Body)
	if err != nil {
		c.logger.Warn("Dropping malformed reply", zap.Error(err))
		return nil
	}
	if env.ID == "" {
		c.logger.Warn("Dropping reply without correlation id", zap.String("pattern", env.Pattern))
		return nil
	}

	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("Dropping late or unknown reply",
			zap.String("correlation_id", env.ID),
			zap.String("pattern", env.Pattern))
		return nil
	}
	ch <- env
	return nil
}

// forget removes the pending entry and reports whether the caller still owned
// it. A false result means a reply already claimed the entry and is (or is
// about to be) waiting in the result channel.
func (c *Client) forget(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// Pending returns the number of calls awaiting a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call publishes payload under pattern to queue and waits for the correlated
// reply. On success the reply body is decoded into out (which may be nil).
//
// The returned error is a *Error when the remote side failed, a *TimeoutError
// when the deadline elapsed first, and a *TransportError otherwise. A timeout
// does not mean the remote operation did not happen.
func (c *Client) Call(ctx context.Context, queue, pattern string, payload, out any, opts ...CallOption) error {
	o := callOptions{timeout: c.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := encodePayload(payload)
	if err != nil {
		return &TransportError{Op: "encode", Pattern: pattern, Err: err}
	}

	id := util.GenerateUUID()
	env := Envelope{Pattern: pattern, ID: id, ReplyTo: c.replyQueue, Data: data}
	body, err := marshalEnvelope(env)
	if err != nil {
		return &TransportError{Op: "encode", Pattern: pattern, CorrelationID: id, Err: err}
	}

	result := make(chan Envelope, 1)
	c.mu.Lock()
	c.pending[id] = result
	c.mu.Unlock()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	if err := c.bus.Publish(ctx, queue, Message{Key: pattern, Body: body, Headers: headersFor(env)}); err != nil {
		c.forget(id)
		c.logger.Error("Failed to publish RPC request",
			zap.String("pattern", pattern),
			zap.String("queue", queue),
			zap.String("correlation_id", id),
			zap.Error(err))
		return &TransportError{Op: "publish", Pattern: pattern, CorrelationID: id, Err: err}
	}

	select {
	case reply := <-result:
		return c.resolve(reply, out)
	case <-timer.C:
		if c.forget(id) {
			c.logger.Warn("RPC call timed out",
				zap.String("pattern", pattern),
				zap.String("queue", queue),
				zap.String("correlation_id", id),
				zap.Duration("timeout", o.timeout))
			return &TimeoutError{Pattern: pattern, CorrelationID: id}
		}
		return c.resolve(<-result, out)
	case <-ctx.Done():
		if c.forget(id) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &TimeoutError{Pattern: pattern, CorrelationID: id}
			}
			return &TransportError{Op: "await", Pattern: pattern, CorrelationID: id, Err: ctx.Err()}
		}
		return c.resolve(<-result, out)
	}
}

func (c *Client) resolve(reply Envelope, out any) error {
	if reply.Err != nil {
		return reply.Err.normalize()
	}
	if err := reply.Decode(out); err != nil {
		return &TransportError{Op: "decode", Pattern: reply.Pattern, CorrelationID: reply.ID, Err: err}
	}
	return nil
}

// Emit publishes a fire-and-forget event. It returns once the broker accepted
// the message. Failures are logged and never reported to the caller, so a
// notification problem cannot fail the operation that triggered it.
func (c *Client) Emit(ctx context.Context, queue, pattern string, payload any) {
	log := c.logger.With(zap.String("pattern", pattern), zap.String("queue", queue))

	data, err := encodePayload(payload)
	if err != nil {
		log.Error("Failed to encode event payload", zap.Error(err))
		return
	}
	env := Envelope{Pattern: pattern, MessageID: util.GenerateUUID(), Data: data}
	body, err := marshalEnvelope(env)
	if err != nil {
		log.Error("Failed to encode event envelope", zap.Error(err))
		return
	}

	emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.emitTimeout)
	defer cancel()

	if err := c.bus.Publish(emitCtx, queue, Message{Key: pattern, Body: body, Headers: headersFor(env)}); err != nil {
		log.Error("Failed to emit event", zap.String("message_id", env.MessageID), zap.Error(err))
		return
	}
	log.Debug("Event emitted", zap.String("message_id", env.MessageID))
}

// Proxy binds the client to one target queue.
func (c *Client) Proxy(queue string) *ClientProxy {
	return &ClientProxy{client: c, queue: queue}
}

// ClientProxy addresses a single downstream service.
type ClientProxy struct {
	client *Client
	queue  string
}

func (p *ClientProxy) Queue() string { return p.queue }

func (p *ClientProxy) Send(ctx context.Context, pattern string, payload, out any, opts ...CallOption) error {
	return p.client.Call(ctx, p.queue, pattern, payload, out, opts...)
}

func (p *ClientProxy) Emit(ctx context.Context, pattern string, payload any) {
	p.client.Emit(ctx, p.queue, pattern, payload)
}
