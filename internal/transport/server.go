package transport

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// HandlerFunc answers a request. The returned value becomes the reply body.
// Returning a *Error sends that error to the caller; any other error is logged
// and replaced by a generic Internal error.
type HandlerFunc func(ctx context.Context, req Envelope) (any, error)

// EventHandlerFunc consumes an emitted event. Errors are logged only.
type EventHandlerFunc func(ctx context.Context, event Envelope) error

type serverOptions struct {
	maxConcurrent  int64
	requestTimeout time.Duration
	eventTimeout   time.Duration
	replyTimeout   time.Duration
}

type ServerOption func(*serverOptions)

// WithMaxConcurrent bounds how many requests are handled at once.
func WithMaxConcurrent(n int64) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

func WithRequestTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

func WithEventTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		if d > 0 {
			o.eventTimeout = d
		}
	}
}

// Server is the per-process demultiplexer for one service queue. Routes are
// registered explicitly before Serve is called.
//
// Requests are handled concurrently. Events are handled one at a time in queue
// order; a failing or panicking event handler is logged and the next event is
// processed.
type Server struct {
	bus    Bus
	queue  string
	group  string
	logger *zap.Logger
	opts   serverOptions

	routes map[string]HandlerFunc
	events map[string]EventHandlerFunc

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewServer(bus Bus, queue, group string, logger *zap.Logger, opts ...ServerOption) *Server {
	o := serverOptions{
		maxConcurrent:  64,
		requestTimeout: 60 * time.Second,
		eventTimeout:   30 * time.Second,
		replyTimeout:   DefaultEmitTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		bus:    bus,
		queue:  queue,
		group:  group,
		logger: logger,
		opts:   o,
		routes: make(map[string]HandlerFunc),
		events: make(map[string]EventHandlerFunc),
		sem:    semaphore.NewWeighted(o.maxConcurrent),
	}
}

// Handle registers a request–reply handler. Registering a pattern twice panics.
func (s *Server) Handle(pattern string, h HandlerFunc) {
	if _, exists := s.routes[pattern]; exists {
		panic(fmt.Sprintf("transport: duplicate handler for pattern %q", pattern))
	}
	s.routes[pattern] = h
}

// HandleEvent registers an event handler. Registering a pattern twice panics.
func (s *Server) HandleEvent(pattern string, h EventHandlerFunc) {
	if _, exists := s.events[pattern]; exists {
		panic(fmt.Sprintf("transport: duplicate event handler for pattern %q", pattern))
	}
	s.events[pattern] = h
}

// Patterns lists every registered request and event pattern, sorted.
func (s *Server) Patterns() []string {
	out := make([]string, 0, len(s.routes)+len(s.events))
	for p := range s.routes {
		out = append(out, p)
	}
	for p := range s.events {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Serve consumes the service queue until ctx is cancelled and then waits for
// in-flight requests to finish.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("RPC server consuming",
		zap.String("queue", s.queue),
		zap.String("group", s.group),
		zap.Strings("patterns", s.Patterns()))

	err := s.bus.Consume(ctx, s.queue, s.group, s.dispatch)
	s.wg.Wait()
	return err
}

func (s *Server) dispatch(ctx context.Context, msg Message) error {
	env, err := unmarshalEnvelope(msg.Body)
	if err != nil {
		s.logger.Error("Dropping malformed message", zap.String("queue", s.queue), zap.Error(err))
		return nil
	}

	if env.IsRequest() {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.handleRequest(context.WithoutCancel(ctx), env)
		}()
		return nil
	}

	if env.IsEvent() {
		s.handleEvent(ctx, env)
		return nil
	}

	s.logger.Warn("Dropping message that is neither a request nor an event",
		zap.String("pattern", env.Pattern),
		zap.String("correlation_id", env.ID))
	return nil
}

func (s *Server) handleRequest(ctx context.Context, req Envelope) {
	log := s.logger.With(zap.String("pattern", req.Pattern), zap.String("correlation_id", req.ID))

	reqCtx, cancel := context.WithTimeout(ctx, s.opts.requestTimeout)
	defer cancel()

	reply := Envelope{Pattern: req.Pattern, ID: req.ID}

	h, ok := s.routes[req.Pattern]
	if !ok {
		log.Warn("No handler registered for pattern")
		reply.Err = NotFound(fmt.Sprintf("There is no matching message handler defined for pattern %q", req.Pattern))
	} else {
		result, err := s.invoke(reqCtx, h, req)
		if err != nil {
			reply.Err = s.toError(log, err)
		} else if data, err := encodePayload(result); err != nil {
			log.Error("Failed to encode reply payload", zap.Error(err))
			reply.Err = Internal()
		} else {
			reply.Data = data
		}
	}

	body, err := marshalEnvelope(reply)
	if err != nil {
		log.Error("Failed to encode reply envelope", zap.Error(err))
		return
	}

	pubCtx, cancelPub := context.WithTimeout(ctx, s.opts.replyTimeout)
	defer cancelPub()
	if err := s.bus.Publish(pubCtx, req.ReplyTo, Message{Key: req.Pattern, Body: body, Headers: headersFor(reply)}); err != nil {
		log.Error("Failed to publish reply", zap.String("reply_to", req.ReplyTo), zap.Error(err))
		return
	}
	log.Debug("Reply sent", zap.Bool("error", reply.Err != nil))
}

func (s *Server) invoke(ctx context.Context, h HandlerFunc, req Envelope) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in request handler",
				zap.String("pattern", req.Pattern),
				zap.String("correlation_id", req.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			result, err = nil, Internal()
		}
	}()
	return h(ctx, req)
}

func (s *Server) toError(log *zap.Logger, err error) *Error {
	if rpcErr, ok := AsError(err); ok {
		log.Info("Request failed", zap.String("kind", string(rpcErr.Kind)), zap.String("message", rpcErr.Message))
		return rpcErr.normalize()
	}
	log.Error("Request failed with unexpected error", zap.Error(err))
	return Internal()
}

func (s *Server) handleEvent(ctx context.Context, event Envelope) {
	log := s.logger.With(zap.String("pattern", event.Pattern), zap.String("message_id", event.MessageID))

	h, ok := s.events[event.Pattern]
	if !ok {
		log.Warn("No event handler registered for pattern")
		return
	}

	evCtx, cancel := context.WithTimeout(ctx, s.opts.eventTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered panic in event handler", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	if err := h(evCtx, event); err != nil {
		log.Error("Event handler failed", zap.Error(err))
		return
	}
	log.Debug("Event handled")
}
