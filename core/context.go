package core

import (
	"context"
	"fmt"
	"sync"
)

// Context is handed to a Processor for every message. It wraps the incoming
// message, provides deserialization via Bind and lets the processor
// republish the message elsewhere.
type Context interface {
	// Context returns the underlying context.Context.
	Context() context.Context

	// SetContext replaces the underlying context.Context.
	// Useful for middleware that enriches the context with values or deadlines.
	SetContext(ctx context.Context)

	// Message returns the raw underlying Message.
	Message() Message

	// Queue returns the queue this message was received on.
	Queue() string

	// Key returns the message key.
	Key() []byte

	// Value returns the raw message body.
	Value() []byte

	// Property returns a single message property, or "" when absent.
	Property(name string) string

	// Bind deserializes the message body into v using the router's Binder.
	Bind(v any) error

	// Republish sends the current message to a different queue.
	// Useful for dead-letter routing or fan-out.
	Republish(queue string) error

	// Set stores a key-value pair in the context store.
	// Used by middleware to pass data to downstream processors.
	Set(key string, val any)

	// Get retrieves a value from the context store.
	Get(key string) (any, bool)
}

type messageContext struct {
	ctx    context.Context
	msg    Message
	queue  string
	broker Broker
	binder Binder
	store  map[string]any
	mu     sync.RWMutex
}

// NewContext creates a Context for the given message.
// The Router calls it for each incoming message; tests may call it directly.
func NewContext(ctx context.Context, msg Message, queue string, b Broker, binder Binder) Context {
	return &messageContext{
		ctx:    ctx,
		msg:    msg,
		queue:  queue,
		broker: b,
		binder: binder,
		store:  make(map[string]any),
	}
}

func (c *messageContext) Context() context.Context { return c.ctx }

func (c *messageContext) SetContext(ctx context.Context) { c.ctx = ctx }

func (c *messageContext) Message() Message { return c.msg }

func (c *messageContext) Queue() string { return c.queue }

func (c *messageContext) Key() []byte { return c.msg.Key() }

func (c *messageContext) Value() []byte { return c.msg.Value() }

func (c *messageContext) Property(name string) string {
	return c.msg.Properties()[name]
}

func (c *messageContext) Bind(v any) error {
	if c.binder == nil {
		return fmt.Errorf("qmux: no binder configured")
	}
	if err := c.binder.Bind(c.msg.Value(), v); err != nil {
		return fmt.Errorf("qmux: bind: %w", err)
	}
	return nil
}

func (c *messageContext) Republish(queue string) error {
	if c.broker == nil {
		return ErrNoBroker
	}
	if err := c.broker.Publish(c.ctx, queue, c.msg); err != nil {
		return fmt.Errorf("qmux: republish to %q: %w", queue, err)
	}
	return nil
}

func (c *messageContext) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *messageContext) Get(key string) (any, bool) {
	c.mu.RLock()
	val, ok := c.store[key]
	c.mu.RUnlock()
	return val, ok
}
