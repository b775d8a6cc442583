package core

import (
	"context"
	"fmt"
	"sync"
)

// Router binds queues to processors on a single Broker and settles every
// delivered message according to the Result its processor returns.
type Router struct {
	broker      Broker
	binder      Binder
	middlewares []Middleware
	routes      map[string]Processor
	mu          sync.RWMutex
	started     bool
}

// New creates a Router bound to the given Broker.
// It uses JSONBinder for Context.Bind.
func New(b Broker) *Router {
	return &Router{
		broker: b,
		binder: JSONBinder{},
		routes: make(map[string]Processor),
	}
}

// SetBinder replaces the message binder used by Context.Bind().
func (r *Router) SetBinder(b Binder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binder = b
}

// Use registers global middleware. The first registered middleware is the
// outermost one.
func (r *Router) Use(m Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, m)
}

// Bind routes every message received on queue to p. Binding the same queue
// twice replaces the earlier processor.
func (r *Router) Bind(queue string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[queue] = p
}

// Queues returns the bound queue names.
func (r *Router) Queues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for q := range r.routes {
		out = append(out, q)
	}
	return out
}

// Publish sends a message to the given queue through the broker.
func (r *Router) Publish(ctx context.Context, queue string, msg Message) error {
	return r.broker.Publish(ctx, queue, msg)
}

// Start subscribes to all bound queues and begins consuming messages.
// It blocks until the context is cancelled or a subscription fails.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.broker == nil {
		r.mu.Unlock()
		return ErrNoBroker
	}
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(r.routes) == 0 {
		r.mu.Unlock()
		return ErrNoRoutes
	}
	r.started = true

	// Snapshot routes, middleware, and config under lock
	routes := make(map[string]Processor, len(r.routes))
	for k, v := range r.routes {
		routes[k] = v
	}
	mws := make([]Middleware, len(r.middlewares))
	copy(mws, r.middlewares)
	binder := r.binder
	broker := r.broker
	r.mu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, len(routes))

	for queue, p := range routes {
		wg.Add(1)
		go func(q string, h Handler) {
			defer wg.Done()
			if err := broker.Subscribe(ctx, q, h); err != nil {
				errCh <- fmt.Errorf("qmux: subscribe %q: %w", q, err)
			}
		}(queue, Bridge(applyMiddleware(p, mws), queue, broker, binder))
	}

	go func() {
		wg.Wait()
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return r.broker.Close()
	case err := <-errCh:
		if err != nil {
			r.broker.Close()
			return err
		}
		// All subscriptions returned without error; wait for context
		<-ctx.Done()
		return r.broker.Close()
	}
}

// Bridge turns a Processor into a low-level Handler for queue. Each message
// gets a fresh Context, and the returned Result is applied to the message.
// A processor error is returned as is and the message is left to the broker.
func Bridge(p Processor, queue string, b Broker, binder Binder) Handler {
	return func(ctx context.Context, msg Message) error {
		res, err := p.Process(NewContext(ctx, msg, queue, b, binder))
		if err != nil {
			return err
		}
		return Settle(msg, res)
	}
}

// Settle applies res to msg.
func Settle(msg Message, res Result) error {
	switch res.Status {
	case StatusAck:
		return msg.Ack()
	case StatusReject:
		return msg.Reject()
	case StatusRequeue:
		return msg.Nack()
	case "":
		return ErrStatusNotSet
	default:
		return fmt.Errorf("qmux: unknown result status %q", res.Status)
	}
}

// applyMiddleware wraps a processor with middleware in reverse order.
// Given middleware [A, B, C], the call order is A -> B -> C -> processor.
func applyMiddleware(p Processor, mws []Middleware) Processor {
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}
