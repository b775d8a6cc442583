// Package memory provides an in-process driver backed by Watermill's Go
// channel pub/sub. It is meant for local development and tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
	"github.com/miladsoleymani/qmux/internal/ids"
)

// Transport is the name this plugin registers under.
const Transport = "memory"

func init() {
	driver.Register(Transport, func(_ context.Context, cfg driver.Config) (core.Driver, error) {
		var opts []Option
		if v, ok := cfg.Bool("requeue_on_error"); ok {
			opts = append(opts, WithRequeueOnError(v))
		}
		if v, ok := cfg.Int("buffer"); ok {
			opts = append(opts, WithBuffer(int64(v)))
		}
		return New(opts...), nil
	})
}

// Option configures the memory driver.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	buffer         int64
	requeueOnError bool
}

// WithLogger sets the logger handed to the underlying pub/sub.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBuffer sets the output channel buffer of every subscription.
func WithBuffer(n int64) Option {
	return func(o *options) { o.buffer = n }
}

// WithRequeueOnError redelivers messages whose handler failed without
// settling them. By default such messages are dropped.
func WithRequeueOnError(v bool) Option {
	return func(o *options) { o.requeueOnError = v }
}

// Factory allows overriding the pub/sub creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (wmessage.Publisher, wmessage.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

// Driver implements core.Driver on top of a persistent Go channel pub/sub.
// Messages published before a subscription exists are kept and delivered
// once it does.
type Driver struct {
	pub  wmessage.Publisher
	sub  wmessage.Subscriber
	opts options

	mu     sync.Mutex
	closed bool
}

// New creates a memory Driver.
func New(fns ...Option) *Driver {
	opts := options{logger: slog.Default()}
	for _, fn := range fns {
		fn(&opts)
	}

	pub, sub := Factory(gochannel.Config{
		OutputChannelBuffer: opts.buffer,
		Persistent:          true,
	}, watermill.NewSlogLogger(opts.logger))

	return &Driver{pub: pub, sub: sub, opts: opts}
}

// SetupBroker has nothing to declare; topics exist on first use.
func (d *Driver) SetupBroker(context.Context) error {
	return d.checkOpen()
}

// Publish sends a message to the named topic.
func (d *Driver) Publish(_ context.Context, topic string, msg core.Message) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	wm := wmessage.NewMessage(ids.New(), msg.Value())
	for k, v := range msg.Properties() {
		wm.Metadata.Set(k, v)
	}
	if key := msg.Key(); len(key) > 0 {
		wm.Metadata.Set(keyMetadata, string(key))
	}

	if err := d.pub.Publish(topic, wm); err != nil {
		return fmt.Errorf("qmux/memory: publish to %q: %w", topic, err)
	}
	return nil
}

// Subscribe delivers messages on topic to the handler until the context is
// cancelled or the driver is closed.
func (d *Driver) Subscribe(ctx context.Context, topic string, handler core.Handler) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	msgs, err := d.sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("qmux/memory: subscribe %q: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case wm, ok := <-msgs:
			if !ok {
				return nil
			}
			msg := &message{raw: wm}
			err := handler(ctx, msg)
			if msg.settled.Load() {
				continue
			}
			// The pub/sub blocks until every message is acked or nacked.
			if err != nil && d.opts.requeueOnError {
				wm.Nack()
			} else {
				wm.Ack()
			}
		}
	}
}

// Close shuts the pub/sub down, ending all subscriptions.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if err := d.pub.Close(); err != nil {
		return fmt.Errorf("qmux/memory: close: %w", err)
	}
	return nil
}

func (d *Driver) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return core.ErrBrokerClosed
	}
	return nil
}
