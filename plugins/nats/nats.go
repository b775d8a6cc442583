package nats

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
)

// Transport is the name this plugin registers under.
const Transport = "nats"

func init() {
	driver.Register(Transport, func(_ context.Context, cfg driver.Config) (core.Driver, error) {
		opts := optsFromConfig(cfg)
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("qmux/nats: at least one broker URL is required")
		}
		return New(cfg.Brokers[0], cfg.Group, opts...)
	})
}

// streams is the part of jetstream.JetStream the driver uses.
type streams interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Driver implements core.Driver for NATS JetStream.
//
// Design decisions:
//   - One NATS connection per Driver instance.
//   - JetStream is used for persistence and at-least-once delivery.
//   - SetupBroker creates (or updates) one stream per configured subject;
//     Subscribe does the same for its subject and adds a durable consumer.
//   - Ack, Nak and Term map to Ack, Nack and Reject.
//   - Graceful shutdown: context cancellation stops consumers, Close()
//     closes the connection.
type Driver struct {
	conn  *nats.Conn
	js    streams
	group string
	opts  options

	mu     sync.Mutex
	closed bool
	subs   []jetstream.ConsumeContext
}

// New creates a NATS JetStream Driver. url is a standard NATS URL (nats://host:port).
func New(url, group string, fns ...Option) (*Driver, error) {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("qmux/nats: connect to %q: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("qmux/nats: init jetstream: %w", err)
	}

	return &Driver{
		conn:  nc,
		js:    js,
		group: group,
		opts:  opts,
	}, nil
}

// SetupBroker creates or updates the stream of every configured subject.
func (d *Driver) SetupBroker(ctx context.Context) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	for _, subject := range d.opts.queues {
		if _, err := d.ensureStream(ctx, subject); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) ensureStream(ctx context.Context, subject string) (jetstream.Stream, error) {
	name := sanitizeStreamName(subject)
	stream, err := d.js.CreateOrUpdateStream(ctx, d.streamConfig(subject))
	if err != nil {
		return nil, fmt.Errorf("qmux/nats: create stream %q: %w", name, err)
	}
	return stream, nil
}

func (d *Driver) streamConfig(subject string) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:      sanitizeStreamName(subject),
		Subjects:  []string{subject},
		MaxMsgs:   d.opts.maxMsgs,
		MaxBytes:  d.opts.maxBytes,
		MaxAge:    d.opts.maxAge,
		Replicas:  d.opts.replicas,
		Retention: d.opts.retention,
		Storage:   d.opts.storage,
	}
}

// Publish sends a message to the specified subject via JetStream.
func (d *Driver) Publish(ctx context.Context, topic string, msg core.Message) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	headers := nats.Header{}
	for k, v := range msg.Properties() {
		headers.Set(k, v)
	}

	nm := &nats.Msg{
		Subject: topic,
		Data:    msg.Value(),
		Header:  headers,
	}
	if _, err := d.js.PublishMsg(ctx, nm); err != nil {
		return fmt.Errorf("qmux/nats: publish to %q: %w", topic, err)
	}
	return nil
}

// Subscribe ensures the stream and a durable consumer for the given subject,
// then consumes messages until the context is cancelled.
func (d *Driver) Subscribe(ctx context.Context, topic string, handler core.Handler) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	stream, err := d.ensureStream(ctx, topic)
	if err != nil {
		return err
	}

	consumerName := d.group
	if consumerName == "" {
		consumerName = "qmux-" + sanitizeStreamName(topic)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    consumerName,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    d.opts.ackWait,
		MaxDeliver: d.opts.maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("qmux/nats: create consumer %q: %w", consumerName, err)
	}

	cc, err := cons.Consume(func(jsMsg jetstream.Msg) {
		if err := handler(ctx, &message{msg: jsMsg}); err != nil {
			_ = jsMsg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("qmux/nats: start consume on %q: %w", consumerName, err)
	}

	d.mu.Lock()
	d.subs = append(d.subs, cc)
	d.mu.Unlock()

	<-ctx.Done()
	cc.Stop()
	return nil
}

// Close stops all consumers and closes the NATS connection.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	for _, s := range d.subs {
		s.Stop()
	}
	if d.conn != nil {
		d.conn.Close()
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

// sanitizeStreamName converts a subject pattern to a valid stream name
// by replacing special characters.
func sanitizeStreamName(topic string) string {
	buf := make([]byte, len(topic))
	for i := range len(topic) {
		c := topic[i]
		if c == '.' || c == '*' || c == '>' {
			buf[i] = '-'
		} else {
			buf[i] = c
		}
	}
	return string(buf)
}

// optsFromConfig extracts options from driver.Config.
func optsFromConfig(cfg driver.Config) []Option {
	opts := []Option{WithQueues(cfg.Queues...)}
	if v, ok := cfg.Int("max_deliver"); ok {
		opts = append(opts, WithMaxDeliver(v))
	}
	if v, ok := cfg.Int("replicas"); ok {
		opts = append(opts, WithReplicas(v))
	}
	if v, ok := cfg.String("storage"); ok && v == "memory" {
		opts = append(opts, WithStorage(jetstream.MemoryStorage))
	}
	return opts
}
