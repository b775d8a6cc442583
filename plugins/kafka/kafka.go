package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
)

// Transport is the name this plugin registers under.
const Transport = "kafka"

func init() {
	driver.Register(Transport, func(_ context.Context, cfg driver.Config) (core.Driver, error) {
		opts := optsFromConfig(cfg)
		return New(cfg.Brokers, cfg.Group, opts...)
	})
}

// TopicAdmin is the part of *kafka.Conn SetupBroker needs.
type TopicAdmin interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	Close() error
}

// DialController connects to the cluster controller, which is the only
// broker that accepts topic creation. Tests replace it.
var DialController = func(ctx context.Context, dialer *kafka.Dialer, brokers []string) (TopicAdmin, error) {
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return nil, err
	}
	admin, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// Driver implements core.Driver for Apache Kafka using segmentio/kafka-go.
//
// Design decisions:
//   - One kafka.Writer shared across all Publish calls (thread-safe by library).
//   - One kafka.Reader per Subscribe call, each running in its own goroutine.
//   - Manual offset commit on ack and reject when a group is set. Requeue
//     (Nack) is not supported; see message.Nack.
//   - SetupBroker creates the configured topics through the controller.
//   - Graceful shutdown: context cancellation breaks the fetch loop, Close()
//     flushes the writer and closes all readers.
type Driver struct {
	brokers []string
	group   string
	opts    options

	writer  *kafka.Writer
	readers []*kafka.Reader
	mu      sync.Mutex
	closed  bool
}

// New creates a Kafka Driver.
func New(brokers []string, group string, fns ...Option) (*Driver, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("qmux/kafka: at least one broker address is required")
	}

	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     opts.balancer,
		BatchSize:    opts.batchSize,
		Async:        opts.async,
		RequiredAcks: kafka.RequireAll,
	}
	if opts.dialer != nil {
		w.Transport = &kafka.Transport{
			TLS:  opts.dialer.TLS,
			SASL: opts.dialer.SASLMechanism,
		}
	}

	return &Driver{
		brokers: brokers,
		group:   group,
		opts:    opts,
		writer:  w,
	}, nil
}

// SetupBroker creates the configured topics. Topics that already exist are
// left untouched by the server.
func (d *Driver) SetupBroker(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return core.ErrBrokerClosed
	}
	d.mu.Unlock()

	if len(d.opts.topics) == 0 {
		return nil
	}

	dialer := d.opts.dialer
	if dialer == nil {
		dialer = kafka.DefaultDialer
	}
	admin, err := DialController(ctx, dialer, d.brokers)
	if err != nil {
		return fmt.Errorf("qmux/kafka: dial controller: %w", err)
	}
	defer admin.Close()

	configs := make([]kafka.TopicConfig, 0, len(d.opts.topics))
	for _, topic := range d.opts.topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     d.opts.numPartitions,
			ReplicationFactor: d.opts.replicationFactor,
		})
	}
	if err := admin.CreateTopics(configs...); err != nil {
		return fmt.Errorf("qmux/kafka: create topics %v: %w", d.opts.topics, err)
	}
	return nil
}

// Publish sends a message to the specified topic.
func (d *Driver) Publish(ctx context.Context, topic string, msg core.Message) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return core.ErrBrokerClosed
	}
	d.mu.Unlock()

	km := kafka.Message{
		Topic:   topic,
		Key:     msg.Key(),
		Value:   msg.Value(),
		Headers: toHeaders(msg.Properties()),
	}
	if err := d.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("qmux/kafka: publish to %q: %w", topic, err)
	}
	return nil
}

// Subscribe creates a consumer for the topic and blocks, delivering messages
// to the handler until the context is cancelled.
func (d *Driver) Subscribe(ctx context.Context, topic string, handler core.Handler) error {
	cfg := kafka.ReaderConfig{
		Brokers:  d.brokers,
		Topic:    topic,
		GroupID:  d.group,
		MinBytes: d.opts.minBytes,
		MaxBytes: d.opts.maxBytes,
		MaxWait:  d.opts.maxWait,
	}
	if d.opts.dialer != nil {
		cfg.Dialer = d.opts.dialer
	}
	if d.group == "" {
		cfg.StartOffset = d.opts.startOffset
	}

	r := kafka.NewReader(cfg)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		r.Close()
		return core.ErrBrokerClosed
	}
	d.readers = append(d.readers, r)
	d.mu.Unlock()

	return d.consumeLoop(ctx, r, handler)
}

// consumeLoop fetches messages and dispatches them to the handler.
func (d *Driver) consumeLoop(ctx context.Context, r *kafka.Reader, handler core.Handler) error {
	for {
		raw, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil // graceful shutdown
			}
			return fmt.Errorf("qmux/kafka: fetch: %w", err)
		}

		msg := &message{raw: raw, reader: r, ctx: ctx, commit: d.group != ""}
		if err := handler(ctx, msg); err != nil {
			// Offset is NOT committed. The message is redelivered after
			// rebalance or restart.
			continue
		}
	}
}

// Close flushes the writer and closes all readers.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("qmux/kafka: close writer: %w", err))
	}
	for _, r := range d.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("qmux/kafka: close reader: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// toHeaders converts a string map to Kafka headers.
func toHeaders(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	headers := make([]kafka.Header, 0, len(h))
	for k, v := range h {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// optsFromConfig extracts options from driver.Config.
func optsFromConfig(cfg driver.Config) []Option {
	opts := []Option{WithTopics(cfg.Queues...)}
	if v, ok := cfg.Bool("async"); ok && v {
		opts = append(opts, WithAsync(true))
	}
	if v, ok := cfg.Int("batch_size"); ok {
		opts = append(opts, WithBatchSize(v))
	}
	if v, ok := cfg.Int("max_bytes"); ok {
		opts = append(opts, WithMaxBytes(v))
	}
	if p, ok := cfg.Int("partitions"); ok {
		rf, ok := cfg.Int("replication_factor")
		if !ok {
			rf = 1
		}
		opts = append(opts, WithPartitions(p, rf))
	}
	return opts
}
