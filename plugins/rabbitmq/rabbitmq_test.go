package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
	"github.com/miladsoleymani/qmux/internal/mock"
	"github.com/miladsoleymani/qmux/processor"
)

type fakeChannel struct {
	calls      []string
	declareErr error
	published  []amqp.Publishing
	keys       []string
	deliveries chan amqp.Delivery
	closed     bool
}

func (f *fakeChannel) Qos(n, _ int, _ bool) error {
	f.calls = append(f.calls, "qos")
	return nil
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.calls = append(f.calls, "exchange:"+name+":"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	f.calls = append(f.calls, "queue:"+name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.calls = append(f.calls, "bind:"+name+":"+key+":"+exchange)
	return nil
}

func (f *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	f.calls = append(f.calls, "consume:"+queue)
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestDriver(t *testing.T, ch *fakeChannel, fns ...Option) *Driver {
	t.Helper()
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	d, err := newDriver(nil, ch, opts)
	require.NoError(t, err)
	return d
}

func TestSetupBroker_DeclaresExchangeQueuesAndBindings(t *testing.T) {
	ch := &fakeChannel{}
	d := newTestDriver(t, ch, WithExchange("events", "topic"), WithQueues("orders", "mails"))

	require.NoError(t, d.SetupBroker(context.Background()))
	assert.Equal(t, []string{
		"qos",
		"exchange:events:topic",
		"queue:orders",
		"bind:orders:orders:events",
		"queue:mails",
		"bind:mails:mails:events",
	}, ch.calls)
}

func TestSetupBroker_DefaultExchange(t *testing.T) {
	ch := &fakeChannel{}
	d := newTestDriver(t, ch, WithQueues("orders"))

	require.NoError(t, d.SetupBroker(context.Background()))
	assert.Equal(t, []string{"qos", "queue:orders"}, ch.calls)
}

func TestSetupBroker_Errors(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("precondition failed")}
	d := newTestDriver(t, ch, WithQueues("orders"))

	err := d.SetupBroker(context.Background())
	assert.ErrorContains(t, err, `declare queue "orders": precondition failed`)

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.SetupBroker(context.Background()), core.ErrBrokerClosed)
}

func TestPublish_CopiesProperties(t *testing.T) {
	ch := &fakeChannel{}
	d := newTestDriver(t, ch, WithRoutingKey("fixed"))

	msg := &mock.Message{V: []byte("body"), P: map[string]string{"processor": "mail"}}
	require.NoError(t, d.Publish(context.Background(), "orders", msg))

	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"fixed"}, ch.keys)
	assert.Equal(t, []byte("body"), ch.published[0].Body)
	assert.Equal(t, "mail", ch.published[0].Headers["processor"])
}

func TestMessage_Properties(t *testing.T) {
	m := &message{delivery: amqp.Delivery{
		RoutingKey: "rk",
		Body:       []byte("b"),
		Headers:    amqp.Table{"processor": "mail", "attempt": int32(2)},
	}}

	assert.Equal(t, []byte("rk"), m.Key())
	assert.Equal(t, map[string]string{"processor": "mail", "attempt": "2"}, m.Properties())
}

func TestOptsFromConfig(t *testing.T) {
	cfg := driver.Config{
		Queues: []string{"a", "b"},
		Extra: map[string]any{
			"exchange":       "events",
			"exchange_type":  "fanout",
			"prefetch_count": float64(5),
			"durable":        false,
		},
	}

	opts := defaults()
	for _, fn := range optsFromConfig(cfg) {
		fn(&opts)
	}
	assert.Equal(t, []string{"a", "b"}, opts.queues)
	assert.Equal(t, "events", opts.exchange)
	assert.Equal(t, "fanout", opts.exchangeType)
	assert.Equal(t, 5, opts.prefetchCount)
	assert.False(t, opts.durable)
}

func TestClose_Idempotent(t *testing.T) {
	ch := &fakeChannel{}
	d := newTestDriver(t, ch)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.True(t, ch.closed)
	assert.ErrorIs(t, d.Publish(context.Background(), "q", &mock.Message{}), core.ErrBrokerClosed)
}

type fakeAcknowledger struct {
	acks    int
	nacks   []bool
	rejects []bool
	ackErr  error
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acks++
	return f.ackErr
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks = append(f.nacks, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.rejects = append(f.rejects, requeue)
	return nil
}

// consumeOne runs the consume loop over a single delivery routed through a
// delegate backed by registry.
func consumeOne(t *testing.T, d *Driver, ack *fakeAcknowledger, headers amqp.Table, registry *processor.Registry) {
	t.Helper()
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Headers: headers}
	close(deliveries)

	h := core.Bridge(processor.NewDelegate(registry, ""), "jobs", nil, core.JSONBinder{})
	require.NoError(t, d.consumeLoop(context.Background(), deliveries, h))
}

func TestConsumeLoop_SettlesFailures(t *testing.T) {
	failing := core.ProcessorFunc(func(core.Context) (core.Result, error) {
		return core.Result{}, errors.New("smtp timeout")
	})
	registry := processor.NewRegistry(map[string]core.Processor{"mail": failing})

	tests := []struct {
		name    string
		headers amqp.Table
		nacks   []bool
		rejects []bool
	}{
		{"missing routing key is rejected", nil, nil, []bool{false}},
		{"unknown processor is rejected", amqp.Table{"processor": "sms"}, nil, []bool{false}},
		{"processor error is requeued", amqp.Table{"processor": "mail"}, []bool{true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			consumeOne(t, newTestDriver(t, &fakeChannel{}), ack, tt.headers, registry)

			assert.Equal(t, 0, ack.acks)
			assert.Equal(t, tt.nacks, ack.nacks)
			assert.Equal(t, tt.rejects, ack.rejects)
		})
	}
}

func TestConsumeLoop_FailedAckIsNotSettledTwice(t *testing.T) {
	registry := processor.NewRegistry(map[string]core.Processor{
		"mail": core.ProcessorFunc(func(core.Context) (core.Result, error) { return core.Ack(), nil }),
	})
	ack := &fakeAcknowledger{ackErr: errors.New("channel closed")}

	consumeOne(t, newTestDriver(t, &fakeChannel{}), ack, amqp.Table{"processor": "mail"}, registry)

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ack.nacks)
	assert.Empty(t, ack.rejects)
}

func TestMessage_SettlesOnce(t *testing.T) {
	ack := &fakeAcknowledger{}
	m := &message{delivery: amqp.Delivery{Acknowledger: ack, DeliveryTag: 7}, requeue: true}

	require.NoError(t, m.Reject())
	assert.ErrorIs(t, m.Nack(), errSettled)
	assert.ErrorIs(t, m.Ack(), errSettled)
	assert.Equal(t, []bool{false}, ack.rejects)
	assert.Empty(t, ack.nacks)
}
