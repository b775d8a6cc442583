package client_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/qmux/client"
	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/internal/mock"
)

var (
	_ core.Message  = (*client.Message)(nil)
	_ client.Sender = (*client.Producer)(nil)
	_ client.Sender = (*client.SpoolProducer)(nil)
)

// flakyPublisher fails the publish calls whose index is in fail.
type flakyPublisher struct {
	*mock.Broker
	calls int
	fail  map[int]bool
}

func (f *flakyPublisher) Publish(ctx context.Context, queue string, msg core.Message) error {
	f.calls++
	if f.fail[f.calls] {
		return errors.New("connection reset")
	}
	return f.Broker.Publish(ctx, queue, msg)
}

func TestMessage_PropertiesAreCopied(t *testing.T) {
	msg := client.NewMessage([]byte("body")).WithKey([]byte("k")).SetProperty("a", "1")

	props := msg.Properties()
	props["a"] = "changed"

	assert.Equal(t, map[string]string{"a": "1"}, msg.Properties())
	assert.Equal(t, []byte("k"), msg.Key())
	assert.Equal(t, []byte("body"), msg.Value())
	assert.NoError(t, msg.Ack())
	assert.NoError(t, msg.Nack())
	assert.NoError(t, msg.Reject())
}

type failingJSON struct{}

func (failingJSON) MarshalJSON() ([]byte, error) { return nil, errors.New("no encoding") }

func TestNewJSONMessage(t *testing.T) {
	msg, err := client.NewJSONMessage(map[string]any{"id": "p-1", "amount": 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p-1","amount":42}`, string(msg.Value()))

	_, err = client.NewJSONMessage(failingJSON{})
	assert.ErrorContains(t, err, "qmux/client: encode body")
}

func TestProducer_SendCommand(t *testing.T) {
	mb := mock.NewBroker()
	p := client.NewProducer(mb, "")

	id, err := p.SendCommand(context.Background(), "jobs", "mail", []byte(`{"to":"a@b.c"}`))
	require.NoError(t, err)
	assert.Len(t, id, 26)

	pubs := mb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "jobs", pubs[0].Topic)
	props := pubs[0].Message.Properties()
	assert.Equal(t, "mail", props["processor"])
	assert.Equal(t, id, props[core.MessageIDProperty])
	assert.Equal(t, []byte(`{"to":"a@b.c"}`), pubs[0].Message.Value())
}

func TestProducer_CustomRoutingProperty(t *testing.T) {
	mb := mock.NewBroker()
	p := client.NewProducer(mb, "handler")

	_, err := p.SendCommand(context.Background(), "jobs", "mail", nil)
	require.NoError(t, err)
	assert.Equal(t, "mail", mb.Published()[0].Message.Properties()["handler"])
}

func TestProducer_SendError(t *testing.T) {
	pub := &flakyPublisher{Broker: mock.NewBroker(), fail: map[int]bool{1: true}}
	p := client.NewProducer(pub, "")

	err := p.Send(context.Background(), "jobs", client.NewMessage(nil))
	assert.ErrorContains(t, err, `send to "jobs": connection reset`)
}

func TestSpoolProducer_FlushInOrder(t *testing.T) {
	mb := mock.NewBroker()
	spool := client.NewSpoolProducer(client.NewProducer(mb, ""))
	ctx := context.Background()

	require.NoError(t, spool.Send(ctx, "a", client.NewMessage([]byte("1"))))
	_, err := spool.SendCommand(ctx, "b", "mail", []byte("2"))
	require.NoError(t, err)
	require.NoError(t, spool.Send(ctx, "c", client.NewMessage([]byte("3"))))

	assert.Empty(t, mb.Published(), "nothing is sent before Flush")
	assert.Equal(t, 3, spool.Len())

	require.NoError(t, spool.Flush(ctx))
	pubs := mb.Published()
	require.Len(t, pubs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{pubs[0].Topic, pubs[1].Topic, pubs[2].Topic})
	assert.Zero(t, spool.Len())
}

func TestSpoolProducer_FailedSendsStayQueued(t *testing.T) {
	pub := &flakyPublisher{Broker: mock.NewBroker(), fail: map[int]bool{2: true}}
	spool := client.NewSpoolProducer(client.NewProducer(pub, ""))
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, spool.Send(ctx, q, client.NewMessage(nil)))
	}

	require.Error(t, spool.Flush(ctx))
	assert.Equal(t, 2, spool.Len())
	require.Len(t, pub.Published(), 1)

	require.NoError(t, spool.Flush(ctx))
	pubs := pub.Published()
	require.Len(t, pubs, 3)
	assert.Equal(t, "b", pubs[1].Topic)
	assert.Equal(t, "c", pubs[2].Topic)
}

type countingFlusher struct {
	calls int
	err   error
}

func (c *countingFlusher) Flush(context.Context) error {
	c.calls++
	return c.err
}

func TestFlushListener_FlushesSpool(t *testing.T) {
	f := &countingFlusher{}
	l := client.NewFlushListener(f, nil)

	require.NoError(t, l.FlushMessages(context.Background()))
	assert.Equal(t, 1, f.calls)
}

func TestFlushListener_Idempotent(t *testing.T) {
	mb := mock.NewBroker()
	spool := client.NewSpoolProducer(client.NewProducer(mb, ""))
	l := client.NewFlushListener(spool, nil)
	ctx := context.Background()

	_, err := spool.SendCommand(ctx, "jobs", "mail", nil)
	require.NoError(t, err)

	require.NoError(t, l.FlushMessages(ctx))
	require.NoError(t, l.FlushMessages(ctx))
	assert.Len(t, mb.Published(), 1)
}

func TestFlushListener_LogsError(t *testing.T) {
	var buf bytes.Buffer
	f := &countingFlusher{err: errors.New("broker down")}
	l := client.NewFlushListener(f, slog.New(slog.NewTextHandler(&buf, nil)))

	err := l.FlushMessages(context.Background())
	assert.EqualError(t, err, "broker down")
	assert.Contains(t, buf.String(), "broker down")
}
