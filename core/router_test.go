package core_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/internal/mock"
)

func waitSubscribed(t *testing.T, mb *mock.Broker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-mb.Subscribed():
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for subscription %d", i+1)
		}
	}
}

func TestRouter_BindAndStart(t *testing.T) {
	mb := mock.NewBroker()
	r := core.New(mb)

	var called atomic.Bool
	r.Bind("orders", core.ProcessorFunc(func(c core.Context) (core.Result, error) {
		called.Store(true)
		assert.Equal(t, "orders", c.Queue())
		return core.Ack(), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start(ctx)
	}()
	waitSubscribed(t, mb, 1)

	msg := &mock.Message{K: []byte("key1"), V: []byte("value1")}
	require.NoError(t, mb.Deliver(ctx, "orders", msg))

	assert.True(t, called.Load(), "processor was not called")
	assert.True(t, msg.Acked())

	cancel()
	require.NoError(t, <-errCh)
	assert.True(t, mb.IsClosed(), "broker should be closed after Start returns")
}

func TestRouter_SettlesFromResult(t *testing.T) {
	tests := []struct {
		name     string
		result   core.Result
		acked    bool
		nacked   bool
		rejected bool
	}{
		{"ack", core.Ack(), true, false, false},
		{"reject", core.Reject("bad payload"), false, false, true},
		{"requeue", core.Requeue("busy"), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &mock.Message{}
			h := core.Bridge(core.ProcessorFunc(func(core.Context) (core.Result, error) {
				return tt.result, nil
			}), "q", nil, core.JSONBinder{})

			require.NoError(t, h(context.Background(), msg))
			assert.Equal(t, tt.acked, msg.Acked())
			assert.Equal(t, tt.nacked, msg.Nacked())
			assert.Equal(t, tt.rejected, msg.Rejected())
		})
	}
}

func TestRouter_ProcessorErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	msg := &mock.Message{}
	h := core.Bridge(core.ProcessorFunc(func(core.Context) (core.Result, error) {
		return core.Result{}, boom
	}), "q", nil, nil)

	err := h(context.Background(), msg)
	assert.Same(t, boom, err)
	assert.False(t, msg.Acked())
	assert.False(t, msg.Nacked())
	assert.False(t, msg.Rejected())
}

func TestSettle_EmptyStatus(t *testing.T) {
	err := core.Settle(&mock.Message{}, core.Result{})
	assert.ErrorIs(t, err, core.ErrStatusNotSet)

	err = core.Settle(&mock.Message{}, core.Result{Status: "later"})
	assert.ErrorContains(t, err, `unknown result status "later"`)
}

func TestRouter_Middleware(t *testing.T) {
	mb := mock.NewBroker()
	r := core.New(mb)

	var order []string

	mw := func(name string) core.Middleware {
		return func(next core.Processor) core.Processor {
			return core.ProcessorFunc(func(c core.Context) (core.Result, error) {
				order = append(order, name+":before")
				res, err := next.Process(c)
				order = append(order, name+":after")
				return res, err
			})
		}
	}

	r.Use(mw("A"))
	r.Use(mw("B"))

	r.Bind("test.queue", core.ProcessorFunc(func(core.Context) (core.Result, error) {
		order = append(order, "processor")
		return core.Ack(), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { r.Start(ctx) }()
	waitSubscribed(t, mb, 1)

	require.NoError(t, mb.Deliver(ctx, "test.queue", &mock.Message{}))

	// First registered (A) is outermost.
	assert.Equal(t, []string{"A:before", "B:before", "processor", "B:after", "A:after"}, order)
}

func TestRouter_Publish(t *testing.T) {
	mb := mock.NewBroker()
	r := core.New(mb)

	msg := &mock.Message{K: []byte("k"), V: []byte("v")}
	require.NoError(t, r.Publish(context.Background(), "out.queue", msg))

	pubs := mb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "out.queue", pubs[0].Topic)
}

func TestRouter_NilBroker(t *testing.T) {
	r := core.New(nil)
	err := r.Start(context.Background())
	assert.ErrorIs(t, err, core.ErrNoBroker)
}

func TestRouter_NoRoutes(t *testing.T) {
	r := core.New(mock.NewBroker())
	err := r.Start(context.Background())
	assert.ErrorIs(t, err, core.ErrNoRoutes)
}

func TestRouter_DoubleStart(t *testing.T) {
	mb := mock.NewBroker()
	r := core.New(mb)
	r.Bind("q", core.ProcessorFunc(func(core.Context) (core.Result, error) { return core.Ack(), nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { r.Start(ctx) }()
	waitSubscribed(t, mb, 1)

	assert.ErrorIs(t, r.Start(ctx), core.ErrAlreadyStarted)
}

func TestRouter_SubscribeError(t *testing.T) {
	mb := mock.NewBroker()
	mb.SubscribeErr = errors.New("no such queue")
	r := core.New(mb)
	r.Bind("q", core.ProcessorFunc(func(core.Context) (core.Result, error) { return core.Ack(), nil }))

	err := r.Start(context.Background())
	assert.ErrorContains(t, err, `subscribe "q": no such queue`)
}
