package driver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
	"github.com/miladsoleymani/qmux/internal/mock"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "qmux.client.default.driver", driver.Key(driver.DefaultNamespace, "default"))
	assert.Equal(t, "app.foo.driver", driver.Key("app", "foo"))
}

func TestCreate(t *testing.T) {
	d := mock.NewDriver()
	var got driver.Config
	driver.Register("test-create", func(_ context.Context, cfg driver.Config) (core.Driver, error) {
		got = cfg
		return d, nil
	})

	cfg := driver.Config{Transport: "test-create", Queues: []string{"a"}}
	created, err := driver.Create(context.Background(), cfg)
	require.NoError(t, err)
	assert.Same(t, d, created)
	assert.Equal(t, cfg.Queues, got.Queues)
	assert.Contains(t, driver.Transports(), "test-create")

	_, err = driver.Create(context.Background(), driver.Config{Transport: "nope"})
	assert.ErrorContains(t, err, `unknown transport "nope"`)
}

func TestBuild(t *testing.T) {
	built := map[string]*mock.Driver{}
	driver.Register("test-build", func(_ context.Context, cfg driver.Config) (core.Driver, error) {
		d := mock.NewDriver()
		built[cfg.Group] = d
		return d, nil
	})

	store, err := driver.Build(context.Background(), "", map[string]driver.Config{
		"default": {Transport: "test-build", Group: "g1"},
		"foo":     {Transport: "test-build", Group: "g2"},
	})
	require.NoError(t, err)
	require.Len(t, store, 2)

	d, ok := store.Lookup("qmux.client.default.driver")
	require.True(t, ok)
	assert.Same(t, built["g1"], d)

	d, ok = store.Lookup("qmux.client.foo.driver")
	require.True(t, ok)
	assert.Same(t, built["g2"], d)

	require.NoError(t, store.Close())
	assert.True(t, built["g1"].IsClosed())
	assert.True(t, built["g2"].IsClosed())
}

func TestBuild_ClosesOnFailure(t *testing.T) {
	first := mock.NewDriver()
	driver.Register("test-ok", func(context.Context, driver.Config) (core.Driver, error) { return first, nil })
	driver.Register("test-fail", func(context.Context, driver.Config) (core.Driver, error) {
		return nil, errors.New("connection refused")
	})

	_, err := driver.Build(context.Background(), "", map[string]driver.Config{
		"a": {Transport: "test-ok"},
		"b": {Transport: "test-fail"},
	})
	assert.ErrorContains(t, err, `client "b": connection refused`)
	assert.True(t, first.IsClosed())
}

func TestConfigExtra(t *testing.T) {
	cfg := driver.Config{Extra: map[string]any{
		"exchange":       "events",
		"prefetch_count": float64(20),
		"replicas":       3,
		"durable":        false,
	}}

	s, ok := cfg.String("exchange")
	assert.True(t, ok)
	assert.Equal(t, "events", s)

	n, ok := cfg.Int("prefetch_count")
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	n, ok = cfg.Int("replicas")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	b, ok := cfg.Bool("durable")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = cfg.Int("exchange")
	assert.False(t, ok)
}
