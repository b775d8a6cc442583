package driver

import (
	"context"

	"github.com/miladsoleymani/qmux/core"
)

// DefaultClient is the client used when none is requested.
const DefaultClient = "default"

// Resolver returns the driver bound to a client identifier.
type Resolver interface {
	Resolve(clientID string) (core.Driver, error)
}

// Multiplexer picks the driver of one of several configured clients.
type Multiplexer struct {
	locator       Locator
	namespace     string
	defaultClient string
}

// NewMultiplexer creates a Multiplexer over locator. Empty namespace and
// defaultClient fall back to DefaultNamespace and DefaultClient.
func NewMultiplexer(locator Locator, namespace, defaultClient string) *Multiplexer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if defaultClient == "" {
		defaultClient = DefaultClient
	}
	return &Multiplexer{locator: locator, namespace: namespace, defaultClient: defaultClient}
}

// DefaultClient returns the client used when Resolve is given "".
func (m *Multiplexer) DefaultClient() string { return m.defaultClient }

// Resolve returns the driver registered for clientID, or for the default
// client when clientID is empty.
func (m *Multiplexer) Resolve(clientID string) (core.Driver, error) {
	if clientID == "" {
		clientID = m.defaultClient
	}
	d, ok := m.locator.Lookup(Key(m.namespace, clientID))
	if !ok || d == nil {
		return nil, &core.UnsupportedClientError{Client: clientID}
	}
	return d, nil
}

// SetupBroker resolves the driver of clientID and provisions its broker.
// Resolution and provisioning errors are returned unchanged.
func SetupBroker(ctx context.Context, r Resolver, clientID string) error {
	d, err := r.Resolve(clientID)
	if err != nil {
		return err
	}
	return d.SetupBroker(ctx)
}
