package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/miladsoleymani/qmux/core"
)

// DefaultNamespace prefixes every driver key.
const DefaultNamespace = "qmux.client"

// Key composes the store key of the driver bound to clientID.
func Key(namespace, clientID string) string {
	return namespace + "." + clientID + ".driver"
}

// Locator looks drivers up by key.
type Locator interface {
	Lookup(key string) (core.Driver, bool)
}

// Store maps driver keys to drivers. It is built once at startup and only
// read afterwards, so lookups need no locking.
type Store map[string]core.Driver

// Lookup returns the driver stored under key.
func (s Store) Lookup(key string) (core.Driver, bool) {
	d, ok := s[key]
	return d, ok
}

// Close closes every driver in the store.
func (s Store) Close() error {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := s[k].Close(); err != nil {
			errs = append(errs, fmt.Errorf("qmux: close %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// Build creates one driver per client through the registered factories.
// Drivers created before a failure are closed.
func Build(ctx context.Context, namespace string, clients map[string]Config) (Store, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	store := make(Store, len(clients))
	for _, id := range ids {
		d, err := Create(ctx, clients[id])
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("qmux: client %q: %w", id, err)
		}
		store[Key(namespace, id)] = d
	}
	return store, nil
}
