package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/miladsoleymani/qmux/core"
)

// Factory creates a Driver from the given Config.
type Factory func(ctx context.Context, cfg Config) (core.Driver, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a named driver factory. Plugins call this from init().
func Register(transport string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[transport] = factory
}

// Create instantiates a driver using the factory registered for cfg.Transport.
func Create(ctx context.Context, cfg Config) (core.Driver, error) {
	mu.RLock()
	f, ok := factories[cfg.Transport]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("qmux: unknown transport %q (registered: %v)", cfg.Transport, Transports())
	}
	return f(ctx, cfg)
}

// Transports returns the registered transport names in sorted order.
func Transports() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
