// Package processor holds the named processor registry and the delegate
// that routes each message to the processor named in its properties.
package processor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/miladsoleymani/qmux/core"
)

// ErrNameRequired is returned when a processor is registered without a name.
var ErrNameRequired = errors.New("qmux: processor name is required")

// Registry maps processor names to processors. It is normally filled once at
// startup; Add stays safe to call afterwards.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]core.Processor
}

// NewRegistry creates a registry holding a copy of processors. Like
// http.ServeMux.Handle, it panics on an empty name or a nil processor.
func NewRegistry(processors map[string]core.Processor) *Registry {
	r := &Registry{processors: make(map[string]core.Processor, len(processors))}
	for name, p := range processors {
		if err := validate(name, p); err != nil {
			panic(err)
		}
		r.processors[name] = p
	}
	return r
}

// Add registers p under name. Names are unique within a registry.
func (r *Registry) Add(name string, p core.Processor) error {
	if err := validate(name, p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processors[name]; ok {
		return fmt.Errorf("qmux: processor %q already registered", name)
	}
	r.processors[name] = p
	return nil
}

// Get returns the processor registered under name.
func (r *Registry) Get(name string) (core.Processor, error) {
	r.mu.RLock()
	p, ok := r.processors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.UnknownProcessorError{Name: name}
	}
	return p, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validate(name string, p core.Processor) error {
	if name == "" {
		return ErrNameRequired
	}
	if p == nil {
		return fmt.Errorf("qmux: processor %q is nil", name)
	}
	return nil
}
