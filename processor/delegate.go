package processor

import "github.com/miladsoleymani/qmux/core"

// DefaultRoutingProperty is the message property that names the processor.
const DefaultRoutingProperty = "processor"

// Getter resolves a processor by name. *Registry implements it.
type Getter interface {
	Get(name string) (core.Processor, error)
}

// Delegate is the single processor a transport needs: it reads the routing
// property of each message and hands the message to the processor
// registered under that name. It holds no mutable state.
type Delegate struct {
	registry Getter
	property string
}

// NewDelegate creates a Delegate reading the given routing property.
// An empty property selects DefaultRoutingProperty.
func NewDelegate(registry Getter, property string) *Delegate {
	if property == "" {
		property = DefaultRoutingProperty
	}
	return &Delegate{registry: registry, property: property}
}

// Property returns the routing property name.
func (d *Delegate) Property() string { return d.property }

// Process routes the message. A missing routing key fails before the
// registry is consulted; registry and processor errors are returned as is.
func (d *Delegate) Process(c core.Context) (core.Result, error) {
	name := c.Property(d.property)
	if isFalsy(name) {
		return core.Result{}, &core.MissingRoutingKeyError{Property: d.property}
	}

	p, err := d.registry.Get(name)
	if err != nil {
		return core.Result{}, err
	}
	return p.Process(c)
}

func isFalsy(v string) bool {
	return v == "" || v == "0"
}
