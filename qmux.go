// Package qmux provides the top-level API for qmux. It re-exports the core
// types so users can write:
//
//	reg := qmux.NewRegistry(nil)
//	reg.Add("mail", qmux.ProcessorFunc(sendMail))
//	r := qmux.New(d)
//	r.Bind("jobs", qmux.NewDelegate(reg, ""))
//	r.Start(ctx)
package qmux

import (
	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/processor"
)

// Re-export core types at the package level for ergonomic usage.
type (
	Message       = core.Message
	Context       = core.Context
	Processor     = core.Processor
	ProcessorFunc = core.ProcessorFunc
	Result        = core.Result
	Middleware    = core.Middleware
	Broker        = core.Broker
	Driver        = core.Driver
	Router        = core.Router
	Registry      = processor.Registry
	Delegate      = processor.Delegate
)

// New creates a new Router bound to the given Broker.
func New(b Broker) *Router {
	return core.New(b)
}

// NewRegistry creates a processor registry seeded with processors.
func NewRegistry(processors map[string]Processor) *Registry {
	return processor.NewRegistry(processors)
}

// NewDelegate creates a Delegate routing on property, or on
// processor.DefaultRoutingProperty when property is empty.
func NewDelegate(reg *Registry, property string) *Delegate {
	return processor.NewDelegate(reg, property)
}
