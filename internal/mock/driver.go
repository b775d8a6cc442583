package mock

import (
	"context"
	"sync/atomic"
)

// Driver is a test double for core.Driver. It embeds Broker for the
// messaging half and counts SetupBroker calls.
type Driver struct {
	*Broker
	SetupErr error

	setupCalls atomic.Int32
}

func NewDriver() *Driver {
	return &Driver{Broker: NewBroker()}
}

func (d *Driver) SetupBroker(context.Context) error {
	d.setupCalls.Add(1)
	return d.SetupErr
}

// SetupCalls returns how many times SetupBroker was called.
func (d *Driver) SetupCalls() int {
	return int(d.setupCalls.Load())
}
