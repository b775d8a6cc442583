package core

import "context"

// Broker defines the contract for message broker implementations.
// Each broker plugin must implement this interface.
type Broker interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// Driver is a Broker bound to one configured client. Besides moving
// messages it knows how to provision the queues, exchanges, streams or
// topics that client needs.
type Driver interface {
	Broker

	// SetupBroker declares the backend resources for the client.
	// It is safe to call more than once.
	SetupBroker(ctx context.Context) error
}
