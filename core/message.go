package core

import "context"

// MessageIDProperty is the property that carries a message's id.
const MessageIDProperty = "message_id"

// Message is the broker-agnostic message abstraction.
// Implementations are provided by broker plugins.
type Message interface {
	Key() []byte
	Value() []byte

	// Properties returns the application properties carried with the message.
	// Reading them has no side effects.
	Properties() map[string]string

	// Ack acknowledges the message (commits offset / removes from queue).
	Ack() error

	// Nack negatively acknowledges the message so the broker redelivers it.
	Nack() error

	// Reject drops the message without redelivery. Brokers with dead-letter
	// support route it there.
	Reject() error
}

// Handler is the low-level handler used by broker subscriptions.
// The Router bridges it to a Processor.
type Handler func(ctx context.Context, msg Message) error
