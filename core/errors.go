package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBrokerClosed is returned when operations are attempted on a closed broker.
	ErrBrokerClosed = errors.New("qmux: broker is closed")

	// ErrNoHandler is returned when no handler is subscribed to the incoming topic.
	ErrNoHandler = errors.New("qmux: no handler registered for topic")

	// ErrAlreadyStarted is returned when Start is called on a running router.
	ErrAlreadyStarted = errors.New("qmux: router already started")

	// ErrNoBroker is returned when a router is created without a broker.
	ErrNoBroker = errors.New("qmux: broker is nil")

	// ErrNoRoutes is returned when Start is called before any queue was bound.
	ErrNoRoutes = errors.New("qmux: no queues bound")

	// ErrStatusNotSet is returned when a processor returns a Result without a status.
	ErrStatusNotSet = errors.New("qmux: processor result has no status")
)

// MissingRoutingKeyError reports a message that lacks the property naming
// its processor. It is a configuration error and is never retried.
type MissingRoutingKeyError struct {
	Property string
}

func (e *MissingRoutingKeyError) Error() string {
	return fmt.Sprintf("Got message without required parameter: \"%s\"", e.Property)
}

// UnknownProcessorError reports a routing key with no registered processor.
type UnknownProcessorError struct {
	Name string
}

func (e *UnknownProcessorError) Error() string {
	return fmt.Sprintf("Processor %q not found.", e.Name)
}

// UnsupportedClientError reports a client identifier with no registered driver.
// The message echoes the identifier verbatim because it comes from an operator.
type UnsupportedClientError struct {
	Client string
}

func (e *UnsupportedClientError) Error() string {
	return fmt.Sprintf("Client \"%s\" is not supported.", e.Client)
}

// IsPermanent reports whether err means the message can never be processed
// as it is, so redelivering it would only fail again.
func IsPermanent(err error) bool {
	var missing *MissingRoutingKeyError
	var unknown *UnknownProcessorError
	return errors.As(err, &missing) || errors.As(err, &unknown)
}
