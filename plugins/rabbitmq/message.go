package rabbitmq

import (
	"errors"
	"fmt"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

var errSettled = errors.New("qmux/rabbitmq: delivery already settled")

// message adapts an amqp.Delivery to core.Message. A delivery tag may be
// settled once; a second settle would close the channel.
type message struct {
	delivery amqp.Delivery
	requeue  bool
	settled  atomic.Bool
}

func (m *message) Key() []byte   { return []byte(m.delivery.RoutingKey) }
func (m *message) Value() []byte { return m.delivery.Body }

// Properties are carried as AMQP headers; non-string values are formatted.
func (m *message) Properties() map[string]string {
	h := make(map[string]string, len(m.delivery.Headers))
	for k, v := range m.delivery.Headers {
		if s, ok := v.(string); ok {
			h[k] = s
		} else {
			h[k] = fmt.Sprintf("%v", v)
		}
	}
	return h
}

// Ack acknowledges the message, removing it from the queue.
func (m *message) Ack() error {
	if !m.settled.CompareAndSwap(false, true) {
		return errSettled
	}
	if err := m.delivery.Ack(false); err != nil {
		return fmt.Errorf("qmux/rabbitmq: ack: %w", err)
	}
	return nil
}

// Nack negatively acknowledges the message. If requeue is enabled,
// the message is returned to the queue for redelivery.
func (m *message) Nack() error {
	if !m.settled.CompareAndSwap(false, true) {
		return errSettled
	}
	if err := m.delivery.Nack(false, m.requeue); err != nil {
		return fmt.Errorf("qmux/rabbitmq: nack: %w", err)
	}
	return nil
}

// Reject discards the message, or dead-letters it when the queue has a
// dead-letter exchange.
func (m *message) Reject() error {
	if !m.settled.CompareAndSwap(false, true) {
		return errSettled
	}
	if err := m.delivery.Reject(false); err != nil {
		return fmt.Errorf("qmux/rabbitmq: reject: %w", err)
	}
	return nil
}
