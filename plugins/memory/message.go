package memory

import (
	"sync/atomic"

	wmessage "github.com/ThreeDotsLabs/watermill/message"
)

// keyMetadata carries core.Message.Key through the pub/sub.
const keyMetadata = "_qmux_key"

// message adapts a Watermill message to core.Message.
type message struct {
	raw     *wmessage.Message
	settled atomic.Bool
}

func (m *message) Key() []byte   { return []byte(m.raw.Metadata.Get(keyMetadata)) }
func (m *message) Value() []byte { return m.raw.Payload }

// Properties returns the message metadata without internal entries.
func (m *message) Properties() map[string]string {
	props := make(map[string]string, len(m.raw.Metadata))
	for k, v := range m.raw.Metadata {
		if k == keyMetadata {
			continue
		}
		props[k] = v
	}
	return props
}

// Ack marks the message processed.
func (m *message) Ack() error {
	m.settled.Store(true)
	m.raw.Ack()
	return nil
}

// Nack redelivers the message to the same subscription.
func (m *message) Nack() error {
	m.settled.Store(true)
	m.raw.Nack()
	return nil
}

// Reject drops the message. The pub/sub has no dead-letter concept, so the
// message is acked.
func (m *message) Reject() error {
	m.settled.Store(true)
	m.raw.Ack()
	return nil
}
