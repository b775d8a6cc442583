// Package client sends messages to queues: directly through a Producer or
// batched through a SpoolProducer that is flushed when the process ends.
package client

import (
	"fmt"
	"maps"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/internal/jsoncodec"
)

// MessageIDProperty carries the id stamped on every command message.
const MessageIDProperty = core.MessageIDProperty

// Message is an outgoing message. It implements core.Message; settling an
// outgoing message is a no-op.
type Message struct {
	key   []byte
	body  []byte
	props map[string]string
}

// NewMessage creates a message with the given body.
func NewMessage(body []byte) *Message {
	return &Message{body: body, props: make(map[string]string)}
}

// NewJSONMessage creates a message whose body is v encoded as JSON, the
// format core.JSONBinder decodes on the consuming side.
func NewJSONMessage(v any) (*Message, error) {
	body, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("qmux/client: encode body: %w", err)
	}
	return NewMessage(body), nil
}

// WithKey sets the message key and returns m.
func (m *Message) WithKey(key []byte) *Message {
	m.key = key
	return m
}

// SetProperty sets a single property.
func (m *Message) SetProperty(name, value string) *Message {
	if m.props == nil {
		m.props = make(map[string]string)
	}
	m.props[name] = value
	return m
}

func (m *Message) Key() []byte   { return m.key }
func (m *Message) Value() []byte { return m.body }

// Properties returns a copy of the message properties.
func (m *Message) Properties() map[string]string { return maps.Clone(m.props) }

func (m *Message) Ack() error    { return nil }
func (m *Message) Nack() error   { return nil }
func (m *Message) Reject() error { return nil }
