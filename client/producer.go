package client

import (
	"context"
	"fmt"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/internal/ids"
	"github.com/miladsoleymani/qmux/processor"
)

// Publisher is the part of a broker a Producer needs. core.Broker and
// core.Driver implement it.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg core.Message) error
}

// Sender sends messages to queues.
type Sender interface {
	Send(ctx context.Context, queue string, msg *Message) error
	SendCommand(ctx context.Context, queue, processorName string, body []byte) (string, error)
}

// Producer publishes messages immediately.
type Producer struct {
	pub      Publisher
	property string
}

// NewProducer creates a Producer. routingProperty names the property the
// consuming Delegate reads; empty selects processor.DefaultRoutingProperty.
func NewProducer(pub Publisher, routingProperty string) *Producer {
	if routingProperty == "" {
		routingProperty = processor.DefaultRoutingProperty
	}
	return &Producer{pub: pub, property: routingProperty}
}

// Command builds a message addressed to the named processor and stamps it
// with a fresh message id.
func (p *Producer) Command(processorName string, body []byte) *Message {
	return NewMessage(body).
		SetProperty(p.property, processorName).
		SetProperty(MessageIDProperty, ids.New())
}

// Send publishes msg as is.
func (p *Producer) Send(ctx context.Context, queue string, msg *Message) error {
	if err := p.pub.Publish(ctx, queue, msg); err != nil {
		return fmt.Errorf("qmux/client: send to %q: %w", queue, err)
	}
	return nil
}

// SendCommand publishes a command message for the named processor and
// returns its message id.
func (p *Producer) SendCommand(ctx context.Context, queue, processorName string, body []byte) (string, error) {
	msg := p.Command(processorName, body)
	if err := p.Send(ctx, queue, msg); err != nil {
		return "", err
	}
	return msg.props[MessageIDProperty], nil
}
