package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// message adapts an SQS message to core.Message.
type message struct {
	ctx      context.Context
	api      API
	queueURL string
	raw      types.Message
}

func (m *message) Key() []byte   { return []byte(aws.ToString(m.raw.MessageId)) }
func (m *message) Value() []byte { return []byte(aws.ToString(m.raw.Body)) }

// Properties are carried as string message attributes.
func (m *message) Properties() map[string]string {
	props := make(map[string]string, len(m.raw.MessageAttributes))
	for k, v := range m.raw.MessageAttributes {
		if v.StringValue != nil {
			props[k] = *v.StringValue
		}
	}
	return props
}

// Ack deletes the message from the queue.
func (m *message) Ack() error {
	return m.delete("ack")
}

// Nack makes the message visible again immediately.
func (m *message) Nack() error {
	_, err := m.api.ChangeMessageVisibility(m.ctx, &amazonsqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(m.queueURL),
		ReceiptHandle:     m.raw.ReceiptHandle,
		VisibilityTimeout: 0,
	})
	if err != nil {
		return fmt.Errorf("qmux/sqs: nack: %w", err)
	}
	return nil
}

// Reject deletes the message; SQS has no separate discard operation.
func (m *message) Reject() error {
	return m.delete("reject")
}

func (m *message) delete(op string) error {
	_, err := m.api.DeleteMessage(m.ctx, &amazonsqs.DeleteMessageInput{
		QueueUrl:      aws.String(m.queueURL),
		ReceiptHandle: m.raw.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("qmux/sqs: %s: %w", op, err)
	}
	return nil
}
