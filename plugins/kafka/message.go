package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// message adapts a kafka.Message to core.Message.
// It holds a reference to the reader for offset management. Readers without
// a consumer group cannot commit, so commit is false for them and settling
// only advances the in-memory read position.
type message struct {
	raw    kafka.Message
	reader *kafka.Reader
	ctx    context.Context
	commit bool
}

func (m *message) Key() []byte   { return m.raw.Key }
func (m *message) Value() []byte { return m.raw.Value }

// Properties are carried as Kafka record headers.
func (m *message) Properties() map[string]string {
	h := make(map[string]string, len(m.raw.Headers))
	for _, kh := range m.raw.Headers {
		h[kh.Key] = string(kh.Value)
	}
	return h
}

// Ack commits the offset for this message.
func (m *message) Ack() error {
	if !m.commit {
		return nil
	}
	if err := m.reader.CommitMessages(m.ctx, m.raw); err != nil {
		return fmt.Errorf("qmux/kafka: commit offset: %w", err)
	}
	return nil
}

// Nack is a no-op: Kafka has no per-message requeue. The offset is left
// uncommitted, but the next Ack on the same partition commits past it, so
// the message comes back only if the consumer restarts before that.
func (m *message) Nack() error {
	return nil
}

// Reject commits the offset so the message is skipped for good.
func (m *message) Reject() error {
	if !m.commit {
		return nil
	}
	if err := m.reader.CommitMessages(m.ctx, m.raw); err != nil {
		return fmt.Errorf("qmux/kafka: reject: %w", err)
	}
	return nil
}
