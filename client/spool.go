package client

import (
	"context"
	"sync"
)

type spooled struct {
	queue string
	msg   *Message
}

// SpoolProducer queues messages in memory and sends them through the
// wrapped Producer on Flush.
type SpoolProducer struct {
	producer *Producer

	mu    sync.Mutex
	queue []spooled
}

// NewSpoolProducer wraps producer.
func NewSpoolProducer(producer *Producer) *SpoolProducer {
	return &SpoolProducer{producer: producer}
}

// Send queues msg for queue.
func (s *SpoolProducer) Send(_ context.Context, queue string, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, spooled{queue: queue, msg: msg})
	return nil
}

// SendCommand queues a command message and returns its message id. The id
// is stamped now, not at flush time.
func (s *SpoolProducer) SendCommand(ctx context.Context, queue, processorName string, body []byte) (string, error) {
	msg := s.producer.Command(processorName, body)
	if err := s.Send(ctx, queue, msg); err != nil {
		return "", err
	}
	return msg.props[MessageIDProperty], nil
}

// Len returns the number of queued messages.
func (s *SpoolProducer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush sends the queued messages in order. It stops at the first failure;
// the failed message and everything after it stay queued.
func (s *SpoolProducer) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 {
		next := s.queue[0]
		if err := s.producer.Send(ctx, next.queue, next.msg); err != nil {
			return err
		}
		s.queue[0] = spooled{}
		s.queue = s.queue[1:]
	}
	s.queue = nil
	return nil
}
