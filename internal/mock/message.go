package mock

import "sync"

// Message is a simple core.Message implementation for testing.
type Message struct {
	K         []byte
	V         []byte
	P         map[string]string
	AckErr    error
	NackErr   error
	RejectErr error

	mu       sync.Mutex
	acked    bool
	nacked   bool
	rejected bool
}

func (m *Message) Key() []byte                   { return m.K }
func (m *Message) Value() []byte                 { return m.V }
func (m *Message) Properties() map[string]string { return m.P }

func (m *Message) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	return m.AckErr
}

func (m *Message) Nack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = true
	return m.NackErr
}

func (m *Message) Reject() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = true
	return m.RejectErr
}

// Acked reports whether Ack was called.
func (m *Message) Acked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked
}

// Nacked reports whether Nack was called.
func (m *Message) Nacked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nacked
}

// Rejected reports whether Reject was called.
func (m *Message) Rejected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected
}
