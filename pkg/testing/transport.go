package testing

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/stepform/pkg/core"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

// MockTransport implements core.Transport and records every message.
type MockTransport struct {
	ID string

	sent      []*protocol.Message
	connected bool
	err       error
	mu        sync.Mutex
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		ID:        "test-" + uuid.NewString()[:8],
		connected: true,
	}
}

// Send records msg, or fails with the configured error.
func (m *MockTransport) Send(msg *protocol.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if !m.connected {
		return core.ErrSocketClosed
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected reports whether Close has been called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetError makes every following Send fail with err. Pass nil to clear.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []*protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*protocol.Message(nil), m.sent...)
}

// SentCount returns the number of recorded messages.
func (m *MockTransport) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// LastSent returns the most recent message, or nil.
func (m *MockTransport) LastSent() *protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

// SentEvent reports whether a message with the given event was sent.
func (m *MockTransport) SentEvent(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.sent {
		if msg.Event == event {
			return true
		}
	}
	return false
}

// Reset clears recorded messages and errors and reconnects.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.err = nil
	m.connected = true
}
