package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/cpm/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// Message is a payload captured by MockPublisher.
type Message struct {
	Topic   string
	Payload []byte
}

// MockPublisher is an in-memory client used in tests.
type MockPublisher struct {
	Messages   []Message
	FailTopics map[string]bool
	handlers   map[string]coremqtt.Handler
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailTopics: make(map[string]bool),
		handlers:   make(map[string]coremqtt.Handler),
	}
}

// Publish records the message or returns an error if configured to fail.
func (m *MockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("publish failed")
	}
	m.Messages = append(m.Messages, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

// Subscribe records the handler for Deliver.
func (m *MockPublisher) Subscribe(topic string, h coremqtt.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = h
	return nil
}

// Deliver invokes the handler subscribed on topic, if any.
func (m *MockPublisher) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h == nil {
		return false
	}
	h(topic, payload)
	return true
}

// Sent returns a copy of the recorded messages.
func (m *MockPublisher) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Messages...)
}

func (m *MockPublisher) Disconnect() {}
