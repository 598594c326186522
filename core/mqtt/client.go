package mqtt

// Publisher sends schedule notifications to a broker.
type Publisher interface {
	// Publish sends payload on topic. Implementations retry transient
	// failures before returning an error.
	Publish(topic string, payload []byte) error
}

// Handler is invoked for every message received on a subscribed topic.
type Handler func(topic string, payload []byte)

// Subscriber receives messages from a broker.
type Subscriber interface {
	Subscribe(topic string, h Handler) error
}

// Client combines publishing and subscribing.
type Client interface {
	Publisher
	Subscriber
	Disconnect()
}
