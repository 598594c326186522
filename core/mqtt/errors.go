package mqtt

import "errors"

// ErrNotConnected is returned when the client has no broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

// ErrEmptyTopic is returned when publishing or subscribing without a topic.
var ErrEmptyTopic = errors.New("mqtt topic is empty")
