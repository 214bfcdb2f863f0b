package kafka

import "github.com/rotisserie/eris"

var (
	// ErrPublisherClosed is returned when trying to publish on a closed publisher
	ErrPublisherClosed = eris.New("publisher is closed")

	// ErrInvalidBrokers is returned when no brokers are configured
	ErrInvalidBrokers = eris.New("no kafka brokers configured")

	// ErrInvalidTopic is returned when topic is empty
	ErrInvalidTopic = eris.New("kafka topic cannot be empty")
)
