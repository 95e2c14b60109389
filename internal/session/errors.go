package session

import (
	"errors"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
)

var (
	// ErrConfiguration reports invalid construction arguments.
	ErrConfiguration = errors.New("invalid session configuration")

	// ErrInvalidDestination reports a destination of the wrong kind, or none.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrUnsupportedBind is returned for queue-to-queue binds, before any wire call.
	ErrUnsupportedBind = errors.New("cannot bind queue to queue; only topic-to-queue or topic-to-topic is valid")

	// ErrClosed is returned by operations on a closed context or consumer.
	ErrClosed = errors.New("session is closed")

	// ErrInvalidMessage reports a message property the wire cannot carry.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNotReceived is returned when settling a message that no consumer delivered.
	ErrNotReceived = errors.New("message was not received from the broker")
)

// ProtocolError is a broker rejection, returned unchanged from the channel.
type ProtocolError = broker.ProtocolError
