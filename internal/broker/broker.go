package broker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AMQP reply codes surfaced by ProtocolError.
const (
	CodeNotFound           = 404
	CodeAccessRefused      = 403
	CodeResourceLocked     = 405
	CodePreconditionFailed = 406
	CodeCommandInvalid     = 503
	CodeChannelError       = 504
	CodeNotAllowed         = 530
	CodeNotImplemented     = 540
)

// ErrChannelClosed is returned for calls on a channel that was already closed.
var ErrChannelClosed = errors.New("channel is closed")

// Message represents a broker-agnostic payload.
type Message struct {
	Body            []byte
	ContentType     string
	ContentEncoding string
	CorrelationID   string
	ReplyTo         string
	MessageID       string
	Type            string
	UserID          string
	AppID           string
	Expiration      string
	Priority        uint8
	Headers         map[string]interface{}
	Timestamp       time.Time
	DeliveryMode    uint8
}

// PublishOptions defines routing metadata for a publish call.
type PublishOptions struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Immediate  bool
}

// QueueInfo exposes broker queue metadata.
type QueueInfo struct {
	Name      string
	Messages  int
	Consumers int
}

// ConsumeOptions defines subscription settings.
type ConsumeOptions struct {
	Queue     string
	Consumer  string
	AutoAck   bool
	Exclusive bool
	NoLocal   bool
	NoWait    bool
	Arguments map[string]interface{}
}

// Delivery is a broker-agnostic message delivery.
type Delivery struct {
	Message
	ConsumerTag  string
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount int
	Ack          func(multiple bool) error
	Nack         func(requeue bool) error
	Reject       func(requeue bool) error
}

// Channel is a single duplex session to the broker. Implementations are not
// required to be safe for concurrent use; callers serialize access.
type Channel interface {
	QueueDeclare(name string, passive, durable, exclusive, autoDelete, noWait bool, args map[string]interface{}) (QueueInfo, error)
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) error
	QueuePurge(name string, noWait bool) error
	ExchangeDeclare(name, kind string, passive, durable, autoDelete, internal, noWait bool, args map[string]interface{}) error
	ExchangeDelete(name string, ifUnused, noWait bool) error

	// QueueBind and ExchangeBind take the destination first, as on the wire.
	QueueBind(queue, exchange, routingKey string, noWait bool, args map[string]interface{}) error
	QueueUnbind(queue, exchange, routingKey string, args map[string]interface{}) error
	ExchangeBind(destination, source, routingKey string, noWait bool, args map[string]interface{}) error
	ExchangeUnbind(destination, source, routingKey string, args map[string]interface{}) error

	Qos(prefetchSize, prefetchCount int, global bool) error
	Publish(ctx context.Context, msg Message, opts PublishOptions) error
	Get(queue string, autoAck bool) (Delivery, bool, error)
	Consume(opts ConsumeOptions) (<-chan Delivery, error)
	Cancel(consumerTag string, noWait bool) error
	Close() error
}

// Connection hands out channels over one physical connection.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// ProtocolError is a broker rejection of a channel method.
type ProtocolError struct {
	Method string
	Code   int
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("%s: %d %s", e.Method, e.Code, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsProtocolError reports whether err carries a broker rejection, optionally
// with the given reply code (0 matches any code).
func IsProtocolError(err error, code int) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	return code == 0 || pe.Code == code
}
