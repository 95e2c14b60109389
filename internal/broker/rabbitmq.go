package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig defines connection settings.
type RabbitMQConfig struct {
	URL            string
	ConnectionName string
	Heartbeat      time.Duration
	Locale         string
	ChannelMax     int
	FrameSize      int
}

// RabbitMQ is a physical RabbitMQ connection that opens channels on demand.
type RabbitMQ struct {
	cfg    RabbitMQConfig
	conn   *amqp.Connection
	mu     sync.Mutex
	closed bool
}

var _ Connection = (*RabbitMQ)(nil)

// NewRabbitMQ establishes a new RabbitMQ connection.
func NewRabbitMQ(ctx context.Context, cfg RabbitMQConfig) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = 10 * time.Second
	}
	if cfg.Locale == "" {
		cfg.Locale = "en_US"
	}

	config := amqp.Config{
		Heartbeat: cfg.Heartbeat,
		Locale:    cfg.Locale,
		Properties: amqp.Table{
			"connection_name": cfg.ConnectionName,
		},
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
	if cfg.ChannelMax > 0 {
		config.ChannelMax = uint16(cfg.ChannelMax)
	}
	if cfg.FrameSize > 0 {
		config.FrameSize = cfg.FrameSize
	}

	conn, err := amqp.DialConfig(cfg.URL, config)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	return &RabbitMQ{cfg: cfg, conn: conn}, nil
}

// Channel opens a new channel on the connection. Its signature matches the
// session channel factory.
func (b *RabbitMQ) Channel() (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.conn == nil || b.conn.IsClosed() {
		return nil, errors.New("rabbitmq connection is closed")
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return NewAMQPChannel(ch), nil
}

// Close shuts down the broker connection.
func (b *RabbitMQ) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

// AMQPChannel implements Channel on top of an amqp091 channel.
type AMQPChannel struct {
	ch *amqp.Channel
}

var _ Channel = (*AMQPChannel)(nil)

// NewAMQPChannel wraps an open amqp091 channel.
func NewAMQPChannel(ch *amqp.Channel) *AMQPChannel {
	return &AMQPChannel{ch: ch}
}

func (c *AMQPChannel) QueueDeclare(name string, passive, durable, exclusive, autoDelete, noWait bool, args map[string]interface{}) (QueueInfo, error) {
	declare := c.ch.QueueDeclare
	if passive {
		declare = c.ch.QueueDeclarePassive
	}
	q, err := declare(name, durable, autoDelete, exclusive, noWait, toTable(args))
	if err != nil {
		return QueueInfo{}, protocolError("queue.declare", err)
	}
	return QueueInfo{Name: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
}

func (c *AMQPChannel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) error {
	if _, err := c.ch.QueueDelete(name, ifUnused, ifEmpty, noWait); err != nil {
		return protocolError("queue.delete", err)
	}
	return nil
}

func (c *AMQPChannel) QueuePurge(name string, noWait bool) error {
	if _, err := c.ch.QueuePurge(name, noWait); err != nil {
		return protocolError("queue.purge", err)
	}
	return nil
}

func (c *AMQPChannel) ExchangeDeclare(name, kind string, passive, durable, autoDelete, internal, noWait bool, args map[string]interface{}) error {
	declare := c.ch.ExchangeDeclare
	if passive {
		declare = c.ch.ExchangeDeclarePassive
	}
	if err := declare(name, kind, durable, autoDelete, internal, noWait, toTable(args)); err != nil {
		return protocolError("exchange.declare", err)
	}
	return nil
}

func (c *AMQPChannel) ExchangeDelete(name string, ifUnused, noWait bool) error {
	if err := c.ch.ExchangeDelete(name, ifUnused, noWait); err != nil {
		return protocolError("exchange.delete", err)
	}
	return nil
}

func (c *AMQPChannel) QueueBind(queue, exchange, routingKey string, noWait bool, args map[string]interface{}) error {
	if err := c.ch.QueueBind(queue, routingKey, exchange, noWait, toTable(args)); err != nil {
		return protocolError("queue.bind", err)
	}
	return nil
}

func (c *AMQPChannel) QueueUnbind(queue, exchange, routingKey string, args map[string]interface{}) error {
	if err := c.ch.QueueUnbind(queue, routingKey, exchange, toTable(args)); err != nil {
		return protocolError("queue.unbind", err)
	}
	return nil
}

func (c *AMQPChannel) ExchangeBind(destination, source, routingKey string, noWait bool, args map[string]interface{}) error {
	if err := c.ch.ExchangeBind(destination, routingKey, source, noWait, toTable(args)); err != nil {
		return protocolError("exchange.bind", err)
	}
	return nil
}

// ExchangeUnbind always waits for exchange.unbind-ok.
func (c *AMQPChannel) ExchangeUnbind(destination, source, routingKey string, args map[string]interface{}) error {
	if err := c.ch.ExchangeUnbind(destination, routingKey, source, false, toTable(args)); err != nil {
		return protocolError("exchange.unbind", err)
	}
	return nil
}

func (c *AMQPChannel) Qos(prefetchSize, prefetchCount int, global bool) error {
	if err := c.ch.Qos(prefetchCount, prefetchSize, global); err != nil {
		return protocolError("basic.qos", err)
	}
	return nil
}

func (c *AMQPChannel) Publish(ctx context.Context, msg Message, opts PublishOptions) error {
	publishing := amqp.Publishing{
		Body:            msg.Body,
		ContentType:     msg.ContentType,
		ContentEncoding: msg.ContentEncoding,
		Headers:         toTable(msg.Headers),
		Timestamp:       msg.Timestamp,
		CorrelationId:   msg.CorrelationID,
		ReplyTo:         msg.ReplyTo,
		MessageId:       msg.MessageID,
		Type:            msg.Type,
		UserId:          msg.UserID,
		AppId:           msg.AppID,
		Expiration:      msg.Expiration,
		Priority:        msg.Priority,
		DeliveryMode:    msg.DeliveryMode,
	}
	if publishing.Timestamp.IsZero() {
		publishing.Timestamp = time.Now()
	}

	if err := c.ch.PublishWithContext(
		ctx,
		opts.Exchange,
		opts.RoutingKey,
		opts.Mandatory,
		opts.Immediate,
		publishing,
	); err != nil {
		return protocolError("basic.publish", err)
	}
	return nil
}

func (c *AMQPChannel) Get(queue string, autoAck bool) (Delivery, bool, error) {
	d, ok, err := c.ch.Get(queue, autoAck)
	if err != nil {
		return Delivery{}, false, protocolError("basic.get", err)
	}
	if !ok {
		return Delivery{}, false, nil
	}
	return deliveryFromAMQP(d), true, nil
}

func (c *AMQPChannel) Consume(opts ConsumeOptions) (<-chan Delivery, error) {
	deliveries, err := c.ch.Consume(
		opts.Queue,
		opts.Consumer,
		opts.AutoAck,
		opts.Exclusive,
		opts.NoLocal,
		opts.NoWait,
		toTable(opts.Arguments),
	)
	if err != nil {
		return nil, protocolError("basic.consume", err)
	}

	out := make(chan Delivery, 128)
	go func() {
		defer close(out)
		for d := range deliveries {
			out <- deliveryFromAMQP(d)
		}
	}()
	return out, nil
}

func (c *AMQPChannel) Cancel(consumerTag string, noWait bool) error {
	if err := c.ch.Cancel(consumerTag, noWait); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return protocolError("basic.cancel", err)
	}
	return nil
}

func (c *AMQPChannel) Close() error {
	if c.ch == nil {
		return nil
	}
	if err := c.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}

func protocolError(method string, err error) error {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return &ProtocolError{Method: method, Code: amqpErr.Code, Reason: amqpErr.Reason, Err: err}
	}
	return &ProtocolError{Method: method, Reason: err.Error(), Err: err}
}

func toTable(values map[string]interface{}) amqp.Table {
	if len(values) == 0 {
		return nil
	}
	table := amqp.Table{}
	for key, value := range values {
		table[key] = value
	}
	return table
}

func fromTable(values amqp.Table) map[string]interface{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}

func deliveryFromAMQP(d amqp.Delivery) Delivery {
	return Delivery{
		Message: Message{
			Body:            d.Body,
			ContentType:     d.ContentType,
			ContentEncoding: d.ContentEncoding,
			CorrelationID:   d.CorrelationId,
			ReplyTo:         d.ReplyTo,
			MessageID:       d.MessageId,
			Type:            d.Type,
			UserID:          d.UserId,
			AppID:           d.AppId,
			Expiration:      d.Expiration,
			Priority:        d.Priority,
			Headers:         fromTable(d.Headers),
			Timestamp:       d.Timestamp,
			DeliveryMode:    d.DeliveryMode,
		},
		ConsumerTag:  d.ConsumerTag,
		DeliveryTag:  d.DeliveryTag,
		Redelivered:  d.Redelivered,
		Exchange:     d.Exchange,
		RoutingKey:   d.RoutingKey,
		MessageCount: int(d.MessageCount),
		Ack: func(multiple bool) error {
			return d.Ack(multiple)
		},
		Nack: func(requeue bool) error {
			return d.Nack(false, requeue)
		},
		Reject: func(requeue bool) error {
			return d.Reject(requeue)
		},
	}
}
