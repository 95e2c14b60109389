// Package session exposes queues, topics, bindings, producers and consumers
// over a single AMQP channel.
//
// A Context owns one channel, acquired lazily on first use, and serializes
// every wire round trip on it. Bind and unbind requests are resolved from the
// abstract source/target model into the legal AMQP 0-9-1 primitive. Consumers
// created from one Context share its channel and its delivery buffer.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
	"github.com/arosenfeld2003/amqp_session/internal/buffer"
)

const defaultPollInterval = 100 * time.Millisecond

// ChannelFactory opens the channel a Context will own.
type ChannelFactory func() (broker.Channel, error)

// Option customizes a Context.
type Option func(*Context)

// WithLogger sets the logger used for debug events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithPollInterval sets how long basic_get consumers wait between empty polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Context is a session over one AMQP channel.
type Context struct {
	cfg          Config
	log          zerolog.Logger
	pollInterval time.Duration
	buffer       *buffer.Buffer

	mu         sync.Mutex // guards the following fields
	factory    ChannelFactory
	channel    *serialChannel
	closed     bool
	qosApplied bool
}

// New builds a context around an already open channel.
func New(ch broker.Channel, cfg Config, opts ...Option) (*Context, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: channel is nil", ErrConfiguration)
	}
	c, err := newContext(cfg, opts)
	if err != nil {
		return nil, err
	}
	c.channel = &serialChannel{ch: ch}
	return c, nil
}

// NewWithFactory builds a context that opens its channel on first use.
func NewWithFactory(factory ChannelFactory, cfg Config, opts ...Option) (*Context, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: channel factory is nil", ErrConfiguration)
	}
	c, err := newContext(cfg, opts)
	if err != nil {
		return nil, err
	}
	c.factory = factory
	return c, nil
}

func newContext(cfg Config, opts []Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Context{
		cfg:          cfg,
		log:          zerolog.Nop(),
		pollInterval: defaultPollInterval,
		buffer:       buffer.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the configuration fixed at construction.
func (c *Context) Config() Config { return c.cfg }

// Buffer returns the delivery buffer shared by this context's consumers.
func (c *Context) Buffer() *buffer.Buffer { return c.buffer }

// Channel returns the context's channel, invoking the factory the first time.
// Every call on the returned channel is serialized with the context's own
// operations.
func (c *Context) Channel() (broker.Channel, error) {
	ch, err := c.acquire()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Context) acquire() (*serialChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.channel != nil {
		return c.channel, nil
	}

	ch, err := c.factory()
	if err != nil {
		return nil, fmt.Errorf("acquire channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: channel factory returned a nil channel", ErrConfiguration)
	}
	c.channel = &serialChannel{ch: ch}
	c.factory = nil
	c.log.Debug().Msg("channel acquired")
	return c.channel, nil
}

// CreateMessage builds a message. It never touches the broker.
func (c *Context) CreateMessage(body []byte, properties, headers map[string]interface{}) *Message {
	return NewMessage(body, properties, headers)
}

// CreateQueue returns a queue with no flags and no arguments.
func (c *Context) CreateQueue(name string) *Queue {
	return &Queue{Name: name, Arguments: map[string]interface{}{}}
}

// CreateTopic returns a direct exchange with no flags and no arguments.
func (c *Context) CreateTopic(name string) *Topic {
	return &Topic{Name: name, Type: TypeDirect, Arguments: map[string]interface{}{}}
}

// CreateTemporaryQueue declares an exclusive, auto-deleted, broker-named
// queue and returns it with the assigned name.
func (c *Context) CreateTemporaryQueue() (*Queue, error) {
	ch, err := c.acquire()
	if err != nil {
		return nil, err
	}

	info, err := ch.QueueDeclare("", false, false, true, true, false, nil)
	if err != nil {
		return nil, err
	}

	q := c.CreateQueue(info.Name)
	q.AddFlag(QueueExclusive)
	c.log.Debug().Str("queue", q.Name).Msg("temporary queue declared")
	return q, nil
}

// CreateConsumer returns a consumer for a queue. For a topic it declares a
// temporary queue, binds it to the topic with the queue name as routing key,
// and consumes from that queue.
func (c *Context) CreateConsumer(dest Destination) (*Consumer, error) {
	var queue *Queue
	switch d := dest.(type) {
	case *Queue:
		if d == nil {
			return nil, fmt.Errorf("%w: nil queue", ErrInvalidDestination)
		}
		queue = d
	case *Topic:
		if d == nil {
			return nil, fmt.Errorf("%w: nil topic", ErrInvalidDestination)
		}
		tmp, err := c.CreateTemporaryQueue()
		if err != nil {
			return nil, err
		}
		if err := c.Bind(NewBind(d, tmp, tmp.Name)); err != nil {
			return nil, err
		}
		queue = tmp
	default:
		return nil, fmt.Errorf("%w: consumer needs a queue or a topic, got %T", ErrInvalidDestination, dest)
	}

	ch, err := c.acquire()
	if err != nil {
		return nil, err
	}

	consumer := newConsumer(ch, queue, c.buffer, c.cfg.ReceiveMethod, c.pollInterval, c.applyQos)
	c.log.Debug().
		Str("queue", queue.Name).
		Str("consumer_tag", consumer.Tag()).
		Str("receive_method", string(c.cfg.ReceiveMethod)).
		Msg("consumer created")
	return consumer, nil
}

// CreateProducer returns a producer publishing on the context's channel.
func (c *Context) CreateProducer() (*Producer, error) {
	ch, err := c.acquire()
	if err != nil {
		return nil, err
	}
	c.log.Debug().Msg("producer created")
	return newProducer(ch), nil
}

// SetQos limits how much unacknowledged data the broker delivers.
func (c *Context) SetQos(prefetchSize, prefetchCount int, global bool) error {
	ch, err := c.acquire()
	if err != nil {
		return err
	}
	if err := ch.Qos(prefetchSize, prefetchCount, global); err != nil {
		return err
	}

	c.mu.Lock()
	c.qosApplied = true
	c.mu.Unlock()
	return nil
}

// applyQos sends the configured QoS before the first basic.consume
// subscription unless some QoS was already set. Prefetch does not limit
// basic.get, so polling consumers never trigger it.
func (c *Context) applyQos() error {
	c.mu.Lock()
	if c.qosApplied {
		c.mu.Unlock()
		return nil
	}
	c.qosApplied = true
	c.mu.Unlock()

	err := c.SetQos(c.cfg.QosPrefetchSize, c.cfg.QosPrefetchCount, c.cfg.QosGlobal)
	if err != nil {
		c.mu.Lock()
		c.qosApplied = false
		c.mu.Unlock()
	}
	return err
}

// Close closes the channel if it was ever acquired. It is safe to call more
// than once.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.factory = nil
	if c.channel == nil {
		c.buffer.Close()
		return nil
	}

	// The broker requeues unacknowledged deliveries when the channel closes.
	c.log.Debug().Msg("closing channel")
	err := c.channel.Close()
	if n := len(c.buffer.Close()); n > 0 {
		c.log.Debug().Int("frames", n).Msg("discarded buffered deliveries")
	}
	return err
}
