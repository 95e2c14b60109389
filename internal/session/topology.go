package session

import "fmt"

// DeclareTopic declares the exchange described by topic.
func (c *Context) DeclareTopic(topic *Topic) error {
	if topic == nil {
		return fmt.Errorf("%w: nil topic", ErrInvalidDestination)
	}
	ch, err := c.acquire()
	if err != nil {
		return err
	}
	return ch.ExchangeDeclare(
		topic.Name,
		topic.Type,
		topic.HasFlag(TopicPassive),
		topic.HasFlag(TopicDurable),
		topic.HasFlag(TopicAutoDelete),
		topic.HasFlag(TopicInternal),
		topic.HasFlag(TopicNoWait),
		topic.Arguments,
	)
}

// DeleteTopic deletes the exchange described by topic.
func (c *Context) DeleteTopic(topic *Topic) error {
	if topic == nil {
		return fmt.Errorf("%w: nil topic", ErrInvalidDestination)
	}
	ch, err := c.acquire()
	if err != nil {
		return err
	}
	return ch.ExchangeDelete(
		topic.Name,
		topic.HasFlag(TopicIfUnused),
		topic.HasFlag(TopicNoWait),
	)
}

// DeclareQueue declares the queue and returns the broker's message count.
func (c *Context) DeclareQueue(queue *Queue) (int, error) {
	if queue == nil {
		return 0, fmt.Errorf("%w: nil queue", ErrInvalidDestination)
	}
	ch, err := c.acquire()
	if err != nil {
		return 0, err
	}
	info, err := ch.QueueDeclare(
		queue.Name,
		queue.HasFlag(QueuePassive),
		queue.HasFlag(QueueDurable),
		queue.HasFlag(QueueExclusive),
		queue.HasFlag(QueueAutoDelete),
		queue.HasFlag(QueueNoWait),
		queue.Arguments,
	)
	if err != nil {
		return 0, err
	}
	return info.Messages, nil
}

// DeleteQueue deletes the queue.
func (c *Context) DeleteQueue(queue *Queue) error {
	if queue == nil {
		return fmt.Errorf("%w: nil queue", ErrInvalidDestination)
	}
	ch, err := c.acquire()
	if err != nil {
		return err
	}
	return ch.QueueDelete(
		queue.Name,
		queue.HasFlag(QueueIfUnused),
		queue.HasFlag(QueueIfEmpty),
		queue.HasFlag(QueueNoWait),
	)
}

// PurgeQueue removes every ready message from the queue.
func (c *Context) PurgeQueue(queue *Queue) error {
	if queue == nil {
		return fmt.Errorf("%w: nil queue", ErrInvalidDestination)
	}
	ch, err := c.acquire()
	if err != nil {
		return err
	}
	return ch.QueuePurge(queue.Name, queue.HasFlag(QueueNoWait))
}

type bindingKind int

const (
	exchangeToExchange bindingKind = iota + 1
	queueToExchange
)

// binding is a bind request in wire argument order.
type binding struct {
	kind bindingKind
	// destination is the queue for queueToExchange and the destination
	// exchange for exchangeToExchange.
	destination string
	source      string
}

// resolveBinding maps a Bind onto the one legal wire primitive:
//
//	topic -> topic : exchange.bind(destination=target, source=source)
//	queue -> topic : queue.bind(queue=source, exchange=target)
//	topic -> queue : queue.bind(queue=target, exchange=source)
//
// queue -> queue has no wire form and is rejected.
func resolveBinding(b *Bind) (binding, error) {
	if b == nil {
		return binding{}, fmt.Errorf("%w: nil bind", ErrInvalidDestination)
	}

	switch src := b.Source.(type) {
	case *Topic:
		if src == nil {
			break
		}
		switch dst := b.Target.(type) {
		case *Topic:
			if dst != nil {
				return binding{kind: exchangeToExchange, destination: dst.Name, source: src.Name}, nil
			}
		case *Queue:
			if dst != nil {
				return binding{kind: queueToExchange, destination: dst.Name, source: src.Name}, nil
			}
		}
	case *Queue:
		if src == nil {
			break
		}
		switch dst := b.Target.(type) {
		case *Queue:
			return binding{}, ErrUnsupportedBind
		case *Topic:
			if dst != nil {
				return binding{kind: queueToExchange, destination: src.Name, source: dst.Name}, nil
			}
		}
	}
	return binding{}, fmt.Errorf("%w: bind needs a queue or a topic on both sides, got %T and %T",
		ErrInvalidDestination, b.Source, b.Target)
}

// Bind creates the binding on the broker.
func (c *Context) Bind(b *Bind) error {
	wire, err := resolveBinding(b)
	if err != nil {
		return err
	}
	ch, err := c.acquire()
	if err != nil {
		return err
	}

	noWait := b.HasFlag(BindNoWait)
	if wire.kind == exchangeToExchange {
		return ch.ExchangeBind(wire.destination, wire.source, b.RoutingKey, noWait, b.Arguments)
	}
	return ch.QueueBind(wire.destination, wire.source, b.RoutingKey, noWait, b.Arguments)
}

// Unbind removes the binding. BindNoWait is ignored: the unbind methods
// always wait for the broker's reply.
func (c *Context) Unbind(b *Bind) error {
	wire, err := resolveBinding(b)
	if err != nil {
		return err
	}
	ch, err := c.acquire()
	if err != nil {
		return err
	}

	if wire.kind == exchangeToExchange {
		return ch.ExchangeUnbind(wire.destination, wire.source, b.RoutingKey, b.Arguments)
	}
	return ch.QueueUnbind(wire.destination, wire.source, b.RoutingKey, b.Arguments)
}
