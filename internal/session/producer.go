package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
)

// Producer publishes messages over the context's shared channel. It is not
// tied to a destination; each Send names one.
type Producer struct {
	channel *serialChannel

	mu         sync.Mutex
	priority   *uint8
	timeToLive time.Duration
}

func newProducer(ch *serialChannel) *Producer {
	return &Producer{channel: ch}
}

// SetPriority sets the priority for messages that do not carry one.
func (p *Producer) SetPriority(priority uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priority = &priority
}

// SetTimeToLive sets the expiration for messages that do not carry one.
// Zero disables it.
func (p *Producer) SetTimeToLive(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeToLive = ttl
}

// Send publishes msg. A topic publishes to its exchange with the message's
// routing key; a queue publishes through the default exchange.
func (p *Producer) Send(ctx context.Context, dest Destination, msg *Message) error {
	if msg == nil {
		return errors.New("send: message is nil")
	}

	var opts broker.PublishOptions
	switch d := dest.(type) {
	case *Topic:
		if d == nil {
			return fmt.Errorf("%w: nil topic", ErrInvalidDestination)
		}
		opts = broker.PublishOptions{Exchange: d.Name, RoutingKey: msg.RoutingKey}
	case *Queue:
		if d == nil {
			return fmt.Errorf("%w: nil queue", ErrInvalidDestination)
		}
		opts = broker.PublishOptions{Exchange: "", RoutingKey: d.Name}
	default:
		return fmt.Errorf("%w: producer needs a queue or a topic, got %T", ErrInvalidDestination, dest)
	}
	opts.Mandatory = msg.HasFlag(MessageMandatory)
	opts.Immediate = msg.HasFlag(MessageImmediate)

	out, err := msg.toBroker()
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.priority != nil {
		if _, ok := msg.Properties[PropPriority]; !ok {
			out.Priority = *p.priority
		}
	}
	if p.timeToLive > 0 && out.Expiration == "" {
		out.Expiration = strconv.FormatInt(p.timeToLive.Milliseconds(), 10)
	}
	p.mu.Unlock()

	return p.channel.Publish(ctx, out, opts)
}
