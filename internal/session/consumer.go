package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
	"github.com/arosenfeld2003/amqp_session/internal/buffer"
)

// ConsumerFlag is a bitset of basic.get/basic.consume options.
type ConsumerFlag uint8

const (
	ConsumerNoAck ConsumerFlag = 1 << iota
	ConsumerExclusive
	ConsumerNoLocal

	ConsumerNoFlags ConsumerFlag = 0
)

// Consumer reads messages from one queue over the context's shared channel.
type Consumer struct {
	channel      *serialChannel
	queue        *Queue
	buffer       *buffer.Buffer
	method       ReceiveMethod
	pollInterval time.Duration
	tag          string
	prepare      func() error

	mu         sync.Mutex
	flags      ConsumerFlag
	subscribed bool
	closed     bool
	pumped     chan struct{}
}

// newConsumer builds a consumer; prepare, if set, runs once before the
// basic.consume subscription starts.
func newConsumer(ch *serialChannel, queue *Queue, buf *buffer.Buffer, method ReceiveMethod, pollInterval time.Duration, prepare func() error) *Consumer {
	tag := queue.ConsumerTag
	if tag == "" {
		tag = "ctag-" + uuid.NewString()
	}
	return &Consumer{
		channel:      ch,
		queue:        queue,
		buffer:       buf,
		method:       method,
		pollInterval: pollInterval,
		tag:          tag,
		prepare:      prepare,
	}
}

func (c *Consumer) Queue() *Queue                { return c.queue }
func (c *Consumer) Tag() string                  { return c.tag }
func (c *Consumer) ReceiveMethod() ReceiveMethod { return c.method }

// AddFlag sets consume options. Flags only affect a basic_consume
// subscription that has not started yet.
func (c *Consumer) AddFlag(f ConsumerFlag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags |= f
}

func (c *Consumer) hasFlag(f ConsumerFlag) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags&f != 0
}

// Receive blocks until a message arrives or ctx is done.
func (c *Consumer) Receive(ctx context.Context) (*Message, error) {
	if c.method == ReceiveBasicConsume {
		if err := c.subscribe(); err != nil {
			return nil, err
		}
		d, err := c.buffer.Wait(ctx, c.tag)
		if errors.Is(err, buffer.ErrClosed) {
			return nil, ErrClosed
		}
		if err != nil {
			return nil, err
		}
		return messageFromDelivery(d), nil
	}

	for {
		msg, err := c.ReceiveNoWait()
		if err != nil || msg != nil {
			return msg, err
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// ReceiveNoWait returns the next message, or nil if none is ready.
func (c *Consumer) ReceiveNoWait() (*Message, error) {
	if c.method == ReceiveBasicConsume {
		if err := c.subscribe(); err != nil {
			return nil, err
		}
		d, ok := c.buffer.Pop(c.tag)
		if !ok {
			if c.buffer.Closed(c.tag) {
				return nil, ErrClosed
			}
			return nil, nil
		}
		return messageFromDelivery(d), nil
	}

	if c.isClosed() {
		return nil, ErrClosed
	}
	d, ok, err := c.channel.Get(c.queue.Name, c.hasFlag(ConsumerNoAck))
	if err != nil || !ok {
		return nil, err
	}
	d.ConsumerTag = c.tag
	return messageFromDelivery(d), nil
}

// subscribe starts basic.consume once and pumps deliveries into the shared
// buffer under the tag they were delivered for.
func (c *Consumer) subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.subscribed {
		return nil
	}
	if c.prepare != nil {
		if err := c.prepare(); err != nil {
			return err
		}
	}

	c.buffer.Open(c.tag)
	deliveries, err := c.channel.Consume(broker.ConsumeOptions{
		Queue:     c.queue.Name,
		Consumer:  c.tag,
		AutoAck:   c.flags&ConsumerNoAck != 0,
		Exclusive: c.flags&ConsumerExclusive != 0,
		NoLocal:   c.flags&ConsumerNoLocal != 0,
	})
	if err != nil {
		return err
	}
	c.subscribed = true
	c.pumped = make(chan struct{})

	go func() {
		defer close(c.pumped)
		for d := range deliveries {
			tag := d.ConsumerTag
			if tag == "" {
				tag = c.tag
			}
			if !c.buffer.Push(tag, d) {
				c.requeue(d)
			}
		}
	}()
	return nil
}

// requeue hands an unread delivery back to the broker. Auto-acked
// deliveries are already settled.
func (c *Consumer) requeue(d broker.Delivery) {
	if d.Reject == nil || c.hasFlag(ConsumerNoAck) {
		return
	}
	_ = c.channel.do(func() error { return d.Reject(true) })
}

// Acknowledge acks a message this consumer received.
func (c *Consumer) Acknowledge(msg *Message) error {
	if msg == nil || msg.delivery.Ack == nil {
		return ErrNotReceived
	}
	return c.channel.do(func() error { return msg.delivery.Ack(false) })
}

// Reject rejects a message this consumer received, optionally requeueing it.
func (c *Consumer) Reject(msg *Message, requeue bool) error {
	if msg == nil || msg.delivery.Reject == nil {
		return ErrNotReceived
	}
	return c.channel.do(func() error { return msg.delivery.Reject(requeue) })
}

// Close cancels the subscription, if any, wakes blocked receivers and
// requeues every delivery that was buffered but never read.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subscribed, pumped := c.subscribed, c.pumped
	c.mu.Unlock()

	if !subscribed {
		return nil
	}

	err := c.channel.Cancel(c.tag, false)
	for _, d := range c.buffer.Drop(c.tag) {
		c.requeue(d)
	}
	if err != nil && !errors.Is(err, broker.ErrChannelClosed) {
		return fmt.Errorf("cancel consumer %s: %w", c.tag, err)
	}
	// The delivery stream ends once the cancel is confirmed; late frames
	// are refused by the buffer and requeued by the pump.
	<-pumped
	return nil
}

func (c *Consumer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
