package session

import (
	"context"
	"sync"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
)

// serialChannel holds a mutex for the duration of every wire round trip so
// the context, its producers and its consumers can share one channel.
type serialChannel struct {
	mu sync.Mutex
	ch broker.Channel
}

var _ broker.Channel = (*serialChannel)(nil)

func (s *serialChannel) QueueDeclare(name string, passive, durable, exclusive, autoDelete, noWait bool, args map[string]interface{}) (broker.QueueInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.QueueDeclare(name, passive, durable, exclusive, autoDelete, noWait, args)
}

func (s *serialChannel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.QueueDelete(name, ifUnused, ifEmpty, noWait)
}

func (s *serialChannel) QueuePurge(name string, noWait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.QueuePurge(name, noWait)
}

func (s *serialChannel) ExchangeDeclare(name, kind string, passive, durable, autoDelete, internal, noWait bool, args map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.ExchangeDeclare(name, kind, passive, durable, autoDelete, internal, noWait, args)
}

func (s *serialChannel) ExchangeDelete(name string, ifUnused, noWait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.ExchangeDelete(name, ifUnused, noWait)
}

func (s *serialChannel) QueueBind(queue, exchange, routingKey string, noWait bool, args map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.QueueBind(queue, exchange, routingKey, noWait, args)
}

func (s *serialChannel) QueueUnbind(queue, exchange, routingKey string, args map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.QueueUnbind(queue, exchange, routingKey, args)
}

func (s *serialChannel) ExchangeBind(destination, source, routingKey string, noWait bool, args map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.ExchangeBind(destination, source, routingKey, noWait, args)
}

func (s *serialChannel) ExchangeUnbind(destination, source, routingKey string, args map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.ExchangeUnbind(destination, source, routingKey, args)
}

func (s *serialChannel) Qos(prefetchSize, prefetchCount int, global bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Qos(prefetchSize, prefetchCount, global)
}

func (s *serialChannel) Publish(ctx context.Context, msg broker.Message, opts broker.PublishOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Publish(ctx, msg, opts)
}

func (s *serialChannel) Get(queue string, autoAck bool) (broker.Delivery, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Get(queue, autoAck)
}

func (s *serialChannel) Consume(opts broker.ConsumeOptions) (<-chan broker.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Consume(opts)
}

func (s *serialChannel) Cancel(consumerTag string, noWait bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Cancel(consumerTag, noWait)
}

func (s *serialChannel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Close()
}

// do runs fn while holding the channel lock. Used for delivery settlement,
// which goes over the same channel but not through the Channel interface.
func (s *serialChannel) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
