package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Call captures a single wire method invocation on a MockChannel.
type Call struct {
	Method string
	Args   []interface{}
}

// PublishedMessage captures mock publish calls for assertions.
type PublishedMessage struct {
	Message Message
	Options PublishOptions
	Time    time.Time
}

// MockBinding is a routing entry from a source exchange.
type MockBinding struct {
	Source      string
	Destination string
	RoutingKey  string
	ToExchange  bool
	Arguments   map[string]interface{}
}

type mockExchange struct {
	kind       string
	durable    bool
	autoDelete bool
	internal   bool
	arguments  map[string]interface{}
}

type mockConsumer struct {
	tag     string
	owner   *MockChannel
	autoAck bool
	out     chan Delivery
}

type mockQueue struct {
	name       string
	durable    bool
	exclusive  bool
	autoDelete bool
	owner      *MockChannel
	messages   []Delivery
	consumers  []*mockConsumer
	next       int
}

// MockBroker is an in-memory AMQP broker for tests. It keeps exchanges,
// queues and bindings and routes publishes the way RabbitMQ does for the
// direct, fanout, topic and headers exchange types.
type MockBroker struct {
	mu          sync.Mutex
	exchanges   map[string]*mockExchange
	queues      map[string]*mockQueue
	bindings    map[string][]MockBinding
	published   []PublishedMessage
	acked       []uint64
	deliveryTag uint64
	closed      bool
}

var _ Connection = (*MockBroker)(nil)

// NewMockBroker constructs an in-memory broker with the default exchanges.
func NewMockBroker() *MockBroker {
	m := &MockBroker{
		exchanges: map[string]*mockExchange{},
		queues:    map[string]*mockQueue{},
		bindings:  map[string][]MockBinding{},
	}
	m.exchanges["amq.direct"] = &mockExchange{kind: "direct", durable: true}
	m.exchanges["amq.fanout"] = &mockExchange{kind: "fanout", durable: true}
	m.exchanges["amq.topic"] = &mockExchange{kind: "topic", durable: true}
	m.exchanges["amq.headers"] = &mockExchange{kind: "headers", durable: true}
	return m
}

// Channel opens a new mock channel.
func (m *MockBroker) Channel() (Channel, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errors.New("mock broker is closed")
	}
	return m.NewChannel(), nil
}

// NewChannel returns a concrete mock channel so tests can inspect its calls.
func (m *MockBroker) NewChannel() *MockChannel {
	return &MockChannel{broker: m, failures: map[string]error{}}
}

// Published returns a snapshot of published messages.
func (m *MockBroker) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// Acked returns the delivery tags acknowledged so far.
func (m *MockBroker) Acked() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]uint64, len(m.acked))
	copy(out, m.acked)
	return out
}

// HasQueue reports whether a queue exists.
func (m *MockBroker) HasQueue(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.queues[name]
	return ok
}

// HasExchange reports whether an exchange exists.
func (m *MockBroker) HasExchange(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.exchanges[name]
	return ok
}

// QueueDepth returns the number of ready messages in a queue.
func (m *MockBroker) QueueDepth(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[name]; ok {
		return len(q.messages)
	}
	return 0
}

// Bindings returns the bindings whose source is the given exchange.
func (m *MockBroker) Bindings(source string) []MockBinding {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MockBinding, len(m.bindings[source]))
	copy(out, m.bindings[source])
	return out
}

// Close shuts down the mock broker and every consumer stream.
func (m *MockBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, q := range m.queues {
		for _, c := range q.consumers {
			close(c.out)
		}
		q.consumers = nil
	}
	return nil
}

// MockChannel records every wire call and applies it to the shared MockBroker.
type MockChannel struct {
	broker *MockBroker

	mu       sync.Mutex
	calls    []Call
	failures map[string]error
	closed   bool
}

var _ Channel = (*MockChannel)(nil)

// Calls returns a snapshot of the recorded wire calls.
func (c *MockChannel) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsTo returns the recorded calls for one method, e.g. "queue.bind".
func (c *MockChannel) CallsTo(method string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// FailOn makes every subsequent call to method return err.
func (c *MockChannel) FailOn(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = err
}

// IsClosed reports whether Close was called.
func (c *MockChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockChannel) record(method string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Method: method, Args: args})
	if c.closed {
		return &ProtocolError{Method: method, Code: CodeChannelError, Reason: "channel/connection is not open", Err: ErrChannelClosed}
	}
	if err, ok := c.failures[method]; ok {
		return err
	}
	return nil
}

func (c *MockChannel) QueueDeclare(name string, passive, durable, exclusive, autoDelete, noWait bool, args map[string]interface{}) (QueueInfo, error) {
	const method = "queue.declare"
	if err := c.record(method, name, passive, durable, exclusive, autoDelete, noWait, copyArgs(args)); err != nil {
		return QueueInfo{}, err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return QueueInfo{}, err
	}

	q, ok := m.queues[name]
	if passive {
		if !ok {
			return QueueInfo{}, notFound(method, "queue", name)
		}
		if q.exclusive && q.owner != c {
			return QueueInfo{}, resourceLocked(method, name)
		}
		return queueInfo(q), nil
	}

	if name == "" {
		name = "amq.gen-" + uuid.NewString()
	} else if strings.HasPrefix(name, "amq.") && !ok {
		return QueueInfo{}, &ProtocolError{Method: method, Code: CodeAccessRefused,
			Reason: fmt.Sprintf("ACCESS_REFUSED - queue name '%s' contains reserved prefix 'amq.*'", name)}
	}

	if ok {
		if q.exclusive && q.owner != c {
			return QueueInfo{}, resourceLocked(method, name)
		}
		if q.durable != durable || q.exclusive != exclusive || q.autoDelete != autoDelete {
			return QueueInfo{}, &ProtocolError{Method: method, Code: CodePreconditionFailed,
				Reason: fmt.Sprintf("PRECONDITION_FAILED - inequivalent arg for queue '%s'", name)}
		}
		return queueInfo(q), nil
	}

	q = &mockQueue{name: name, durable: durable, exclusive: exclusive, autoDelete: autoDelete}
	if exclusive {
		q.owner = c
	}
	m.queues[name] = q
	return queueInfo(q), nil
}

func (c *MockChannel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) error {
	const method = "queue.delete"
	if err := c.record(method, name, ifUnused, ifEmpty, noWait); err != nil {
		return err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	q, ok := m.queues[name]
	if !ok {
		return nil
	}
	if ifUnused && len(q.consumers) > 0 {
		return preconditionFailed(method, fmt.Sprintf("queue '%s' in use", name))
	}
	if ifEmpty && len(q.messages) > 0 {
		return preconditionFailed(method, fmt.Sprintf("queue '%s' not empty", name))
	}
	m.deleteQueueLocked(q)
	return nil
}

func (c *MockChannel) QueuePurge(name string, noWait bool) error {
	const method = "queue.purge"
	if err := c.record(method, name, noWait); err != nil {
		return err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	q, ok := m.queues[name]
	if !ok {
		return notFound(method, "queue", name)
	}
	q.messages = nil
	return nil
}

func (c *MockChannel) ExchangeDeclare(name, kind string, passive, durable, autoDelete, internal, noWait bool, args map[string]interface{}) error {
	const method = "exchange.declare"
	if err := c.record(method, name, kind, passive, durable, autoDelete, internal, noWait, copyArgs(args)); err != nil {
		return err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	ex, ok := m.exchanges[name]
	if passive {
		if !ok {
			return notFound(method, "exchange", name)
		}
		return nil
	}
	if name == "" || (strings.HasPrefix(name, "amq.") && !ok) {
		return &ProtocolError{Method: method, Code: CodeAccessRefused,
			Reason: fmt.Sprintf("ACCESS_REFUSED - exchange name '%s' contains reserved prefix 'amq.*'", name)}
	}
	switch kind {
	case "direct", "fanout", "topic", "headers":
	default:
		return &ProtocolError{Method: method, Code: CodeCommandInvalid,
			Reason: fmt.Sprintf("COMMAND_INVALID - unknown exchange type '%s'", kind)}
	}

	if ok {
		if ex.kind != kind || ex.durable != durable || ex.autoDelete != autoDelete || ex.internal != internal {
			return &ProtocolError{Method: method, Code: CodePreconditionFailed,
				Reason: fmt.Sprintf("PRECONDITION_FAILED - inequivalent arg for exchange '%s'", name)}
		}
		return nil
	}
	m.exchanges[name] = &mockExchange{kind: kind, durable: durable, autoDelete: autoDelete, internal: internal, arguments: copyArgs(args)}
	return nil
}

func (c *MockChannel) ExchangeDelete(name string, ifUnused, noWait bool) error {
	const method = "exchange.delete"
	if err := c.record(method, name, ifUnused, noWait); err != nil {
		return err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	if _, ok := m.exchanges[name]; !ok {
		return nil
	}
	if ifUnused && len(m.bindings[name]) > 0 {
		return preconditionFailed(method, fmt.Sprintf("exchange '%s' in use", name))
	}
	delete(m.exchanges, name)
	delete(m.bindings, name)
	for source, list := range m.bindings {
		m.bindings[source] = removeBindings(list, func(b MockBinding) bool {
			return b.ToExchange && b.Destination == name
		})
	}
	return nil
}

func (c *MockChannel) QueueBind(queue, exchange, routingKey string, noWait bool, args map[string]interface{}) error {
	const method = "queue.bind"
	if err := c.record(method, queue, exchange, routingKey, noWait, copyArgs(args)); err != nil {
		return err
	}
	return c.broker.bind(method, MockBinding{Source: exchange, Destination: queue, RoutingKey: routingKey, Arguments: copyArgs(args)})
}

func (c *MockChannel) QueueUnbind(queue, exchange, routingKey string, args map[string]interface{}) error {
	const method = "queue.unbind"
	if err := c.record(method, queue, exchange, routingKey, copyArgs(args)); err != nil {
		return err
	}
	return c.broker.unbind(method, MockBinding{Source: exchange, Destination: queue, RoutingKey: routingKey})
}

func (c *MockChannel) ExchangeBind(destination, source, routingKey string, noWait bool, args map[string]interface{}) error {
	const method = "exchange.bind"
	if err := c.record(method, destination, source, routingKey, noWait, copyArgs(args)); err != nil {
		return err
	}
	return c.broker.bind(method, MockBinding{Source: source, Destination: destination, RoutingKey: routingKey, ToExchange: true, Arguments: copyArgs(args)})
}

func (c *MockChannel) ExchangeUnbind(destination, source, routingKey string, args map[string]interface{}) error {
	const method = "exchange.unbind"
	if err := c.record(method, destination, source, routingKey, copyArgs(args)); err != nil {
		return err
	}
	return c.broker.unbind(method, MockBinding{Source: source, Destination: destination, RoutingKey: routingKey, ToExchange: true})
}

func (c *MockChannel) Qos(prefetchSize, prefetchCount int, global bool) error {
	const method = "basic.qos"
	if err := c.record(method, prefetchSize, prefetchCount, global); err != nil {
		return err
	}
	if prefetchSize != 0 {
		return &ProtocolError{Method: method, Code: CodeNotImplemented, Reason: "NOT_IMPLEMENTED - prefetch_size!=0"}
	}
	if prefetchCount < 0 || prefetchCount > 65535 {
		return preconditionFailed(method, fmt.Sprintf("invalid prefetch_count %d", prefetchCount))
	}
	return nil
}

func (c *MockChannel) Publish(_ context.Context, msg Message, opts PublishOptions) error {
	const method = "basic.publish"
	if err := c.record(method, opts.Exchange, opts.RoutingKey, opts.Mandatory, opts.Immediate); err != nil {
		return err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	m.published = append(m.published, PublishedMessage{Message: msg, Options: opts, Time: time.Now()})
	var targets []string
	if opts.Exchange == "" {
		if _, ok := m.queues[opts.RoutingKey]; ok {
			targets = []string{opts.RoutingKey}
		}
	} else {
		if _, ok := m.exchanges[opts.Exchange]; !ok {
			return notFound(method, "exchange", opts.Exchange)
		}
		targets = m.routeLocked(opts.Exchange, opts.RoutingKey, msg.Headers, map[string]bool{})
	}
	for _, name := range targets {
		m.enqueueLocked(m.queues[name], Delivery{
			Message:    msg,
			Exchange:   opts.Exchange,
			RoutingKey: opts.RoutingKey,
		})
	}
	return nil
}

func (c *MockChannel) Get(queue string, autoAck bool) (Delivery, bool, error) {
	const method = "basic.get"
	if err := c.record(method, queue, autoAck); err != nil {
		return Delivery{}, false, err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return Delivery{}, false, err
	}

	q, ok := m.queues[queue]
	if !ok {
		return Delivery{}, false, notFound(method, "queue", queue)
	}
	if len(q.messages) == 0 {
		return Delivery{}, false, nil
	}
	d := q.messages[0]
	q.messages = q.messages[1:]
	d.MessageCount = len(q.messages)
	return m.stampLocked(q, d, "", autoAck), true, nil
}

func (c *MockChannel) Consume(opts ConsumeOptions) (<-chan Delivery, error) {
	const method = "basic.consume"
	if err := c.record(method, opts.Queue, opts.Consumer, opts.AutoAck, opts.Exclusive, opts.NoLocal, opts.NoWait); err != nil {
		return nil, err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return nil, err
	}

	q, ok := m.queues[opts.Queue]
	if !ok {
		return nil, notFound(method, "queue", opts.Queue)
	}
	tag := opts.Consumer
	if tag == "" {
		tag = "amq.ctag-" + uuid.NewString()
	}
	for _, existing := range m.queues {
		for _, consumer := range existing.consumers {
			if consumer.owner == c && consumer.tag == tag {
				return nil, &ProtocolError{Method: method, Code: CodeNotAllowed,
					Reason: fmt.Sprintf("NOT_ALLOWED - attempt to reuse consumer tag '%s'", tag)}
			}
		}
	}

	consumer := &mockConsumer{tag: tag, owner: c, autoAck: opts.AutoAck, out: make(chan Delivery, 128)}
	q.consumers = append(q.consumers, consumer)

	m.dispatchLocked(q)
	return consumer.out, nil
}

func (c *MockChannel) Cancel(consumerTag string, noWait bool) error {
	if err := c.record("basic.cancel", consumerTag, noWait); err != nil {
		return err
	}

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(func(consumer *mockConsumer) bool {
		return consumer.owner == c && consumer.tag == consumerTag
	})
	return nil
}

// Close cancels the channel's consumers and removes its exclusive queues.
func (c *MockChannel) Close() error {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: "channel.close"})
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	m := c.broker
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(func(consumer *mockConsumer) bool { return consumer.owner == c })
	for _, q := range m.queues {
		if q.exclusive && q.owner == c {
			m.deleteQueueLocked(q)
		}
	}
	return nil
}

func (m *MockBroker) checkOpen(method string) error {
	if m.closed {
		return &ProtocolError{Method: method, Reason: "mock broker is closed", Err: ErrChannelClosed}
	}
	return nil
}

func (m *MockBroker) bind(method string, b MockBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	if _, ok := m.exchanges[b.Source]; !ok {
		return notFound(method, "exchange", b.Source)
	}
	if b.ToExchange {
		if _, ok := m.exchanges[b.Destination]; !ok {
			return notFound(method, "exchange", b.Destination)
		}
	} else if _, ok := m.queues[b.Destination]; !ok {
		return notFound(method, "queue", b.Destination)
	}

	for _, existing := range m.bindings[b.Source] {
		if sameBinding(existing, b) {
			return nil
		}
	}
	m.bindings[b.Source] = append(m.bindings[b.Source], b)
	return nil
}

func (m *MockBroker) unbind(method string, b MockBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(method); err != nil {
		return err
	}

	if _, ok := m.exchanges[b.Source]; !ok {
		return notFound(method, "exchange", b.Source)
	}
	if !b.ToExchange {
		if _, ok := m.queues[b.Destination]; !ok {
			return notFound(method, "queue", b.Destination)
		}
	}
	m.bindings[b.Source] = removeBindings(m.bindings[b.Source], func(existing MockBinding) bool {
		return sameBinding(existing, b)
	})
	return nil
}

// routeLocked resolves the queues reached from exchange, following
// exchange-to-exchange bindings once per exchange.
func (m *MockBroker) routeLocked(exchange, routingKey string, headers map[string]interface{}, visited map[string]bool) []string {
	if visited[exchange] {
		return nil
	}
	visited[exchange] = true

	ex, ok := m.exchanges[exchange]
	if !ok {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	for _, b := range m.bindings[exchange] {
		if !matches(ex.kind, b, routingKey, headers) {
			continue
		}
		var reached []string
		if b.ToExchange {
			reached = m.routeLocked(b.Destination, routingKey, headers, visited)
		} else {
			reached = []string{b.Destination}
		}
		for _, name := range reached {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// dispatchLocked offers the stored messages of q to its consumers in order.
func (m *MockBroker) dispatchLocked(q *mockQueue) {
	if len(q.consumers) == 0 {
		return
	}
	pending := q.messages
	q.messages = nil
	for _, d := range pending {
		m.enqueueLocked(q, d)
	}
}

// enqueueLocked hands d to the next consumer in round-robin order, or stores
// it when the queue has no consumer with buffer space.
func (m *MockBroker) enqueueLocked(q *mockQueue, d Delivery) {
	for i := 0; i < len(q.consumers); i++ {
		consumer := q.consumers[q.next%len(q.consumers)]
		q.next++
		select {
		case consumer.out <- m.stampLocked(q, d, consumer.tag, consumer.autoAck):
			return
		default:
		}
	}
	q.messages = append(q.messages, d)
}

func (m *MockBroker) stampLocked(q *mockQueue, d Delivery, consumerTag string, autoAck bool) Delivery {
	m.deliveryTag++
	tag := m.deliveryTag
	d.ConsumerTag = consumerTag
	d.DeliveryTag = tag

	if autoAck {
		d.Ack = func(bool) error { return nil }
		d.Nack = func(bool) error { return nil }
		d.Reject = func(bool) error { return nil }
		return d
	}

	requeue := d
	requeue.Redelivered = true
	settle := func(back bool) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if back {
			if _, ok := m.queues[q.name]; ok {
				q.messages = append([]Delivery{requeue}, q.messages...)
				m.dispatchLocked(q)
			}
		}
		return nil
	}
	d.Ack = func(bool) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.acked = append(m.acked, tag)
		return nil
	}
	d.Nack = settle
	d.Reject = settle
	return d
}

func (m *MockBroker) cancelLocked(match func(*mockConsumer) bool) {
	for _, q := range m.queues {
		kept := q.consumers[:0]
		for _, consumer := range q.consumers {
			if match(consumer) {
				close(consumer.out)
				continue
			}
			kept = append(kept, consumer)
		}
		q.consumers = kept
	}
}

func (m *MockBroker) deleteQueueLocked(q *mockQueue) {
	for _, consumer := range q.consumers {
		close(consumer.out)
	}
	q.consumers = nil
	delete(m.queues, q.name)
	for source, list := range m.bindings {
		m.bindings[source] = removeBindings(list, func(b MockBinding) bool {
			return !b.ToExchange && b.Destination == q.name
		})
	}
}

func matches(kind string, b MockBinding, routingKey string, headers map[string]interface{}) bool {
	switch kind {
	case "fanout":
		return true
	case "topic":
		return topicMatch(strings.Split(b.RoutingKey, "."), strings.Split(routingKey, "."))
	case "headers":
		return headersMatch(b.Arguments, headers)
	default:
		return b.RoutingKey == routingKey
	}
}

// topicMatch implements AMQP topic patterns: "*" matches one word and "#"
// matches zero or more words.
func topicMatch(pattern, words []string) bool {
	if len(pattern) == 0 {
		return len(words) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(words); i++ {
			if topicMatch(pattern[1:], words[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(words) > 0 && topicMatch(pattern[1:], words[1:])
	default:
		return len(words) > 0 && pattern[0] == words[0] && topicMatch(pattern[1:], words[1:])
	}
}

func headersMatch(args, headers map[string]interface{}) bool {
	matchAny := args["x-match"] == "any"
	matched := 0
	total := 0
	for key, want := range args {
		if strings.HasPrefix(key, "x-") {
			continue
		}
		total++
		if got, ok := headers[key]; ok && got == want {
			matched++
		}
	}
	if matchAny {
		return matched > 0
	}
	return matched == total
}

func sameBinding(a, b MockBinding) bool {
	return a.Source == b.Source && a.Destination == b.Destination &&
		a.RoutingKey == b.RoutingKey && a.ToExchange == b.ToExchange
}

func removeBindings(list []MockBinding, drop func(MockBinding) bool) []MockBinding {
	kept := list[:0]
	for _, b := range list {
		if !drop(b) {
			kept = append(kept, b)
		}
	}
	return kept
}

func queueInfo(q *mockQueue) QueueInfo {
	return QueueInfo{Name: q.name, Messages: len(q.messages), Consumers: len(q.consumers)}
}

func copyArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return nil
	}
	out := make(map[string]interface{}, len(args))
	for key, value := range args {
		out[key] = value
	}
	return out
}

func notFound(method, kind, name string) error {
	return &ProtocolError{Method: method, Code: CodeNotFound,
		Reason: fmt.Sprintf("NOT_FOUND - no %s '%s' in vhost '/'", kind, name)}
}

func resourceLocked(method, name string) error {
	return &ProtocolError{Method: method, Code: CodeResourceLocked,
		Reason: fmt.Sprintf("RESOURCE_LOCKED - cannot obtain exclusive access to locked queue '%s'", name)}
}

func preconditionFailed(method, detail string) error {
	return &ProtocolError{Method: method, Code: CodePreconditionFailed, Reason: "PRECONDITION_FAILED - " + detail}
}
