package session

import "strings"

// Destination is either a *Queue or a *Topic.
type Destination interface {
	DestinationName() string
	isDestination()
}

// QueueFlag is a bitset of queue declare/delete options.
type QueueFlag uint16

const (
	QueuePassive QueueFlag = 1 << iota
	QueueDurable
	QueueExclusive
	QueueAutoDelete
	QueueNoWait
	QueueIfUnused
	QueueIfEmpty

	QueueNoFlags QueueFlag = 0
)

// Queue names an AMQP queue. An empty name asks the broker to assign one.
type Queue struct {
	Name        string
	Flags       QueueFlag
	Arguments   map[string]interface{}
	ConsumerTag string
}

var _ Destination = (*Queue)(nil)

func (q *Queue) DestinationName() string { return q.Name }
func (*Queue) isDestination()            {}

func (q *Queue) AddFlag(f QueueFlag)      { q.Flags |= f }
func (q *Queue) ClearFlag(f QueueFlag)    { q.Flags &^= f }
func (q *Queue) HasFlag(f QueueFlag) bool { return q.Flags&f != 0 }

// SetArgument sets a queue argument such as "x-message-ttl".
func (q *Queue) SetArgument(key string, value interface{}) {
	if q.Arguments == nil {
		q.Arguments = map[string]interface{}{}
	}
	q.Arguments[key] = value
}

// IsTemporary reports whether the queue is exclusive and broker-named.
func (q *Queue) IsTemporary() bool {
	if !q.HasFlag(QueueExclusive) {
		return false
	}
	return q.Name == "" || strings.HasPrefix(q.Name, "amq.gen-")
}

// Exchange types.
const (
	TypeDirect  = "direct"
	TypeFanout  = "fanout"
	TypeTopic   = "topic"
	TypeHeaders = "headers"
)

// TopicFlag is a bitset of exchange declare/delete options.
type TopicFlag uint16

const (
	TopicPassive TopicFlag = 1 << iota
	TopicDurable
	TopicAutoDelete
	TopicInternal
	TopicNoWait
	TopicIfUnused

	TopicNoFlags TopicFlag = 0
)

// Topic names an AMQP exchange.
type Topic struct {
	Name      string
	Type      string
	Flags     TopicFlag
	Arguments map[string]interface{}
}

var _ Destination = (*Topic)(nil)

func (t *Topic) DestinationName() string { return t.Name }
func (*Topic) isDestination()            {}

func (t *Topic) AddFlag(f TopicFlag)      { t.Flags |= f }
func (t *Topic) ClearFlag(f TopicFlag)    { t.Flags &^= f }
func (t *Topic) HasFlag(f TopicFlag) bool { return t.Flags&f != 0 }

// SetArgument sets an exchange argument such as "alternate-exchange".
func (t *Topic) SetArgument(key string, value interface{}) {
	if t.Arguments == nil {
		t.Arguments = map[string]interface{}{}
	}
	t.Arguments[key] = value
}
