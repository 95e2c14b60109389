package session

import (
	"fmt"
	"time"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
)

// Well-known message property keys.
const (
	PropContentType     = "content_type"
	PropContentEncoding = "content_encoding"
	PropDeliveryMode    = "delivery_mode"
	PropPriority        = "priority"
	PropCorrelationID   = "correlation_id"
	PropReplyTo         = "reply_to"
	PropExpiration      = "expiration"
	PropMessageID       = "message_id"
	PropTimestamp       = "timestamp"
	PropType            = "type"
	PropUserID          = "user_id"
	PropAppID           = "app_id"
)

// Delivery modes.
const (
	DeliveryModeNonPersistent uint8 = 1
	DeliveryModePersistent    uint8 = 2
)

// MessageFlag is a bitset of publish options.
type MessageFlag uint8

const (
	MessageMandatory MessageFlag = 1 << iota
	MessageImmediate

	MessageNoFlags MessageFlag = 0
)

// Message carries a body, protocol-level properties and application headers.
// Messages returned by a Consumer also carry delivery metadata.
type Message struct {
	Body       []byte
	Properties map[string]interface{}
	Headers    map[string]interface{}
	RoutingKey string
	Flags      MessageFlag

	DeliveryTag uint64
	Redelivered bool
	ConsumerTag string

	delivery broker.Delivery
}

// NewMessage builds a message; nil maps are replaced with empty ones.
func NewMessage(body []byte, properties, headers map[string]interface{}) *Message {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	if headers == nil {
		headers = map[string]interface{}{}
	}
	return &Message{Body: body, Properties: properties, Headers: headers}
}

func (m *Message) Property(key string) interface{} { return m.Properties[key] }

func (m *Message) SetProperty(key string, value interface{}) {
	if m.Properties == nil {
		m.Properties = map[string]interface{}{}
	}
	m.Properties[key] = value
}

func (m *Message) Header(key string) interface{} { return m.Headers[key] }

func (m *Message) SetHeader(key string, value interface{}) {
	if m.Headers == nil {
		m.Headers = map[string]interface{}{}
	}
	m.Headers[key] = value
}

func (m *Message) AddFlag(f MessageFlag)      { m.Flags |= f }
func (m *Message) HasFlag(f MessageFlag) bool { return m.Flags&f != 0 }

func (m *Message) ContentType() string        { return m.stringProperty(PropContentType) }
func (m *Message) SetContentType(v string)    { m.SetProperty(PropContentType, v) }
func (m *Message) CorrelationID() string      { return m.stringProperty(PropCorrelationID) }
func (m *Message) SetCorrelationID(v string)  { m.SetProperty(PropCorrelationID, v) }
func (m *Message) ReplyTo() string            { return m.stringProperty(PropReplyTo) }
func (m *Message) SetReplyTo(v string)        { m.SetProperty(PropReplyTo, v) }
func (m *Message) MessageID() string          { return m.stringProperty(PropMessageID) }
func (m *Message) SetMessageID(v string)      { m.SetProperty(PropMessageID, v) }
func (m *Message) Expiration() string         { return m.stringProperty(PropExpiration) }
func (m *Message) SetExpiration(v string)     { m.SetProperty(PropExpiration, v) }
func (m *Message) SetDeliveryMode(mode uint8) { m.SetProperty(PropDeliveryMode, mode) }
func (m *Message) SetPriority(priority uint8) { m.SetProperty(PropPriority, priority) }
func (m *Message) SetTimestamp(ts time.Time)  { m.SetProperty(PropTimestamp, ts) }

// DeliveryMode returns 0 when the property is unset or out of range.
func (m *Message) DeliveryMode() uint8 {
	n, _ := m.octetProperty(PropDeliveryMode)
	return n
}

// Priority returns 0 when the property is unset or out of range.
func (m *Message) Priority() uint8 {
	n, _ := m.octetProperty(PropPriority)
	return n
}

// Timestamp accepts either a time.Time or unix seconds in the property map.
func (m *Message) Timestamp() time.Time {
	switch ts := m.Properties[PropTimestamp].(type) {
	case time.Time:
		return ts
	default:
		if n, ok := intValue(ts); ok {
			return time.Unix(int64(n), 0)
		}
		return time.Time{}
	}
}

// octetProperty reads an integer property that travels as a single octet.
func (m *Message) octetProperty(key string) (uint8, error) {
	v, ok := m.Properties[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := intValue(v)
	if !ok || n < 0 || n > 255 {
		return 0, fmt.Errorf("%w: %s %v is not an octet", ErrInvalidMessage, key, v)
	}
	return uint8(n), nil
}

func (m *Message) stringProperty(key string) string {
	s, _ := m.Properties[key].(string)
	return s
}

func (m *Message) toBroker() (broker.Message, error) {
	if _, err := m.octetProperty(PropPriority); err != nil {
		return broker.Message{}, err
	}
	if _, err := m.octetProperty(PropDeliveryMode); err != nil {
		return broker.Message{}, err
	}
	return broker.Message{
		Body:            m.Body,
		ContentType:     m.ContentType(),
		ContentEncoding: m.stringProperty(PropContentEncoding),
		CorrelationID:   m.CorrelationID(),
		ReplyTo:         m.ReplyTo(),
		MessageID:       m.MessageID(),
		Type:            m.stringProperty(PropType),
		UserID:          m.stringProperty(PropUserID),
		AppID:           m.stringProperty(PropAppID),
		Expiration:      m.Expiration(),
		Priority:        m.Priority(),
		Headers:         m.Headers,
		Timestamp:       m.Timestamp(),
		DeliveryMode:    m.DeliveryMode(),
	}, nil
}

func messageFromDelivery(d broker.Delivery) *Message {
	props := map[string]interface{}{}
	setString := func(key, value string) {
		if value != "" {
			props[key] = value
		}
	}
	setString(PropContentType, d.ContentType)
	setString(PropContentEncoding, d.ContentEncoding)
	setString(PropCorrelationID, d.CorrelationID)
	setString(PropReplyTo, d.ReplyTo)
	setString(PropExpiration, d.Expiration)
	setString(PropMessageID, d.MessageID)
	setString(PropType, d.Type)
	setString(PropUserID, d.UserID)
	setString(PropAppID, d.AppID)
	if d.DeliveryMode != 0 {
		props[PropDeliveryMode] = d.DeliveryMode
	}
	if d.Priority != 0 {
		props[PropPriority] = d.Priority
	}
	if !d.Timestamp.IsZero() {
		props[PropTimestamp] = d.Timestamp
	}

	msg := NewMessage(d.Body, props, d.Headers)
	msg.RoutingKey = d.RoutingKey
	msg.DeliveryTag = d.DeliveryTag
	msg.Redelivered = d.Redelivered
	msg.ConsumerTag = d.ConsumerTag
	msg.delivery = d
	return msg
}
