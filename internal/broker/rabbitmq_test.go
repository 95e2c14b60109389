package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestNewRabbitMQEmptyURL(t *testing.T) {
	_, err := NewRabbitMQ(context.Background(), RabbitMQConfig{})
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestNewRabbitMQInvalidURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping dial test in short mode")
	}

	_, err := NewRabbitMQ(context.Background(), RabbitMQConfig{
		URL:            "amqp://invalid:5672",
		ConnectionName: "test",
	})
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
}

func TestToTable(t *testing.T) {
	if got := toTable(nil); got != nil {
		t.Errorf("toTable(nil) = %v, want nil", got)
	}
	if got := toTable(map[string]interface{}{}); got != nil {
		t.Errorf("toTable(empty) = %v, want nil", got)
	}

	input := map[string]interface{}{"key": "value", "num": 42}
	result := toTable(input)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key=value, got %v", result["key"])
	}
	if result["num"] != 42 {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestFromTable(t *testing.T) {
	if got := fromTable(nil); got != nil {
		t.Errorf("fromTable(nil) = %v, want nil", got)
	}

	input := map[string]interface{}{"a": "b", "c": 3}
	result := fromTable(input)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["a"] != "b" {
		t.Errorf("expected a=b, got %v", result["a"])
	}
	if result["c"] != 3 {
		t.Errorf("expected c=3, got %v", result["c"])
	}
}

func TestRabbitMQCloseWithoutConnection(t *testing.T) {
	r := &RabbitMQ{}
	if err := r.Close(); err != nil {
		t.Fatalf("Close with nil conn should not error: %v", err)
	}
}

func TestRabbitMQDoubleClose(t *testing.T) {
	r := &RabbitMQ{}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close should not error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close should not error: %v", err)
	}
}

func TestRabbitMQChannelWhenClosed(t *testing.T) {
	r := &RabbitMQ{closed: true}
	if _, err := r.Channel(); err == nil {
		t.Fatal("expected error when connection is closed")
	}
}

func TestAMQPChannelCloseNil(t *testing.T) {
	if err := (&AMQPChannel{}).Close(); err != nil {
		t.Fatalf("Close on an unopened channel should not error: %v", err)
	}
}

func TestProtocolErrorMapping(t *testing.T) {
	amqpErr := &amqp.Error{Code: amqp.NotFound, Reason: "NOT_FOUND - no queue 'orders' in vhost '/'"}
	err := protocolError("queue.declare", amqpErr)

	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProtocolError, got %T", err)
	}
	if pe.Code != CodeNotFound || pe.Method != "queue.declare" || pe.Reason != amqpErr.Reason {
		t.Fatalf("unexpected mapping %+v", pe)
	}
	if !errors.Is(err, amqpErr) {
		t.Fatal("expected the amqp error to stay in the chain")
	}
	if !IsProtocolError(err, 0) {
		t.Fatal("code 0 should match any protocol error")
	}

	reset := errors.New("connection reset by peer")
	plain := protocolError("basic.publish", reset)
	if IsProtocolError(plain, CodeNotFound) {
		t.Fatal("a transport error has no reply code")
	}
	if !errors.Is(plain, reset) {
		t.Fatal("expected the transport error in the chain")
	}
}

func TestDeliveryFromAMQP(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	d := deliveryFromAMQP(amqp.Delivery{
		Body:          []byte("payload"),
		ContentType:   "application/json",
		CorrelationId: "c-1",
		ReplyTo:       "replies",
		MessageId:     "m-1",
		Priority:      4,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     ts,
		Headers:       amqp.Table{"tenant": "acme"},
		ConsumerTag:   "ctag",
		DeliveryTag:   9,
		Redelivered:   true,
		Exchange:      "events",
		RoutingKey:    "orders.created",
		MessageCount:  3,
	})

	if string(d.Body) != "payload" || d.ContentType != "application/json" {
		t.Fatalf("unexpected body/content type: %q %q", d.Body, d.ContentType)
	}
	if d.CorrelationID != "c-1" || d.ReplyTo != "replies" || d.MessageID != "m-1" {
		t.Fatalf("unexpected properties %+v", d.Message)
	}
	if d.Priority != 4 || d.DeliveryMode != amqp.Persistent || !d.Timestamp.Equal(ts) {
		t.Fatalf("unexpected priority/mode/timestamp %+v", d.Message)
	}
	if d.Headers["tenant"] != "acme" {
		t.Fatalf("unexpected headers %v", d.Headers)
	}
	if d.ConsumerTag != "ctag" || d.DeliveryTag != 9 || !d.Redelivered || d.MessageCount != 3 {
		t.Fatalf("unexpected delivery metadata %+v", d)
	}
	if d.Exchange != "events" || d.RoutingKey != "orders.created" {
		t.Fatalf("unexpected routing %q %q", d.Exchange, d.RoutingKey)
	}
	if d.Ack == nil || d.Nack == nil || d.Reject == nil {
		t.Fatal("expected settlement funcs")
	}
}
