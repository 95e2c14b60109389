package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
	"github.com/arosenfeld2003/amqp_session/internal/config"
	"github.com/arosenfeld2003/amqp_session/internal/session"
)

func mockSession(t *testing.T) (*session.Context, *broker.MockBroker) {
	t.Helper()
	mb := broker.NewMockBroker()
	sess, err := session.NewWithFactory(mb.Channel, session.DefaultConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess, mb
}

func TestHealthEndpoint(t *testing.T) {
	sess, _ := mockSession(t)
	mux := newMux(sess)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestHealthEndpointAfterClose(t *testing.T) {
	sess, _ := mockSession(t)
	mux := newMux(sess)
	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"unavailable"`) {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	sess, _ := mockSession(t)
	mux := newMux(sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "amqp session service is running") || !strings.Contains(body, "basic_get") {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestSetupTopology(t *testing.T) {
	sess, mb := mockSession(t)
	cfg := &config.Config{
		Exchange:     "events",
		ExchangeType: "TOPIC",
		Queue:        "orders",
		RoutingKey:   "orders.#",
		Durable:      true,
	}

	if err := setupTopology(sess, cfg); err != nil {
		t.Fatalf("setup topology: %v", err)
	}
	if !mb.HasExchange("events") || !mb.HasQueue("orders") {
		t.Fatal("expected exchange and queue to be declared")
	}
	bindings := mb.Bindings("events")
	if len(bindings) != 1 || bindings[0].Destination != "orders" || bindings[0].RoutingKey != "orders.#" {
		t.Fatalf("unexpected bindings %+v", bindings)
	}
}

func TestSetupTopologySkipsEmptyNames(t *testing.T) {
	sess, mb := mockSession(t)

	if err := setupTopology(sess, &config.Config{ExchangeType: "direct"}); err != nil {
		t.Fatalf("setup topology: %v", err)
	}
	if len(mb.Bindings("amq.direct")) != 0 {
		t.Fatal("expected no bindings")
	}
}

func TestSetupTopologyConflict(t *testing.T) {
	sess, _ := mockSession(t)
	if err := setupTopology(sess, &config.Config{Queue: "orders", ExchangeType: "direct"}); err != nil {
		t.Fatalf("first declare: %v", err)
	}

	err := setupTopology(sess, &config.Config{Queue: "orders", ExchangeType: "direct", Durable: true})
	if !broker.IsProtocolError(err, broker.CodePreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

func TestLogPoolLogsMessages(t *testing.T) {
	sess, mb := mockSession(t)
	cfg := &config.Config{Queue: "orders", ExchangeType: "direct", Workers: 2}
	if err := setupTopology(sess, cfg); err != nil {
		t.Fatalf("setup topology: %v", err)
	}
	producer, err := sess.CreateProducer()
	if err != nil {
		t.Fatalf("create producer: %v", err)
	}
	msg := sess.CreateMessage([]byte(`{"id":1}`), nil, nil)
	msg.SetContentType("application/json")
	if err := producer.Send(context.Background(), sess.CreateQueue("orders"), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	var buf bytes.Buffer
	pool, err := newLogPool(sess, cfg, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		for pool.Processed() == 0 && ctx.Err() == nil {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()
	_ = pool.Run(ctx)

	if pool.Processed() != 1 || len(mb.Acked()) != 1 {
		t.Fatalf("expected one acknowledged message, processed=%d acked=%v", pool.Processed(), mb.Acked())
	}
	if !strings.Contains(buf.String(), `"content_type":"application/json"`) {
		t.Errorf("unexpected log output: %q", buf.String())
	}
}
