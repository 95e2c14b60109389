package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
	"github.com/arosenfeld2003/amqp_session/internal/config"
	"github.com/arosenfeld2003/amqp_session/internal/logger"
	"github.com/arosenfeld2003/amqp_session/internal/session"
	"github.com/arosenfeld2003/amqp_session/internal/worker"
)

// newMux builds the HTTP handlers used by the service. Exported for tests.
func newMux(sess *session.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := sess.Channel(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"unavailable","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "amqp session service is running (receive_method=%s)", sess.Config().ReceiveMethod)
	})
	return mux
}

// setupTopology declares the exchange, queue and binding named on the
// command line. Empty names are skipped.
func setupTopology(sess *session.Context, cfg *config.Config) error {
	var topic *session.Topic
	if cfg.Exchange != "" {
		topic = sess.CreateTopic(cfg.Exchange)
		topic.Type = strings.ToLower(cfg.ExchangeType)
		if cfg.Durable {
			topic.AddFlag(session.TopicDurable)
		}
		if err := sess.DeclareTopic(topic); err != nil {
			return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
		}
	}

	var queue *session.Queue
	if cfg.Queue != "" {
		queue = sess.CreateQueue(cfg.Queue)
		if cfg.Durable {
			queue.AddFlag(session.QueueDurable)
		}
		count, err := sess.DeclareQueue(queue)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
		}
		log.Info().Str("queue", queue.Name).Int("messages", count).Msg("queue declared")
	}

	if topic != nil && queue != nil {
		if err := sess.Bind(session.NewBind(topic, queue, cfg.RoutingKey)); err != nil {
			return fmt.Errorf("bind %s to %s: %w", cfg.Queue, cfg.Exchange, err)
		}
	}
	return nil
}

// newLogPool consumes the startup queue and logs every message it receives.
func newLogPool(sess *session.Context, cfg *config.Config, l zerolog.Logger) (*worker.Pool, error) {
	consumer, err := sess.CreateConsumer(sess.CreateQueue(cfg.Queue))
	if err != nil {
		return nil, fmt.Errorf("create consumer for %s: %w", cfg.Queue, err)
	}
	return worker.New(consumer, cfg.Workers, func(_ context.Context, msg *session.Message) error {
		l.Info().
			Str("queue", cfg.Queue).
			Str("routing_key", msg.RoutingKey).
			Str("content_type", msg.ContentType()).
			Uint64("delivery_tag", msg.DeliveryTag).
			Bool("redelivered", msg.Redelivered).
			Int("bytes", len(msg.Body)).
			Msg("message received")
		return nil
	}, l), nil
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	base := logger.Setup(logger.Config{
		Verbose:   cfg.Verbose,
		Level:     cfg.LogLevel,
		Component: "amqp-session",
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rmq, err := broker.NewRabbitMQ(dialCtx, broker.RabbitMQConfig{
		URL:            cfg.RabbitMQURL,
		ConnectionName: "amqp-session",
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	opts, err := session.ParseConfig(cfg.SessionOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session options")
	}
	sess, err := session.NewWithFactory(rmq.Channel, opts, session.WithLogger(logger.Named(base, "session")))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}
	defer sess.Close()

	if err := sess.SetQos(opts.QosPrefetchSize, opts.QosPrefetchCount, opts.QosGlobal); err != nil {
		log.Fatal().Err(err).Msg("failed to apply qos")
	}
	if err := setupTopology(sess, cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to declare topology")
	}

	if cfg.Consume {
		pool, err := newLogPool(sess, cfg, logger.Named(base, "worker"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start consumer")
		}
		go func() {
			if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("consumer stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newMux(sess),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", cfg.Listen).Str("receive_method", string(opts.ReceiveMethod)).Msg("service started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("shutting down")
}
