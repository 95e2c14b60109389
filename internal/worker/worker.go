package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/arosenfeld2003/amqp_session/internal/session"
)

// Receiver is the part of a session consumer the pool drives.
type Receiver interface {
	Receive(ctx context.Context) (*session.Message, error)
	Acknowledge(msg *session.Message) error
	Reject(msg *session.Message, requeue bool) error
}

// Handler processes one message. A nil error acknowledges it.
type Handler func(ctx context.Context, msg *session.Message) error

// Pool fans messages from one Receiver out to a fixed number of workers.
type Pool struct {
	Source  Receiver
	Handle  Handler
	Workers int
	Requeue bool // requeue messages whose handler failed
	Log     zerolog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// New constructs a pool; workers below one are raised to one.
func New(src Receiver, workers int, h Handler, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{Source: src, Handle: h, Workers: workers, Log: log}
}

// Processed returns how many messages were handled and acknowledged.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many messages were rejected after a handler error.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Run receives until ctx is done or the source fails. In-flight messages are
// settled before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	jobs := make(chan *session.Message)

	var wg sync.WaitGroup
	for i := 0; i < p.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for msg := range jobs {
				p.process(ctx, id, msg)
			}
		}(i + 1)
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		msg, err := p.Source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return ctx.Err()
			}
			return err
		}

		select {
		case jobs <- msg:
		case <-ctx.Done():
			// Hand the message back; nobody will process it.
			_ = p.Source.Reject(msg, true)
			return ctx.Err()
		}
	}
}

func (p *Pool) process(ctx context.Context, id int, msg *session.Message) {
	if err := p.Handle(ctx, msg); err != nil {
		p.failed.Add(1)
		p.Log.Warn().Err(err).Int("worker", id).Uint64("delivery_tag", msg.DeliveryTag).
			Bool("requeue", p.Requeue).Msg("handler failed, rejecting message")
		if err := p.Source.Reject(msg, p.Requeue); err != nil {
			p.Log.Error().Err(err).Int("worker", id).Msg("reject failed")
		}
		return
	}

	if err := p.Source.Acknowledge(msg); err != nil {
		p.Log.Error().Err(err).Int("worker", id).Msg("acknowledge failed")
		return
	}
	p.processed.Add(1)
}
