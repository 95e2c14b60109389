// Package buffer demultiplexes deliveries from one shared channel to the
// logical consumers reading from it.
package buffer

import (
	"context"
	"errors"
	"sync"

	"github.com/arosenfeld2003/amqp_session/internal/broker"
)

// ErrClosed is returned by Wait once a tag was dropped or the buffer closed.
var ErrClosed = errors.New("buffer: consumer tag closed")

// Buffer holds deliveries keyed by consumer tag. A consumer only ever sees
// deliveries pushed under its own tag. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	frames  map[string][]broker.Delivery
	ready   map[string]chan struct{}
	dropped map[string]bool
	closed  bool
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{
		frames:  map[string][]broker.Delivery{},
		ready:   map[string]chan struct{}{},
		dropped: map[string]bool{},
	}
}

// Push appends a delivery for consumerTag and wakes its waiters. It reports
// false, keeping nothing, when the tag was dropped or the buffer is closed;
// the caller still owns the delivery then.
func (b *Buffer) Push(consumerTag string, d broker.Delivery) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.dropped[consumerTag] {
		return false
	}
	b.frames[consumerTag] = append(b.frames[consumerTag], d)
	b.wakeLocked(consumerTag)
	return true
}

// Open accepts pushes for consumerTag again after a Drop. It has no effect
// on a closed buffer.
func (b *Buffer) Open(consumerTag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.dropped, consumerTag)
}

// Closed reports whether consumerTag no longer accepts deliveries.
func (b *Buffer) Closed(consumerTag string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed || b.dropped[consumerTag]
}

// Pop removes and returns the oldest delivery for consumerTag.
func (b *Buffer) Pop(consumerTag string) (broker.Delivery, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.popLocked(consumerTag)
}

// Wait blocks until a delivery for consumerTag is available, the tag is
// dropped, or ctx is done. Frames buffered before a Drop are not returned.
func (b *Buffer) Wait(ctx context.Context, consumerTag string) (broker.Delivery, error) {
	for {
		b.mu.Lock()
		if d, ok := b.popLocked(consumerTag); ok {
			b.mu.Unlock()
			return d, nil
		}
		if b.closed || b.dropped[consumerTag] {
			b.mu.Unlock()
			return broker.Delivery{}, ErrClosed
		}
		ch, ok := b.ready[consumerTag]
		if !ok {
			ch = make(chan struct{})
			b.ready[consumerTag] = ch
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return broker.Delivery{}, ctx.Err()
		case <-ch:
		}
	}
}

// Len returns the number of buffered deliveries for consumerTag.
func (b *Buffer) Len(consumerTag string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames[consumerTag])
}

// Drop stops accepting deliveries for consumerTag, wakes its waiters and
// returns whatever was still buffered so the caller can settle it.
func (b *Buffer) Drop(consumerTag string) []broker.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dropped[consumerTag] = true
	frames := b.frames[consumerTag]
	delete(b.frames, consumerTag)
	b.wakeLocked(consumerTag)
	return frames
}

// Close drops every tag and returns all buffered deliveries.
func (b *Buffer) Close() []broker.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	var frames []broker.Delivery
	for tag, queue := range b.frames {
		frames = append(frames, queue...)
		delete(b.frames, tag)
	}
	for tag := range b.ready {
		b.wakeLocked(tag)
	}
	return frames
}

func (b *Buffer) wakeLocked(consumerTag string) {
	if ch, ok := b.ready[consumerTag]; ok {
		close(ch)
		delete(b.ready, consumerTag)
	}
}

func (b *Buffer) popLocked(consumerTag string) (broker.Delivery, bool) {
	queue := b.frames[consumerTag]
	if len(queue) == 0 {
		return broker.Delivery{}, false
	}
	d := queue[0]
	if len(queue) == 1 {
		delete(b.frames, consumerTag)
	} else {
		b.frames[consumerTag] = queue[1:]
	}
	return d, true
}
