package action

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send once the receiving end is gone.
var ErrClosed = errors.New("action: receiving end closed")

type pipe[T any] struct {
	ch     chan T
	closed chan struct{}
	once   sync.Once
}

// Sender is a send-only channel handle.
type Sender[T any] struct {
	p *pipe[T]
}

// Receiver is the receiving end of a channel.
type Receiver[T any] struct {
	p *pipe[T]
}

// NewChannel creates a channel with the given buffer size.
func NewChannel[T any](buffer int) (*Sender[T], *Receiver[T]) {
	p := &pipe[T]{
		ch:     make(chan T, buffer),
		closed: make(chan struct{}),
	}
	return &Sender[T]{p: p}, &Receiver[T]{p: p}
}

// Clone returns an independent handle to the same channel.
func (s *Sender[T]) Clone() *Sender[T] {
	return &Sender[T]{p: s.p}
}

// Send delivers v. It blocks while the buffer is full and fails with ErrClosed
// once the receiver hung up, or with the context error.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	select {
	case <-s.p.closed:
		return ErrClosed
	default:
	}

	select {
	case s.p.ch <- v:
		return nil
	case <-s.p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed is closed once the receiver hung up.
func (s *Sender[T]) Closed() <-chan struct{} {
	return s.p.closed
}

// C is the channel values arrive on. It is never closed; select on Closed.
func (r *Receiver[T]) C() <-chan T {
	return r.p.ch
}

// Closed is closed once Close was called.
func (r *Receiver[T]) Closed() <-chan struct{} {
	return r.p.closed
}

// Close hangs up. Values still buffered are dropped.
func (r *Receiver[T]) Close() {
	r.p.once.Do(func() {
		close(r.p.closed)
	})
}
