package stream

import (
	"sync"
)

// subscriber pairs a sink with the lock that serializes delivery against
// closure. Submit and Close on the underlying sink never run concurrently,
// and nothing is submitted after the sink is closed.
type subscriber[T any] struct {
	mu     sync.Mutex
	sink   Sink[T]
	closed bool
}

func (s *subscriber[T]) submit(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.sink.Submit(v)
}

// close shuts the sink down exactly once, waiting for a delivery in
// progress to finish first.
func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sink.Close()
}

// Broadcaster fans published values out to every attached sink, in the order
// the sinks were attached. Publish snapshots the subscriber list under the
// lock and delivers outside of it, so attaching or detaching a sink never
// blocks on an in-flight delivery and never corrupts one. A sink detached
// mid-publish may still receive the value already being delivered; it is
// closed only once that delivery has finished.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   []*subscriber[T]
	closed bool

	logger Logger
}

type Option[T any] interface {
	apply(*Broadcaster[T])
}

type withLogger[T any] struct {
	Logger Logger
}

func (l *withLogger[T]) apply(b *Broadcaster[T]) {
	b.logger = l.Logger
}

func WithLogger[T any](logger Logger) Option[T] {
	return &withLogger[T]{logger}
}

func NewBroadcaster[T any](opts ...Option[T]) *Broadcaster[T] {
	b := &Broadcaster[T]{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(b)
	}
	return b
}

// Subscribe attaches a sink. The returned CancelFunc detaches it and closes
// it, waiting for any delivery already headed at the sink; calling it again
// is a no-op. Subscribing to a closed broadcaster closes the sink
// immediately and returns a no-op cancel.
func (b *Broadcaster[T]) Subscribe(sink Sink[T]) CancelFunc {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sink.Close()
		return func() {}
	}
	sub := &subscriber[T]{sink: sink}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.close()
	}
}

// Len reports the number of attached sinks.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers v to every attached sink in attachment order. A sink
// returning an error is logged and skipped; later sinks still receive v.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	snapshot := make([]*subscriber[T], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		if err := sub.submit(v); err != nil {
			b.info("error submitting value %v: %v", v, err)
		}
	}
}

// Close detaches and closes every sink, waiting for deliveries in progress.
// Further Publish calls are dropped and further Subscribe calls fail.
// Idempotent.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (b *Broadcaster[T]) info(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Info(format, args...)
	}
}
