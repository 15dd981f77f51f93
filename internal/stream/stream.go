package stream

import (
	"fmt"
	"time"
)

// submitTimeout bounds how long a channel sink waits for its consumer to
// take a value before giving up on that value.
const submitTimeout = 1 * time.Second

// Sink accepts a stream of values. Submit hands a single value over and
// reports whether the sink accepted it; Close releases the sink once no
// more values are coming.
type Sink[T any] interface {
	Submit(v T) error
	Close()
}

// Source hands out values to subscribed sinks until the subscription is
// cancelled.
type Source[T any] interface {
	Subscribe(sink Sink[T]) CancelFunc
}

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

// Logger receives diagnostics about failed deliveries.
type Logger interface {
	Info(format string, args ...interface{})
}

type chanSink[T any] struct {
	ch      chan<- T
	timeout time.Duration
}

func (c *chanSink[T]) Submit(v T) error {
	select {
	case c.ch <- v:
		return nil
	case <-time.After(c.timeout):
		return fmt.Errorf("timed out submitting value %v after %s", v, c.timeout)
	}
}

func (c *chanSink[T]) Close() {
	close(c.ch)
}

// SinkFromChan adapts a channel into a Sink. Submit waits up to one second
// for the consumer to take the value and then drops it with an error, so a
// consumer that cannot keep up should be given a buffered channel. Close
// closes the channel.
func SinkFromChan[T any](ch chan<- T) Sink[T] {
	return &chanSink[T]{ch: ch, timeout: submitTimeout}
}

type filterSink[T any] struct {
	sink   Sink[T]
	filter FilterFunc[T]
}

func (f *filterSink[T]) Submit(v T) error {
	if !f.filter(v) {
		return nil
	}
	return f.sink.Submit(v)
}

func (f *filterSink[T]) Close() {
	f.sink.Close()
}

// FilterSink wraps a sink so that only values matching the filter reach it.
func FilterSink[T any](sink Sink[T], filter FilterFunc[T]) Sink[T] {
	return &filterSink[T]{sink: sink, filter: filter}
}
