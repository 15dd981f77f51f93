package stream_test

import (
	"errors"
	"sync"

	"github.com/storagedev/usb-manager/internal/stream"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recordingSink collects submitted values and can be told to fail.
type recordingSink[T any] struct {
	mu     sync.Mutex
	values []T
	err    error
	closed bool
}

func (s *recordingSink[T]) Submit(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.values = append(s.values, v)
	return nil
}

func (s *recordingSink[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink[T]) recorded() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.values...)
}

func (s *recordingSink[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ = Describe("Broadcaster", func() {
	var b *stream.Broadcaster[string]

	BeforeEach(func() {
		b = stream.NewBroadcaster[string]()
	})

	AfterEach(func() {
		b.Close()
	})

	Context("subscription", func() {
		It("should deliver published values to every sink", func() {
			first := &recordingSink[string]{}
			second := &recordingSink[string]{}
			b.Subscribe(first)
			b.Subscribe(second)

			b.Publish("sandisk")

			Expect(first.recorded()).To(Equal([]string{"sandisk"}))
			Expect(second.recorded()).To(Equal([]string{"sandisk"}))
		})

		It("should deliver in subscription order", func() {
			var mu sync.Mutex
			var order []string
			makeSink := func(name string) stream.Sink[string] {
				ch := make(chan string, 1)
				return stream.FilterSink[string](stream.SinkFromChan(ch), func(string) bool {
					mu.Lock()
					order = append(order, name)
					mu.Unlock()
					return false
				})
			}
			b.Subscribe(makeSink("first"))
			b.Subscribe(makeSink("second"))
			b.Subscribe(makeSink("third"))

			b.Publish("kingston")

			mu.Lock()
			defer mu.Unlock()
			Expect(order).To(Equal([]string{"first", "second", "third"}))
		})

		It("should stop delivering after cancel", func() {
			sink := &recordingSink[string]{}
			cancel := b.Subscribe(sink)
			cancel()

			b.Publish("sandisk")

			Expect(sink.recorded()).To(BeEmpty())
			Expect(sink.isClosed()).To(BeTrue())
		})

		It("should tolerate cancel being called twice", func() {
			sink := &recordingSink[string]{}
			cancel := b.Subscribe(sink)
			cancel()
			cancel()

			Expect(b.Len()).To(BeZero())
		})

		It("should report the number of attached sinks", func() {
			Expect(b.Len()).To(BeZero())
			cancel := b.Subscribe(&recordingSink[string]{})
			b.Subscribe(&recordingSink[string]{})
			Expect(b.Len()).To(Equal(2))
			cancel()
			Expect(b.Len()).To(Equal(1))
		})
	})

	Context("cancellation during delivery", func() {
		It("should survive a cancel racing a blocked delivery", func() {
			ch := make(chan string) // unbuffered with no consumer
			cancel := b.Subscribe(stream.SinkFromChan(ch))

			published := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				b.Publish("sandisk")
				close(published)
			}()
			Consistently(published, "100ms").ShouldNot(BeClosed())

			cancel()

			Eventually(published, "3s").Should(BeClosed())
			Eventually(ch).Should(BeClosed())
		})
	})

	Context("failure isolation", func() {
		It("should keep delivering to later sinks when one fails", func() {
			failing := &recordingSink[string]{err: errors.New("sink is broken")}
			healthy := &recordingSink[string]{}
			b.Subscribe(failing)
			b.Subscribe(healthy)

			b.Publish("sandisk")

			Expect(healthy.recorded()).To(Equal([]string{"sandisk"}))
		})

		It("should give up on a sink that never accepts and move on", func() {
			stuck := make(chan string) // unbuffered with no consumer
			healthy := &recordingSink[string]{}
			b.Subscribe(stream.SinkFromChan(stuck))
			b.Subscribe(healthy)

			published := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				b.Publish("sandisk")
				close(published)
			}()

			Eventually(published, "3s").Should(BeClosed())
			Expect(healthy.recorded()).To(Equal([]string{"sandisk"}))
		})
	})

	Context("closing", func() {
		It("should close every sink", func() {
			ch1 := make(chan string)
			ch2 := make(chan string)
			b.Subscribe(stream.SinkFromChan(ch1))
			b.Subscribe(stream.SinkFromChan(ch2))

			b.Close()

			Eventually(ch1).Should(BeClosed())
			Eventually(ch2).Should(BeClosed())
		})

		It("should close a sink subscribed after Close immediately", func() {
			b.Close()

			sink := &recordingSink[string]{}
			cancel := b.Subscribe(sink)
			Expect(sink.isClosed()).To(BeTrue())
			Expect(cancel).NotTo(BeNil())
			cancel()
		})

		It("should be idempotent", func() {
			b.Close()
			b.Close()
		})
	})
})
