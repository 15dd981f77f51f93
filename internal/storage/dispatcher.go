package storage

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/storagedev/usb-manager/internal/stream"
)

// listenerSink adapts a callback Listener to the stream.Sink the broadcaster
// speaks. A panic in the handler is turned into an error so the broadcaster
// logs it and carries on with the remaining subscribers.
type listenerSink struct {
	listener Listener
}

func (s listenerSink) Submit(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %T panicked: %v", s.listener, r)
		}
	}()
	s.listener.OnDeviceEvent(ev)
	return nil
}

func (s listenerSink) Close() {}

// klogLogger routes broadcaster delivery failures to klog.
type klogLogger struct{}

func (klogLogger) Info(format string, args ...interface{}) {
	klog.Errorf(format, args...)
}

// dispatcher maintains the observer registry. Callback listeners and channel
// sinks ride the same broadcaster, so one tick's events reach everyone in
// subscription order with per-subscriber failure isolation.
type dispatcher struct {
	events *stream.Broadcaster[Event]

	mu        sync.Mutex
	listeners map[Listener]stream.CancelFunc
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		events:    stream.NewBroadcaster(stream.WithLogger[Event](klogLogger{})),
		listeners: make(map[Listener]stream.CancelFunc),
	}
}

// add registers a listener. Returns false if it is already registered.
func (d *dispatcher) add(listener Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.listeners[listener]; dup {
		return false
	}
	d.listeners[listener] = d.events.Subscribe(listenerSink{listener})
	return true
}

// remove unregisters a listener. Returns false if it was not registered.
// A removal during an in-flight dispatch does not recall the event already
// being delivered.
func (d *dispatcher) remove(listener Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cancel, found := d.listeners[listener]
	if !found {
		return false
	}
	delete(d.listeners, listener)
	cancel()
	return true
}

func (d *dispatcher) subscribe(sink stream.Sink[Event]) stream.CancelFunc {
	return d.events.Subscribe(sink)
}

// subscribers counts every attached observer, callback and channel alike.
func (d *dispatcher) subscribers() int {
	return d.events.Len()
}

func (d *dispatcher) dispatch(ev Event) {
	d.events.Publish(ev)
}

func (d *dispatcher) close() {
	d.mu.Lock()
	d.listeners = make(map[Listener]stream.CancelFunc)
	d.mu.Unlock()
	d.events.Close()
}
