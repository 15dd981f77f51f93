package storage

import (
	"context"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/storagedev/usb-manager/internal/stream"
)

const (
	// DefaultPollingInterval is used when no interval option is given.
	DefaultPollingInterval = 5 * time.Second

	// closeTimeout bounds how long Close waits for an in-flight tick.
	closeTimeout = 5 * time.Second
)

// Manager owns the authoritative view of connected removable devices. It
// polls the backend enumerator on a single background goroutine, diffs each
// snapshot against the previous one and fans connect/remove events out to
// observers. Polling runs only while at least one observer is attached.
//
// All methods are safe for concurrent use. Event batches within one tick are
// ordered: every Connected event first, then every Removed event.
type Manager struct {
	backend Backend

	dispatcher *dispatcher

	stateMu sync.Mutex // guards state
	state   *reconciler

	tickMu sync.Mutex // serializes poll ticks across scheduler restarts

	mu        sync.Mutex // guards interval, stopPoll, hints, closed
	interval  time.Duration
	hintPaths []string
	stopPoll  chan struct{}
	hints     *hintWatcher
	closed    bool

	pollWG sync.WaitGroup
}

var _ stream.Source[Event] = (*Manager)(nil)

type Option func(*Manager)

// WithPollingInterval sets the initial polling interval. Values <= 0 are
// ignored and the default stays in effect; use SetPollingInterval for a
// validated change.
func WithPollingInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMountHints watches the given directories and triggers an immediate
// out-of-band tick when an entry under one of them appears or disappears.
// Paths that do not exist are skipped.
func WithMountHints(paths ...string) Option {
	return func(m *Manager) {
		m.hintPaths = append(m.hintPaths, paths...)
	}
}

// New builds a Manager on the given backend. The backend is fixed for the
// manager's lifetime.
func New(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:    backend,
		dispatcher: newDispatcher(),
		state:      newReconciler(),
		interval:   DefaultPollingInterval,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

// SetPollingInterval changes the polling period. Returns ErrInvalidInterval
// for d <= 0, leaving the previous interval in effect, and ErrClosed after
// Close. While observers are attached the scheduler restarts in place so the
// new period takes effect immediately; the connected set is untouched.
func (m *Manager) SetPollingInterval(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if d <= 0 {
		return ErrInvalidInterval
	}

	m.interval = d
	if m.stopPoll != nil {
		m.stopLocked()
		m.startLocked()
	}
	return nil
}

// AddListener registers a callback listener. Returns false if the listener
// is already registered or the manager is closed. The first observer starts
// the poll loop.
func (m *Manager) AddListener(listener Listener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if !m.dispatcher.add(listener) {
		return false
	}
	m.startLocked()
	return true
}

// RemoveListener unregisters a callback listener. Returns false if it was
// not registered. Removing the last observer stops the poll loop; a tick
// already executing finishes first.
func (m *Manager) RemoveListener(listener Listener) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.dispatcher.remove(listener)
	if m.dispatcher.subscribers() == 0 {
		m.stopLocked()
	}
	return removed
}

// Subscribe attaches a channel-style event sink. Sinks count as observers
// for the poll-loop lifecycle just like listeners. The returned cancel
// detaches the sink and closes it. Events are delivered from the poll
// goroutine, so a sink built with stream.SinkFromChan should be given a
// buffered channel; a full channel forfeits the event after the submit
// timeout rather than stalling the poll loop.
func (m *Manager) Subscribe(sink stream.Sink[Event]) stream.CancelFunc {
	m.mu.Lock()
	cancel := m.dispatcher.subscribe(sink)
	if !m.closed {
		m.startLocked()
	}
	m.mu.Unlock()

	return func() {
		cancel()
		m.mu.Lock()
		if m.dispatcher.subscribers() == 0 {
			m.stopLocked()
		}
		m.mu.Unlock()
	}
}

// RemovableDevices asks the backend for the devices attached right now. It
// bypasses the connected set entirely and has no effect on polling.
func (m *Manager) RemovableDevices(ctx context.Context) ([]Device, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return m.backend.Enumerate(ctx)
}

// ConnectedDevices returns a copy of the authoritative connected set as of
// the last completed tick, sorted by ID.
func (m *Manager) ConnectedDevices() []Device {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state.devices()
}

// Unmount unmounts the device through the backend. One attempt, the error
// is surfaced to the caller.
func (m *Manager) Unmount(ctx context.Context, device Device) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return m.backend.Unmount(ctx, device)
}

// Close stops polling and discards all observers. It waits up to
// closeTimeout for an in-flight tick, logs a warning and proceeds if the
// tick does not finish in time. Safe to call more than once; a closed
// manager never polls again.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopLocked()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.pollWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		klog.Warningf("poll loop did not finish within %s, proceeding with shutdown", closeTimeout)
	}

	m.dispatcher.close()
	return nil
}

// startLocked spawns the poll loop if it is not already running.
// Caller holds m.mu.
func (m *Manager) startLocked() {
	if m.closed || m.stopPoll != nil {
		return
	}

	stop := make(chan struct{})
	m.stopPoll = stop

	hints := make(chan struct{}, 1)
	if len(m.hintPaths) > 0 {
		hw, err := newHintWatcher(m.hintPaths, hints)
		switch {
		case err != nil:
			klog.Errorf("failed to watch mount roots: %v", err)
		case hw == nil:
			klog.V(2).Infof("no mount roots available to watch, relying on the polling interval alone")
		default:
			m.hints = hw
		}
	}

	m.pollWG.Add(1)
	go m.pollLoop(stop, m.interval, hints)
}

// stopLocked cancels future ticks. A tick already executing is not
// interrupted. Caller holds m.mu.
func (m *Manager) stopLocked() {
	if m.stopPoll == nil {
		return
	}
	close(m.stopPoll)
	m.stopPoll = nil
	if m.hints != nil {
		m.hints.close()
		m.hints = nil
	}
}

func (m *Manager) pollLoop(stop <-chan struct{}, interval time.Duration, hints <-chan struct{}) {
	defer m.pollWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.tick() // zero initial delay

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.tick()
		case <-hints:
			m.tick()
		}
	}
}

// tick runs one poll: enumerate, reconcile, dispatch. tickMu keeps ticks
// strictly sequential even across a scheduler restart. Enumeration failure
// makes the tick a no-op; the next one proceeds normally.
func (m *Manager) tick() {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	klog.V(5).Info("polling for removable devices")

	snapshot, err := m.backend.Enumerate(context.Background())
	if err != nil {
		klog.Errorf("device enumeration failed, skipping tick: %v", err)
		return
	}

	m.stateMu.Lock()
	connected, removed := m.state.reconcile(snapshot)
	m.stateMu.Unlock()

	for _, dev := range connected {
		klog.V(4).Infof("device connected: %s", dev)
		m.dispatcher.dispatch(Connected{dev})
	}
	for _, dev := range removed {
		klog.V(4).Infof("device removed: %s", dev)
		m.dispatcher.dispatch(Removed{dev})
	}
}
