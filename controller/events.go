// Package controller coordinates the configuration list and the proxy client.
// This file contains the event types and the ordered event bus.
package controller

import (
	"sync"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/storage"
)

// EventType identifies a controller notification.
type EventType string

const (
	// EventInitConfigs is published once after the initial load.
	EventInitConfigs EventType = "configs.init"
	// EventRefreshConfigs is published after every mutation of the
	// configuration list or the selection.
	EventRefreshConfigs EventType = "configs.refresh"
	// EventStateChanged carries the full status after every accepted intent.
	EventStateChanged EventType = "state.changed"
	// EventExecError reports a client process fault.
	EventExecError EventType = "process.exec_error"
	// EventError reports persistence and delegation failures.
	EventError EventType = "controller.error"
	// EventShowWindow asks the window collaborator to show itself.
	EventShowWindow EventType = "window.show"
	// EventExit is published once the client has been stopped on exit.
	EventExit EventType = "app.exit"

	// EventAll subscribes to every event type.
	EventAll EventType = "*"
)

// Event is a controller notification.
type Event interface {
	Type() EventType
}

// ConfigsEvent carries the displayed configuration set.
type ConfigsEvent struct {
	EventType EventType
	Configs   []storage.ClientConfig
	Selected  int
}

func (e ConfigsEvent) Type() EventType { return e.EventType }

// StateEvent carries a status snapshot.
type StateEvent struct {
	Status Status
}

func (e StateEvent) Type() EventType { return EventStateChanged }

// ExecErrorEvent carries a client process fault.
type ExecErrorEvent struct {
	Err *common.ProcessError
}

func (e ExecErrorEvent) Type() EventType { return EventExecError }

// ErrorEvent carries a non-process failure.
type ErrorEvent struct {
	Op  string
	Err error
}

func (e ErrorEvent) Type() EventType { return EventError }

// SignalEvent is an event without payload.
type SignalEvent struct {
	EventType EventType
}

func (e SignalEvent) Type() EventType { return e.EventType }

// Handler handles an event.
type Handler func(event Event)

// Bus dispatches controller events to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers handler for eventType.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(handler Handler) {
	b.Subscribe(EventAll, handler)
}

// HasSubscribers reports whether any handler would receive eventType.
func (b *Bus) HasSubscribers(eventType EventType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0 || len(b.handlers[EventAll]) > 0
}

// PublishSync runs all handlers for event on the calling goroutine.
func (b *Bus) PublishSync(event Event) {
	b.mu.RLock()
	// Copy so handlers run outside the lock
	handlers := make([]Handler, 0, len(b.handlers[event.Type()])+len(b.handlers[EventAll]))
	handlers = append(handlers, b.handlers[event.Type()]...)
	handlers = append(handlers, b.handlers[EventAll]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// dispatcher delivers events in publish order on its own goroutine, so a
// handler may submit intents without blocking the controller loop.
type dispatcher struct {
	bus *Bus

	mu      sync.Mutex
	queue   []Event
	closed  bool
	wake    chan struct{}
	drained chan struct{}
}

func newDispatcher(bus *Bus) *dispatcher {
	d := &dispatcher{
		bus:     bus,
		wake:    make(chan struct{}, 1),
		drained: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) publish(event Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, event)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// close stops accepting events. Queued events are still delivered.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.drained)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, ev := range batch {
			d.bus.PublishSync(ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}
