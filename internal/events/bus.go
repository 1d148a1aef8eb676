// Package events carries console notifications from the run goroutine to
// observers: the terminal UI, the headless runner and the debug log.
//
// Publishing never blocks the program being run. Each subscription owns a
// buffered queue drained by its own goroutine; when the queue is full the
// event is dropped and counted.
package events

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultBufferSize is the queue length of a subscription.
const DefaultBufferSize = 100

// Event types published by the console backends.
const (
	EventTypeStateTransition = "StateTransition"
	EventTypeLineAppended    = "LineAppended"
	// EventTypeLineReplaced reports an edit of the newest transcript line,
	// such as a resolved input placeholder.
	EventTypeLineReplaced = "LineReplaced"
	// EventTypeInputRequested asks the presentation to focus its input field.
	EventTypeInputRequested = "InputRequested"
	EventTypeCleared        = "Cleared"
	EventTypeTurtleAdded    = "TurtleAdded"
	// EventTypeTurtleStep reports a finished or interrupted turtle step.
	EventTypeTurtleStep = "TurtleStep"
)

// Severities. Publish fills in SeverityInfo when none is set.
const (
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityError = "ERROR"
)

// Event is one notification. EntityType/EntityID name what changed (a
// session run, a line id, a turtle) and Payload carries the detail.
type Event struct {
	Type       string
	Timestamp  time.Time
	EntityType string
	EntityID   string
	Payload    any
	Severity   string
}

// Handler consumes events on the subscription's goroutine.
type Handler func(Event)

// Bus is what publishers and observers depend on.
type Bus interface {
	Subscribe(eventType string, handler Handler) (unsubscribe func())
	SubscribeAll(handler Handler) (unsubscribe func())
	Publish(event Event)
}

// Option customizes New.
type Option func(*InMemoryBus)

// WithBufferSize sets the queue length of each subscription.
func WithBufferSize(size int) Option {
	return func(bus *InMemoryBus) {
		if size > 0 {
			bus.bufferSize = size
		}
	}
}

// WithLogger sets where dropped events are reported.
func WithLogger(logger *log.Logger) Option {
	return func(bus *InMemoryBus) {
		if logger != nil {
			bus.logger = logger
		}
	}
}

// InMemoryBus is the in-process Bus. A subscription sees events in publish
// order; there is no ordering across subscriptions.
type InMemoryBus struct {
	bufferSize int
	logger     *log.Logger
	dropped    atomic.Uint64

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

type subscription struct {
	id        uint64
	eventType string // empty matches every event
	queue     chan Event
	once      sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.queue) })
}

// New returns an empty bus.
func New(options ...Option) *InMemoryBus {
	bus := &InMemoryBus{
		bufferSize: DefaultBufferSize,
		logger:     log.Default(),
		subs:       make(map[uint64]*subscription),
	}
	for _, option := range options {
		option(bus)
	}
	return bus
}

// Subscribe delivers events of one type to handler. A blank type or a nil
// handler subscribes nothing.
func (b *InMemoryBus) Subscribe(eventType string, handler Handler) func() {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return func() {}
	}
	return b.add(eventType, handler)
}

// SubscribeAll delivers every event to handler.
func (b *InMemoryBus) SubscribeAll(handler Handler) func() {
	return b.add("", handler)
}

func (b *InMemoryBus) add(eventType string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.nextID++
	sub := &subscription{id: b.nextID, eventType: eventType, queue: make(chan Event, b.bufferSize)}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go func() {
		for event := range sub.queue {
			handler(event)
		}
	}()
	return func() { b.remove(sub.id) }
}

func (b *InMemoryBus) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		sub.stop()
	}
}

// Publish queues event for every matching subscription without blocking.
// Events published after Close are discarded.
func (b *InMemoryBus) Publish(event Event) {
	event.Type = strings.TrimSpace(event.Type)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	// The read lock is held while queueing so Close and unsubscribe cannot
	// close a queue mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.eventType != "" && sub.eventType != event.Type {
			continue
		}
		select {
		case sub.queue <- event:
		default:
			b.dropped.Add(1)
			b.logger.Warn("dropped event", "subscription", sub.id, "type", event.Type,
				"entity_type", event.EntityType, "entity_id", event.EntityID)
		}
	}
}

// Dropped returns how many deliveries were discarded on full queues.
func (b *InMemoryBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close ends every subscription. Handlers finish the events already queued.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscription)
	b.closed = true
	b.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}
