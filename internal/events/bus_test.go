package events

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestPublishDeliversToSpecificSubscribers(t *testing.T) {
	t.Parallel()

	bus := New(WithLogger(quietLogger()))

	transitionEvents := make(chan Event, 1)
	lineEvents := make(chan Event, 1)

	bus.Subscribe(EventTypeStateTransition, func(event Event) {
		transitionEvents <- event
	})
	bus.Subscribe(EventTypeLineAppended, func(event Event) {
		lineEvents <- event
	})

	bus.Publish(Event{
		Type:       EventTypeStateTransition,
		EntityType: "session",
		EntityID:   "run-1",
		Severity:   SeverityInfo,
	})

	select {
	case got := <-transitionEvents:
		if got.Type != EventTypeStateTransition {
			t.Fatalf("received type = %q, want %q", got.Type, EventTypeStateTransition)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transition subscriber event")
	}

	select {
	case got := <-lineEvents:
		t.Fatalf("unexpected line event delivered: %#v", got)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSubscribeAllReceivesEveryEvent(t *testing.T) {
	t.Parallel()

	bus := New(WithLogger(quietLogger()))
	all := make(chan Event, 2)

	bus.SubscribeAll(func(event Event) {
		all <- event
	})

	bus.Publish(Event{
		Type:       EventTypeTurtleAdded,
		EntityType: "turtle",
		EntityID:   "turtle-1",
		Severity:   SeverityInfo,
	})
	bus.Publish(Event{
		Type:       EventTypeCleared,
		EntityType: "session",
		EntityID:   "run-2",
		Severity:   SeverityWarn,
	})

	gotFirst := waitForEvent(t, all)
	gotSecond := waitForEvent(t, all)
	got := []string{gotFirst.Type, gotSecond.Type}

	if !containsType(got, EventTypeTurtleAdded) {
		t.Fatalf("wildcard subscriber missing %q event; got %v", EventTypeTurtleAdded, got)
	}
	if !containsType(got, EventTypeCleared) {
		t.Fatalf("wildcard subscriber missing %q event; got %v", EventTypeCleared, got)
	}
}

func TestPublishDropsWhenSubscriberBufferIsFullAndReturnsQuickly(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	bus := New(WithBufferSize(1), WithLogger(log.New(&logs)))

	started := make(chan struct{}, 1)
	unblock := make(chan struct{})

	bus.Subscribe(EventTypeLineAppended, func(Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-unblock
	})

	baseEvent := Event{
		Type:       EventTypeLineAppended,
		EntityType: "session",
		EntityID:   "run-42",
		Severity:   SeverityWarn,
	}

	bus.Publish(baseEvent)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler to block")
	}

	bus.Publish(baseEvent)

	start := time.Now()
	bus.Publish(baseEvent)
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("publish blocked for %s; expected non-blocking behavior", elapsed)
	}

	close(unblock)

	if got := bus.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
	if !strings.Contains(logs.String(), "dropped event") {
		t.Fatalf("expected drop warning log, got %q", logs.String())
	}
}

func TestPublishPopulatesTimestampAndPreservesMetadata(t *testing.T) {
	t.Parallel()

	bus := New(WithLogger(quietLogger()))
	ch := make(chan Event, 1)

	bus.Subscribe(EventTypeInputRequested, func(event Event) {
		ch <- event
	})

	bus.Publish(Event{
		Type:       EventTypeInputRequested,
		EntityType: "input",
		EntityID:   "read-1",
		Payload:    map[string]any{"prompt": "name?"},
		Severity:   SeverityInfo,
	})

	got := waitForEvent(t, ch)
	if got.Timestamp.IsZero() {
		t.Fatal("timestamp is zero; expected publish to populate timestamp")
	}
	if got.EntityType != "input" {
		t.Fatalf("entity type = %q, want %q", got.EntityType, "input")
	}
	if got.EntityID != "read-1" {
		t.Fatalf("entity id = %q, want %q", got.EntityID, "read-1")
	}
	if got.Severity != SeverityInfo {
		t.Fatalf("severity = %q, want %q", got.Severity, SeverityInfo)
	}
}

func TestBusSupportsConcurrentPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	bus := New(WithBufferSize(5000), WithLogger(quietLogger()))
	const publisherCount = 20
	const eventsPerPublisher = 100

	var received atomic.Int64
	expectedFromWildcard := int64(publisherCount * eventsPerPublisher)

	bus.SubscribeAll(func(Event) {
		received.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < publisherCount; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerPublisher; j++ {
				bus.Publish(Event{
					Type:       EventTypeLineAppended,
					EntityType: "session",
					EntityID:   "run-concurrent",
					Payload:    map[string]int{"publisher": i, "index": j},
					Severity:   SeverityInfo,
				})
			}
		}()
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Subscribe(EventTypeLineAppended, func(Event) {})
		}()
	}

	wg.Wait()
	waitForCount(t, &received, expectedFromWildcard, 2*time.Second)
}

func containsType(types []string, want string) bool {
	for _, eventType := range types {
		if eventType == want {
			return true
		}
	}
	return false
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()

	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func waitForCount(t *testing.T, got *atomic.Int64, want int64, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("received count = %d, want at least %d", got.Load(), want)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestSubscriberObservesPublishOrder(t *testing.T) {
	t.Parallel()

	bus := New(WithBufferSize(64), WithLogger(quietLogger()))
	ch := make(chan Event, 64)
	bus.SubscribeAll(func(event Event) {
		ch <- event
	})

	for i := 0; i < 20; i++ {
		bus.Publish(Event{
			Type:       EventTypeLineAppended,
			EntityType: "line",
			EntityID:   fmt.Sprintf("line-%02d", i),
		})
	}

	for i := 0; i < 20; i++ {
		got := waitForEvent(t, ch)
		if want := fmt.Sprintf("line-%02d", i); got.EntityID != want {
			t.Fatalf("event %d entity id = %q, want %q", i, got.EntityID, want)
		}
		if got.Severity != SeverityInfo {
			t.Fatalf("default severity = %q, want %q", got.Severity, SeverityInfo)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := New(WithLogger(quietLogger()))
	kept := make(chan Event, 4)
	removed := make(chan Event, 4)
	bus.Subscribe(EventTypeInputRequested, func(event Event) { kept <- event })
	unsubscribe := bus.Subscribe(EventTypeInputRequested, func(event Event) { removed <- event })

	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Type: EventTypeInputRequested, Payload: "name?"})

	if got := waitForEvent(t, kept); got.Payload != "name?" {
		t.Fatalf("payload = %v, want name?", got.Payload)
	}
	select {
	case got := <-removed:
		t.Fatalf("unsubscribed handler received %#v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseEndsSubscriptionsAndDiscardsLaterEvents(t *testing.T) {
	t.Parallel()

	bus := New(WithLogger(quietLogger()))
	ch := make(chan Event, 4)
	bus.SubscribeAll(func(event Event) { ch <- event })

	bus.Publish(Event{Type: EventTypeCleared})
	bus.Close()
	bus.Publish(Event{Type: EventTypeTurtleAdded})
	bus.SubscribeAll(func(event Event) { ch <- event })()
	bus.Publish(Event{Type: EventTypeTurtleStep})

	if got := waitForEvent(t, ch); got.Type != EventTypeCleared {
		t.Fatalf("type = %q, want %q", got.Type, EventTypeCleared)
	}
	select {
	case got := <-ch:
		t.Fatalf("event after close delivered: %#v", got)
	case <-time.After(100 * time.Millisecond):
	}
	if bus.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", bus.Dropped())
	}
}

func TestSubscribeIgnoresBlankTypeAndNilHandler(t *testing.T) {
	t.Parallel()

	bus := New(WithLogger(quietLogger()))
	bus.Subscribe("  ", func(Event) { t.Error("blank type subscription received an event") })()
	bus.Subscribe(EventTypeCleared, nil)()
	bus.SubscribeAll(nil)()
	bus.Publish(Event{Type: EventTypeCleared})
}
