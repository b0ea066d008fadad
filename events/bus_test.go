package events

import (
	"sync/atomic"
	"testing"
	"time"
)

func makeEvent(typ Type, taskID string) Event {
	return Event{
		Type:       typ,
		TaskID:     taskID,
		TaskTitle:  "test",
		ReminderID: "rem-" + taskID,
		At:         time.Now(),
	}
}

func TestInMemoryBus_Subscribe_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus()

	var received int32
	unsub := bus.Subscribe(func(Event) {
		atomic.AddInt32(&received, 1)
	})

	bus.Publish(makeEvent(TypeScheduled, "t1"))
	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("received = %d, want 1", received)
	}

	// Unsubscribe and verify no more deliveries
	unsub()
	bus.Publish(makeEvent(TypeDelivered, "t1"))
	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("received after unsub = %d, want 1", received)
	}
}

func TestInMemoryBus_MultipleSubscribers(t *testing.T) {
	bus := NewInMemoryBus()

	var count int32
	bus.Subscribe(func(Event) { atomic.AddInt32(&count, 1) })
	bus.Subscribe(func(Event) { atomic.AddInt32(&count, 1) })

	bus.Publish(makeEvent(TypeTapped, "t1"))

	if atomic.LoadInt32(&count) != 2 {
		t.Errorf("count = %d, want 2 (both handlers fired)", count)
	}
}

func TestInMemoryBus_History(t *testing.T) {
	bus := NewInMemoryBus()

	bus.Publish(makeEvent(TypeScheduled, "t1"))
	bus.Publish(makeEvent(TypeDelivered, "t1"))
	bus.Publish(makeEvent(TypeTapped, "t1"))

	hist := bus.History(100)
	if len(hist) != 3 {
		t.Fatalf("History len = %d, want 3", len(hist))
	}
	if hist[0].Type != TypeScheduled || hist[2].Type != TypeTapped {
		t.Errorf("History order = %s..%s, want scheduled..tapped", hist[0].Type, hist[2].Type)
	}
}

func TestInMemoryBus_History_Limit(t *testing.T) {
	bus := NewInMemoryBus()

	for i := 0; i < 10; i++ {
		bus.Publish(makeEvent(TypeScheduled, "t1"))
	}

	hist := bus.History(5)
	if len(hist) != 5 {
		t.Errorf("History with limit 5 returned %d events", len(hist))
	}
}
