package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe(EventReservationCreated, handler)

	payload := ReservationEventPayload{
		ReservationID: "res-1",
		RoomID:        "r1",
		OwnerID:       "p1",
		Status:        "active",
		Start:         time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	err := bus.PublishJSON(EventReservationCreated, payload)
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != EventReservationCreated {
		t.Errorf("expected type %s, got %s", EventReservationCreated, received.Type)
	}

	var decoded ReservationEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded.ReservationID != "res-1" || decoded.RoomID != "r1" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()

	// Publishing without subscribers must not panic.
	bus.Publish(&Event{Type: "nobody_listens"})

	if err := bus.PublishJSON("nobody_listens", map[string]string{}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON("event", nil); err != nil {
		t.Fatalf("nil bus should be a no-op, got %v", err)
	}
}
