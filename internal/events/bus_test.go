package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceInspectedEvent, 1)

	unsub := bus.Subscribe(func(e DeviceInspectedEvent) {
		received <- e
	})
	defer unsub()

	event := DeviceInspectedEvent{
		DeviceID:  "hda:card0:pcm0p",
		DataFlow:  "render",
		Nodes:     16,
		Timestamp: "2026-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.DeviceID != event.DeviceID || got.Nodes != 16 {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan DiagnosticEvent, 1)
	received2 := make(chan DiagnosticEvent, 1)

	unsub1 := bus.Subscribe(func(e DiagnosticEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e DiagnosticEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(DiagnosticEvent{DeviceID: "spk", Code: "READ_FAILURE"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CatalogReloadedEvent, 1)

	unsub := bus.Subscribe(func(e CatalogReloadedEvent) { received <- e })

	bus.Publish(CatalogReloadedEvent{Source: "a.toml"})
	<-received

	unsub()

	bus.Publish(CatalogReloadedEvent{Source: "b.toml"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	inspected := make(chan bool, 1)
	diagnostics := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ DeviceInspectedEvent) { inspected <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ DiagnosticEvent) { diagnostics <- true })
	defer unsub2()

	bus.Publish(DeviceInspectedEvent{DeviceID: "spk"})
	<-inspected

	select {
	case <-diagnostics:
		t.Fatal("Diagnostic subscriber should NOT have received DeviceInspectedEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(DiagnosticEvent{DeviceID: "spk"})
	<-diagnostics

	select {
	case <-inspected:
		t.Fatal("Inspected subscriber should NOT have received DiagnosticEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ DiagnosticEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(DiagnosticEvent{
					Code:      "CYCLE_DETECTED",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"DeviceInspected", DeviceInspectedEvent{DeviceID: "spk"}},
		{"Diagnostic", DiagnosticEvent{Code: "DEPTH_EXCEEDED"}},
		{"CatalogReloaded", CatalogReloadedEvent{Source: "fixture.toml"}},
		{"LogEntry", LogEntryEvent{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case DeviceInspectedEvent:
				unsub = bus.Subscribe(func(e DeviceInspectedEvent) { received <- e })
			case DiagnosticEvent:
				unsub = bus.Subscribe(func(e DiagnosticEvent) { received <- e })
			case CatalogReloadedEvent:
				unsub = bus.Subscribe(func(e CatalogReloadedEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("Subscribe should return a no-op unsubscribe for unknown handlers")
	}
	unsub()
}

func TestEventJSONFields(t *testing.T) {
	data, err := json.Marshal(DiagnosticEvent{
		DeviceID: "spk",
		Code:     "CAST_FAILURE",
		Op:       "cast connector",
		Message:  "not a connector",
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if result["code"] != "CAST_FAILURE" {
		t.Errorf("code = %v, want CAST_FAILURE", result["code"])
	}
	if _, ok := result["location"]; ok {
		t.Error("empty location should be omitted")
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[DeviceInspectedEvent](bus, ch)
	defer unsub()

	bus.Publish(DeviceInspectedEvent{DeviceID: "spk"})

	received := <-ch
	ev, ok := received.(DeviceInspectedEvent)
	if !ok {
		t.Fatalf("Expected DeviceInspectedEvent, got %T", received)
	}
	if ev.DeviceID != "spk" {
		t.Errorf("Expected device_id spk, got %s", ev.DeviceID)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)

	unsub := SubscribeToChannel[DiagnosticEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(DiagnosticEvent{Code: "READ_FAILURE"})
		done <- true
	}()

	<-done
}
