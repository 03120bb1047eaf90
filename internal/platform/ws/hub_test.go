package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestSession(hospitalCode string, buffer int) *session {
	return &session{
		id:           "test-" + hospitalCode,
		hospitalCode: hospitalCode,
		send:         make(chan []byte, buffer),
	}
}

func receive(t *testing.T, s *session) Event {
	t.Helper()
	select {
	case data := <-s.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesOnlyChannelSubscribers(t *testing.T) {
	hub := NewHub()
	a1 := newTestSession("HOSP-001", 4)
	a2 := newTestSession("HOSP-001", 4)
	b := newTestSession("HOSP-002", 4)
	hub.register(a1)
	hub.register(a2)
	hub.register(b)

	hub.Publish(context.Background(), Event{
		Type:         "alert",
		HospitalCode: "HOSP-001",
		Timestamp:    time.Now().UTC(),
	})

	for _, s := range []*session{a1, a2} {
		ev := receive(t, s)
		if ev.HospitalCode != "HOSP-001" {
			t.Errorf("HospitalCode = %q, want HOSP-001", ev.HospitalCode)
		}
	}

	select {
	case <-b.send:
		t.Error("HOSP-002 subscriber received HOSP-001 event")
	default:
	}
}

func TestPublishToEmptyChannelIsNoop(t *testing.T) {
	hub := NewHub()
	// Must not panic or block with zero subscribers.
	hub.Publish(context.Background(), Event{Type: "alert", HospitalCode: "HOSP-009"})
}

func TestSlowSubscriberIsSkippedNotBlocked(t *testing.T) {
	hub := NewHub()
	slow := newTestSession("HOSP-001", 1)
	hub.register(slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), Event{Type: "alert", HospitalCode: "HOSP-001"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	// The one-slot buffer holds exactly the first event; the rest were dropped.
	if got := len(slow.send); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}

func TestUnregisterRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	s := newTestSession("HOSP-001", 4)
	hub.register(s)

	if got := hub.SubscriberCount("HOSP-001"); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	hub.unregister(s)
	if got := hub.SubscriberCount("HOSP-001"); got != 0 {
		t.Errorf("SubscriberCount after unregister = %d, want 0", got)
	}

	// Double unregister must not panic (send channel already closed).
	hub.unregister(s)

	hub.Publish(context.Background(), Event{Type: "alert", HospitalCode: "HOSP-001"})
	if _, open := <-s.send; open {
		t.Error("send channel still open after unregister")
	}
}
