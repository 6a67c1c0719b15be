package stream

import "testing"

func TestTrySendDropsWhenFull(t *testing.T) {
	s := &Subscription{events: make(chan Event, 2)}

	if !s.trySend(Event{Name: EventTick}) || !s.trySend(Event{Name: EventTick}) {
		t.Fatalf("sends within buffer failed")
	}
	if s.trySend(Event{Name: EventTick}) {
		t.Fatalf("send into full buffer succeeded")
	}
	if s.drops != 1 {
		t.Fatalf("drops %d", s.drops)
	}

	// Draining one slot lets the next send through and resets the run.
	<-s.events
	if !s.trySend(Event{Name: EventTick}) {
		t.Fatalf("send after drain failed")
	}
	if s.drops != 0 {
		t.Fatalf("drops not reset: %d", s.drops)
	}
}
