package stream

import (
	"OddsEdge/internal/domain/models"
)

// Event names pushed to clients.
const (
	EventSnapshot    = "snapshot"
	EventTick        = "tick"
	EventAuthExpired  = "authExpired"
	EventHasFailed    = "hasFailed"
	EventHeartbeat    = "heartbeat"
	EventPlanDegraded = "planDegraded"
)

// Event is one message queued for a client. Data is the marshaled payload;
// heartbeats carry none.
type Event struct {
	Name string
	Data []byte
}

// SubscribeOptions describe one client's stream request. Tier is resolved
// server-side before the subscription is created; nothing here is trusted
// from the client beyond mode, event filter, limit, and model name.
type SubscribeOptions struct {
	Token   string
	UserID  string
	Tier    models.Tier
	Mode    models.Mode
	EventID string
	Limit   int
	Model   *models.EVModel

	// PlanDegraded marks a connect-time entitlement lookup failure. The
	// client is told its tier was defaulted to free, not just served fewer
	// rows.
	PlanDegraded bool
}

// Subscription is one connected client. The hub goroutine produces events
// into Events with a non-blocking send; the transport handler drains it. A
// client that cannot keep up loses ticks, never stalls the hub, and is
// disconnected after too many consecutive drops.
type Subscription struct {
	ID   string
	opts SubscribeOptions

	events chan Event
	done   chan struct{}

	// owned by the run goroutine
	tier   models.Tier
	hidden []models.HiddenEdge
	prev   map[string]models.Opportunity
	drops  int
}

// Events is the channel the transport handler drains.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed when the subscription ends (unsubscribe, auth expiry, or
// slow-client disconnect).
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// trySend queues an event without blocking. Returns false if the client's
// buffer was full and the event was dropped.
func (s *Subscription) trySend(ev Event) bool {
	select {
	case s.events <- ev:
		s.drops = 0
		return true
	default:
		s.drops++
		return false
	}
}
