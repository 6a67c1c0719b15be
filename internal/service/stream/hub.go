package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"OddsEdge/internal/domain/models"
	domrepo "OddsEdge/internal/domain/repository"
	"OddsEdge/internal/usecase"
	applogger "OddsEdge/pkg/logger"

	"github.com/google/uuid"
)

const (
	eventBuffer = 16
	maxDropRun  = 8 // consecutive dropped events before disconnect
)

// Config holds delivery cadence and entitlement recheck settings.
type Config struct {
	LiveInterval     time.Duration // per-tick delivery for live subscriptions
	PrematchInterval time.Duration // slower cadence for pregame
	Heartbeat        time.Duration
	EntitlementTTL   time.Duration // how often a session is re-validated
}

// Hub owns all active subscriptions. Each subscription runs its own delivery
// goroutine at its mode's cadence, reading the engine's current snapshot;
// the shared tick loop never waits on a client.
type Hub struct {
	cfg       Config
	engine    *usecase.Engine
	prefs     domrepo.UserPrefs
	ents      domrepo.Entitlements
	feedState func() domrepo.StreamState
	metrics   domrepo.Metrics
	logger    *applogger.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewHub creates the hub. feedState reports the ingest feed's connection
// state so subscriptions can surface hasFailed.
func NewHub(
	cfg Config,
	engine *usecase.Engine,
	prefs domrepo.UserPrefs,
	ents domrepo.Entitlements,
	feedState func() domrepo.StreamState,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *Hub {
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 2 * time.Second
	}
	if cfg.PrematchInterval <= 0 {
		cfg.PrematchInterval = 15 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 25 * time.Second
	}
	if cfg.EntitlementTTL <= 0 {
		cfg.EntitlementTTL = 30 * time.Second
	}
	return &Hub{
		cfg:       cfg,
		engine:    engine,
		prefs:     prefs,
		ents:      ents,
		feedState: feedState,
		metrics:   metrics,
		logger:    logger,
		subs:      make(map[string]*Subscription),
	}
}

// Subscribe registers a client and starts its delivery goroutine. The first
// event is a full snapshot; subsequent ticks carry diffs.
func (h *Hub) Subscribe(ctx context.Context, opts SubscribeOptions) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		opts:   opts,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		tier:   opts.Tier,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()
	h.metrics.RecordSubscribers(n)

	h.logger.Info("subscription opened",
		applogger.String("id", sub.ID),
		applogger.String("mode", string(opts.Mode)),
		applogger.String("tier", string(opts.Tier)),
	)

	go h.run(ctx, sub)
	return sub
}

// Unsubscribe removes a client. Safe to call more than once.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(sub.done)
	h.metrics.RecordSubscribers(n)
	h.logger.Info("subscription closed", applogger.String("id", id))
}

// Count returns the number of active subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) run(ctx context.Context, sub *Subscription) {
	interval := h.cfg.PrematchInterval
	if sub.opts.Mode == models.ModeLive {
		interval = h.cfg.LiveInterval
	}

	ticker := time.NewTicker(interval)
	heartbeat := time.NewTicker(h.cfg.Heartbeat)
	recheck := time.NewTicker(h.cfg.EntitlementTTL)
	defer ticker.Stop()
	defer heartbeat.Stop()
	defer recheck.Stop()

	h.refreshHidden(ctx, sub)
	h.deliver(sub, EventSnapshot)
	if sub.opts.PlanDegraded {
		// Connect-time entitlement lookup failed; the free fallback is a
		// recoverable state the client must be able to see.
		h.sendControl(sub, Event{Name: EventPlanDegraded})
	}

	failedSent := false

	for {
		select {
		case <-ctx.Done():
			h.Unsubscribe(sub.ID)
			return
		case <-sub.done:
			return
		case <-ticker.C:
			if h.feedState != nil && !failedSent && h.feedState() == domrepo.StreamFailed {
				// The ingest feed gave up reconnecting; tell the client the
				// data is no longer moving rather than streaming stale ticks.
				h.sendControl(sub, Event{Name: EventHasFailed})
				failedSent = true
			}
			if !h.deliver(sub, EventTick) {
				return
			}
		case <-heartbeat.C:
			if !sub.trySend(Event{Name: EventHeartbeat}) && sub.drops >= maxDropRun {
				h.disconnectSlow(sub)
				return
			}
		case <-recheck.C:
			if h.recheck(ctx, sub) {
				return
			}
		}
	}
}

// deliver computes and queues one view. Returns false when the subscription
// was disconnected for falling too far behind.
func (h *Hub) deliver(sub *Subscription, name string) bool {
	snap := h.engine.Current()
	ops := snap.Opportunities
	if sub.opts.Model != nil {
		ops = h.engine.OpportunitiesForModel(sub.opts.Model)
	}

	view := h.engine.Ranker().ViewOf(ops, snap.Counts, usecase.ViewOptions{
		Tier:    sub.tier,
		Mode:    sub.opts.Mode,
		EventID: sub.opts.EventID,
		Limit:   sub.opts.Limit,
		Hidden:  sub.hidden,
		Now:     snap.At,
	})
	view.Added, view.Changes = usecase.Diff(sub.prev, view.Rows)

	payload, err := json.Marshal(view)
	if err != nil {
		h.metrics.RecordError("view_marshal")
		return true
	}

	if !sub.trySend(Event{Name: name, Data: payload}) {
		h.metrics.RecordError("sse_send_drop")
		if sub.drops >= maxDropRun {
			h.disconnectSlow(sub)
			return false
		}
		// Dropped tick: keep prev so the next delivered diff is against what
		// the client last saw.
		return true
	}

	sub.prev = usecase.Index(view.Rows)
	return true
}

// recheck re-validates the session against the authoritative plan source.
// Returns true when the subscription ended (auth expired).
func (h *Hub) recheck(ctx context.Context, sub *Subscription) bool {
	if sub.opts.Token == "" {
		return false
	}

	h.refreshHidden(ctx, sub)

	plan, err := h.ents.PlanByToken(ctx, sub.opts.Token)
	if err != nil {
		if errors.Is(err, domrepo.ErrSessionExpired) {
			h.sendControl(sub, Event{Name: EventAuthExpired})
			h.Unsubscribe(sub.ID)
			return true
		}
		// Lookup failure: downgrade to free for subsequent ticks rather
		// than dropping the stream, and tell the client why its rows
		// thinned out.
		h.metrics.RecordError("entitlement_lookup")
		if sub.tier != models.TierFree {
			h.sendControl(sub, Event{Name: EventPlanDegraded})
		}
		sub.tier = models.TierFree
		return false
	}
	sub.tier = plan.Tier()
	return false
}

func (h *Hub) refreshHidden(ctx context.Context, sub *Subscription) {
	if sub.opts.UserID == "" || h.prefs == nil {
		return
	}
	hidden, err := h.prefs.HiddenEdges(ctx, sub.opts.UserID)
	if err != nil {
		h.metrics.RecordError("hidden_edges_lookup")
		return
	}
	sub.hidden = hidden
}

// sendControl delivers a control event, blocking briefly if needed: control
// events must not be lost to a full tick buffer.
func (h *Hub) sendControl(sub *Subscription, ev Event) {
	select {
	case sub.events <- ev:
	case <-time.After(time.Second):
	case <-sub.done:
	}
}

func (h *Hub) disconnectSlow(sub *Subscription) {
	h.logger.Warn("disconnecting slow subscriber",
		applogger.String("id", sub.ID),
		applogger.Int("dropped", sub.drops),
	)
	h.metrics.RecordError("slow_subscriber")
	h.Unsubscribe(sub.ID)
}
