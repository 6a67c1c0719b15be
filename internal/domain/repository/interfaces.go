package repository

import (
	"context"
	"errors"
	"time"

	"OddsEdge/internal/domain/models"
)

// ErrSessionExpired means the session token is no longer valid. Distinct from
// a lookup failure: an expired session must surface to the client as
// authExpired, never silently downgrade.
var ErrSessionExpired = errors.New("session expired")

// QuoteStream is a live odds feed (WebSocket vendor, typically).
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.RawQuote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	State() StreamState
}

// StreamState is the feed connection state machine.
type StreamState string

const (
	StreamConnecting   StreamState = "connecting"
	StreamConnected    StreamState = "connected"
	StreamReconnecting StreamState = "reconnecting"
	StreamClosed       StreamState = "closed"
	StreamFailed       StreamState = "failed"
)

// Archiver persists accepted quotes and detected opportunities for offline
// research. Failures here never block the hot path.
type Archiver interface {
	ArchiveQuoteBatch(ctx context.Context, quotes []*models.Quote) error
	ArchiveOpportunities(ctx context.Context, seq int64, ops []models.Opportunity) error
	Health(ctx context.Context) error
	Close() error
}

// Publisher fans detected opportunities out to a message broker for
// downstream consumers. Like archival, it is best-effort: a broker outage
// never blocks the tick.
type Publisher interface {
	PublishOpportunities(ctx context.Context, seq int64, ops []models.Opportunity) error
	Close() error
}

// UserPrefs reads user-scoped filtering state written out-of-band by the CRUD
// collaborators. Incorporated into the next tick's filtering, not mid-flight.
type UserPrefs interface {
	HiddenEdges(ctx context.Context, userID string) ([]models.HiddenEdge, error)
	EVModel(ctx context.Context, userID, name string) (*models.EVModel, error)
}

// Entitlements is the authoritative plan source. Lookup errors must surface so
// callers can fall back to free-tier behavior explicitly.
type Entitlements interface {
	PlanByToken(ctx context.Context, token string) (models.Plan, error)
}

// Metrics is the domain-facing metrics recorder.
type Metrics interface {
	RecordQuote(book string, accepted bool)
	RecordTick(dur time.Duration, opportunities int)
	RecordTickSkipped()
	RecordError(kind string)
	RecordSubscribers(n int)
	RecordLatency(op string, seconds float64)
}
