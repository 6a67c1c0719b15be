package usecase

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"OddsEdge/internal/domain/models"
	"OddsEdge/pkg/odds"
)

// QuoteBook holds the current normalized quote per (book, selection).
// Last write wins per selection, keyed by feed timestamp: an update that is
// not newer than what we hold is dropped, so out-of-order frames from a
// reconnecting feed cannot roll prices backwards.
type QuoteBook struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote // SelectionKey -> newest quote
	ttl    time.Duration
}

// NewQuoteBook creates an empty book. Quotes older than ttl at snapshot time
// are treated as dead and dropped.
func NewQuoteBook(ttl time.Duration) *QuoteBook {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QuoteBook{
		quotes: make(map[string]models.Quote),
		ttl:    ttl,
	}
}

// Apply normalizes a raw quote and merges it into the book. Returns the
// normalized quote and false when it was rejected (unusable price or
// superseded by a newer quote for the same selection).
func (b *QuoteBook) Apply(raw *models.RawQuote) (models.Quote, bool, error) {
	q, err := Normalize(raw)
	if err != nil {
		return models.Quote{}, false, err
	}

	key := q.SelectionKey()

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.quotes[key]; ok && !q.ObservedAt.After(prev.ObservedAt) {
		return q, false, nil
	}
	b.quotes[key] = q
	return q, true, nil
}

// Normalize converts a raw feed quote into the internal representation:
// American price rounded to an int, implied probability precomputed, and
// feed timestamps (seconds or milliseconds) lifted to time.Time.
func Normalize(raw *models.RawQuote) (models.Quote, error) {
	if raw == nil {
		return models.Quote{}, fmt.Errorf("normalize: nil quote")
	}
	if !odds.IsFinitePrice(raw.Price) {
		return models.Quote{}, fmt.Errorf("normalize: non-finite price for %s/%s", raw.Book, raw.EventID)
	}
	// A NaN or Inf line would leak into selection keys and delivered rows.
	if math.IsNaN(raw.Line) || math.IsInf(raw.Line, 0) {
		return models.Quote{}, fmt.Errorf("normalize: non-finite line for %s/%s", raw.Book, raw.EventID)
	}

	price := int(math.Round(raw.Price))
	implied, err := odds.AmericanToImplied(price)
	if err != nil {
		return models.Quote{}, fmt.Errorf("normalize: %w", err)
	}

	return models.Quote{
		Book:       raw.Book,
		EventID:    raw.EventID,
		Market:     raw.Market,
		Side:       raw.Side,
		Line:       raw.Line,
		Price:      price,
		Implied:    implied,
		Mode:       raw.Mode,
		EventStart: time.Unix(raw.EventStart, 0).UTC(),
		ObservedAt: unixFlexible(raw.Timestamp),
		DeepLink:   raw.DeepLink,
	}, nil
}

// unixFlexible accepts unix seconds or milliseconds.
func unixFlexible(ts int64) time.Time {
	if ts > 1e11 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// Len returns the number of live selections held.
func (b *QuoteBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.quotes)
}

// SnapshotGroups returns a copy of the current market groups, excluding
// quotes that have gone stale. The returned groups are detached from the
// book; the caller may hold them across ticks.
func (b *QuoteBook) SnapshotGroups(now time.Time) []*models.MarketGroup {
	cutoff := now.Add(-b.ttl)

	b.mu.Lock()
	groups := make(map[string]*models.MarketGroup)
	for key, q := range b.quotes {
		if q.ObservedAt.Before(cutoff) {
			delete(b.quotes, key)
			continue
		}
		gk := q.GroupKey()
		g, ok := groups[gk]
		if !ok {
			g = &models.MarketGroup{
				EventID:    q.EventID,
				Market:     q.Market,
				Line:       q.Line,
				Mode:       q.Mode,
				EventStart: q.EventStart,
				Sides:      make(map[string][]models.Quote),
			}
			groups[gk] = g
		}
		// Live quotes flip the whole group live.
		if q.Mode == models.ModeLive {
			g.Mode = models.ModeLive
		}
		g.Sides[q.Side] = append(g.Sides[q.Side], q)
	}
	b.mu.Unlock()

	out := make([]*models.MarketGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		if out[i].Market != out[j].Market {
			return out[i].Market < out[j].Market
		}
		return out[i].Line < out[j].Line
	})
	return out
}
