package usecase

import (
	"math"
	"testing"
	"time"

	"OddsEdge/internal/domain/models"
)

func rawQuote(book, side string, price float64, ts int64) *models.RawQuote {
	return &models.RawQuote{
		Book:      book,
		EventID:   "ev1",
		Market:    "moneyline",
		Side:      side,
		Price:     price,
		Mode:      models.ModePrematch,
		Timestamp: ts,
	}
}

func TestQuoteBookApply(t *testing.T) {
	b := NewQuoteBook(time.Minute)

	q, accepted, err := b.Apply(rawQuote("dk", "home", -110, 1000))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !accepted {
		t.Fatalf("first quote should be accepted")
	}
	if q.Price != -110 {
		t.Fatalf("price %d", q.Price)
	}
	if math.Abs(q.Implied-110.0/210.0) > 1e-9 {
		t.Fatalf("implied %v", q.Implied)
	}
	if b.Len() != 1 {
		t.Fatalf("len %d", b.Len())
	}
}

func TestQuoteBookLastWriteWins(t *testing.T) {
	b := NewQuoteBook(time.Minute)

	if _, accepted, _ := b.Apply(rawQuote("dk", "home", -110, 2000)); !accepted {
		t.Fatalf("initial quote rejected")
	}
	// Older timestamp for the same selection must not roll the price back.
	if _, accepted, _ := b.Apply(rawQuote("dk", "home", -105, 1500)); accepted {
		t.Fatalf("stale quote accepted")
	}
	// Equal timestamp is also superseded.
	if _, accepted, _ := b.Apply(rawQuote("dk", "home", -105, 2000)); accepted {
		t.Fatalf("same-timestamp quote accepted")
	}
	// Newer wins.
	if _, accepted, _ := b.Apply(rawQuote("dk", "home", -105, 2500)); !accepted {
		t.Fatalf("newer quote rejected")
	}

	groups := b.SnapshotGroups(time.Unix(2500, 0))
	if len(groups) != 1 {
		t.Fatalf("groups %d", len(groups))
	}
	got := groups[0].Sides["home"][0]
	if got.Price != -105 {
		t.Fatalf("price %d, want -105", got.Price)
	}
}

func TestQuoteBookRejectsBadPrices(t *testing.T) {
	b := NewQuoteBook(time.Minute)
	if _, _, err := b.Apply(rawQuote("dk", "home", math.NaN(), 1000)); err == nil {
		t.Fatalf("expected error for NaN price")
	}
	if _, _, err := b.Apply(rawQuote("dk", "home", math.Inf(1), 1000)); err == nil {
		t.Fatalf("expected error for Inf price")
	}
	if _, _, err := b.Apply(rawQuote("dk", "home", 0, 1000)); err == nil {
		t.Fatalf("expected error for zero price")
	}
	if _, _, err := b.Apply(nil); err == nil {
		t.Fatalf("expected error for nil quote")
	}
	if b.Len() != 0 {
		t.Fatalf("bad quotes stored")
	}
}

func TestQuoteBookRejectsBadLines(t *testing.T) {
	b := NewQuoteBook(time.Minute)
	for _, line := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		raw := rawQuote("dk", "over", -110, 1000)
		raw.Market = "total"
		raw.Line = line
		if _, _, err := b.Apply(raw); err == nil {
			t.Fatalf("expected error for line %v", line)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("bad-line quotes stored")
	}
}

func TestQuoteBookMillisecondTimestamps(t *testing.T) {
	b := NewQuoteBook(time.Minute)
	q, _, err := b.Apply(rawQuote("dk", "home", 120, 1700000000123))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := time.UnixMilli(1700000000123).UTC()
	if !q.ObservedAt.Equal(want) {
		t.Fatalf("observed %v want %v", q.ObservedAt, want)
	}
}

func TestSnapshotGroupsEvictsStale(t *testing.T) {
	b := NewQuoteBook(time.Minute)
	base := time.Unix(10000, 0)

	b.Apply(rawQuote("dk", "home", -110, base.Unix()))
	b.Apply(rawQuote("fd", "away", -110, base.Add(-2*time.Minute).Unix()))

	groups := b.SnapshotGroups(base)
	if len(groups) != 1 {
		t.Fatalf("groups %d", len(groups))
	}
	if _, ok := groups[0].Sides["away"]; ok {
		t.Fatalf("stale side survived")
	}
	// Eviction is in place, not just filtered from the snapshot.
	if b.Len() != 1 {
		t.Fatalf("len %d after eviction", b.Len())
	}
}

func TestSnapshotGroupsLiveFlipsGroup(t *testing.T) {
	b := NewQuoteBook(time.Minute)
	ts := time.Unix(10000, 0).Unix()

	b.Apply(rawQuote("dk", "home", -110, ts))
	live := rawQuote("fd", "away", -110, ts)
	live.Mode = models.ModeLive
	b.Apply(live)

	groups := b.SnapshotGroups(time.Unix(10000, 0))
	if len(groups) != 1 {
		t.Fatalf("groups %d", len(groups))
	}
	if groups[0].Mode != models.ModeLive {
		t.Fatalf("group mode %s, want live", groups[0].Mode)
	}
}

func TestSnapshotGroupsDeterministicOrder(t *testing.T) {
	b := NewQuoteBook(time.Minute)
	ts := time.Unix(10000, 0).Unix()

	for _, ev := range []string{"ev3", "ev1", "ev2"} {
		q := rawQuote("dk", "home", -110, ts)
		q.EventID = ev
		b.Apply(q)
	}

	groups := b.SnapshotGroups(time.Unix(10000, 0))
	if len(groups) != 3 {
		t.Fatalf("groups %d", len(groups))
	}
	for i, want := range []string{"ev1", "ev2", "ev3"} {
		if groups[i].EventID != want {
			t.Fatalf("pos %d: %s want %s", i, groups[i].EventID, want)
		}
	}
}
