package usecase

import (
	"testing"
	"time"

	"OddsEdge/internal/domain/models"
	applogger "OddsEdge/pkg/logger"
)

type tickMetrics struct {
	ticks   int
	skipped int
}

func (m *tickMetrics) RecordQuote(string, bool)      {}
func (m *tickMetrics) RecordTick(time.Duration, int) { m.ticks++ }
func (m *tickMetrics) RecordTickSkipped()            { m.skipped++ }
func (m *tickMetrics) RecordError(string)            {}
func (m *tickMetrics) RecordSubscribers(int)         {}
func (m *tickMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testEngine(t *testing.T, m *tickMetrics) (*Engine, *QuoteBook) {
	t.Helper()
	book := NewQuoteBook(time.Minute)
	det := NewDetector(DetectorConfig{SharpBooks: []string{"pinnacle", "circa"}})
	return NewEngine(book, det, NewRanker(0, 0, 0), nil, m, testLogger(t), time.Second), book
}

func TestEngineCurrentNeverNil(t *testing.T) {
	e, _ := testEngine(t, &tickMetrics{})
	snap := e.Current()
	if snap == nil {
		t.Fatalf("nil snapshot before first tick")
	}
	if len(snap.Opportunities) != 0 || snap.Seq != 0 {
		t.Fatalf("pre-tick snapshot %+v", snap)
	}
}

func TestEngineTick(t *testing.T) {
	m := &tickMetrics{}
	e, book := testEngine(t, m)
	now := time.Unix(10000, 0).UTC()

	book.Apply(rawQuote("dk", "home", 105, now.Unix()))
	book.Apply(rawQuote("fd", "away", 105, now.Unix()))

	snap := e.Tick(now)
	if snap.Seq != 1 {
		t.Fatalf("seq %d", snap.Seq)
	}
	if len(snap.Opportunities) != 1 {
		t.Fatalf("ops %d", len(snap.Opportunities))
	}
	if snap.Counts.Pregame != 1 || snap.Counts.Live != 0 {
		t.Fatalf("counts %+v", snap.Counts)
	}
	if e.Current() != snap {
		t.Fatalf("Current did not publish the new snapshot")
	}
	if m.ticks != 1 {
		t.Fatalf("tick metric %d", m.ticks)
	}

	// Next tick advances seq even with an unchanged book.
	if snap2 := e.Tick(now.Add(time.Second)); snap2.Seq != 2 {
		t.Fatalf("seq %d", snap2.Seq)
	}
}

func TestEngineTickSortsOpportunities(t *testing.T) {
	e, book := testEngine(t, &tickMetrics{})
	now := time.Unix(10000, 0).UTC()

	// Two separate markets with different edge sizes.
	small := rawQuote("dk", "home", 102, now.Unix())
	small.Market = "spread"
	book.Apply(small)
	smallB := rawQuote("fd", "away", 102, now.Unix())
	smallB.Market = "spread"
	book.Apply(smallB)

	book.Apply(rawQuote("dk", "home", 120, now.Unix()))
	book.Apply(rawQuote("fd", "away", 120, now.Unix()))

	snap := e.Tick(now)
	if len(snap.Opportunities) != 2 {
		t.Fatalf("ops %d", len(snap.Opportunities))
	}
	if snap.Opportunities[0].RoiBps < snap.Opportunities[1].RoiBps {
		t.Fatalf("not sorted by roi: %v then %v",
			snap.Opportunities[0].RoiBps, snap.Opportunities[1].RoiBps)
	}
}

func TestOpportunitiesForModel(t *testing.T) {
	e, book := testEngine(t, &tickMetrics{})
	now := time.Unix(10000, 0).UTC()

	// An arb pair plus a quote only a custom model's sharp book can price.
	book.Apply(rawQuote("dk", "home", 105, now.Unix()))
	book.Apply(rawQuote("fd", "away", 105, now.Unix()))
	book.Apply(rawQuote("betcris", "home", -120, now.Unix()))

	e.Tick(now)

	if got := e.OpportunitiesForModel(nil); len(got) != len(e.Current().Opportunities) {
		t.Fatalf("nil model should return the shared set")
	}

	m := &models.EVModel{
		UserID:     "u1",
		Name:       "custom",
		SharpBooks: []string{"betcris"},
		MinBooks:   1,
	}
	ops := e.OpportunitiesForModel(m)

	var arbs, evs int
	for _, op := range ops {
		switch op.Kind {
		case models.KindArbitrage:
			arbs++
		case models.KindPositiveEV:
			evs++
		}
	}
	if arbs != 1 {
		t.Fatalf("arbs %d, want the shared pair", arbs)
	}
	// dk prices home cheaper than betcris says is fair.
	if evs == 0 {
		t.Fatalf("model produced no ev singles")
	}

	// Second call within the same snapshot is memoized.
	again := e.OpportunitiesForModel(m)
	if len(again) != len(ops) {
		t.Fatalf("memoized call changed: %d vs %d", len(again), len(ops))
	}
	if len(ops) > 0 && &again[0] != &ops[0] {
		t.Fatalf("memoized call recomputed the slice")
	}

	// A new tick invalidates the memo.
	e.Tick(now.Add(time.Second))
	fresh := e.OpportunitiesForModel(m)
	if len(fresh) != len(ops) {
		t.Fatalf("post-tick ops %d vs %d", len(fresh), len(ops))
	}
}
