package usecase

import (
	"testing"
	"time"

	"OddsEdge/internal/domain/models"
	"OddsEdge/pkg/odds"
)

func quoteAt(book, side string, price int) models.Quote {
	implied, err := odds.AmericanToImplied(price)
	if err != nil {
		panic(err)
	}
	return models.Quote{
		Book:    book,
		EventID: "ev1",
		Market:  "moneyline",
		Side:    side,
		Price:   price,
		Implied: implied,
		Mode:    models.ModePrematch,
	}
}

func groupOf(quotes ...models.Quote) *models.MarketGroup {
	g := &models.MarketGroup{
		EventID: "ev1",
		Market:  "moneyline",
		Mode:    models.ModePrematch,
		Sides:   make(map[string][]models.Quote),
	}
	for _, q := range quotes {
		g.Sides[q.Side] = append(g.Sides[q.Side], q)
	}
	return g
}

func TestDetectArb(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	g := groupOf(
		quoteAt("dk", "home", 105),
		quoteAt("fd", "away", 105),
	)

	ops := d.Detect([]*models.MarketGroup{g}, time.Now())
	if len(ops) != 1 {
		t.Fatalf("ops %d, want 1", len(ops))
	}
	op := ops[0]
	if op.Kind != models.KindArbitrage {
		t.Fatalf("kind %s", op.Kind)
	}
	if op.RoiBps <= 0 {
		t.Fatalf("roi %v", op.RoiBps)
	}
	if op.SideB == nil {
		t.Fatalf("arb missing second leg")
	}
	if op.SideA.Side == op.SideB.Side {
		t.Fatalf("both legs on %s", op.SideA.Side)
	}
}

func TestDetectArbPicksBestPricePerSide(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	g := groupOf(
		quoteAt("dk", "home", -110),
		quoteAt("mgm", "home", 105), // better payout, lower implied
		quoteAt("fd", "away", 105),
	)

	ops := d.Detect([]*models.MarketGroup{g}, time.Now())
	if len(ops) != 1 {
		t.Fatalf("ops %d, want 1", len(ops))
	}
	for _, leg := range []models.OpportunitySide{ops[0].SideA, *ops[0].SideB} {
		if leg.Price != 105 {
			t.Fatalf("leg %s/%s priced %d, want the +105 quote", leg.Book, leg.Side, leg.Price)
		}
	}
}

func TestDetectArbNoEdge(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	g := groupOf(
		quoteAt("dk", "home", -110),
		quoteAt("fd", "away", -110),
	)
	if ops := d.Detect([]*models.MarketGroup{g}, time.Now()); len(ops) != 0 {
		t.Fatalf("vigged market produced %d ops", len(ops))
	}
}

func TestDetectArbNeedsTwoSides(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	one := groupOf(quoteAt("dk", "home", 200))
	three := groupOf(
		quoteAt("dk", "home", 300),
		quoteAt("dk", "draw", 300),
		quoteAt("dk", "away", 300),
	)
	if ops := d.Detect([]*models.MarketGroup{one, three}, time.Now()); len(ops) != 0 {
		t.Fatalf("non-binary groups produced %d ops", len(ops))
	}
}

func TestDetectArbStableID(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	g1 := groupOf(quoteAt("dk", "home", 105), quoteAt("fd", "away", 105))
	// Same market, best books rotated.
	g2 := groupOf(quoteAt("mgm", "home", 106), quoteAt("czr", "away", 105))

	ops1 := d.Detect([]*models.MarketGroup{g1}, time.Now())
	ops2 := d.Detect([]*models.MarketGroup{g2}, time.Now())
	if len(ops1) != 1 || len(ops2) != 1 {
		t.Fatalf("ops %d/%d", len(ops1), len(ops2))
	}
	if ops1[0].ID != ops2[0].ID {
		t.Fatalf("id changed when books rotated: %s vs %s", ops1[0].ID, ops2[0].ID)
	}
}

func TestDetectEV(t *testing.T) {
	d := NewDetector(DetectorConfig{
		SharpBooks: []string{"pinnacle", "circa"},
	})
	g := groupOf(
		quoteAt("pinnacle", "home", -120),
		quoteAt("circa", "home", -120),
		quoteAt("dk", "home", 110), // well above fair payout
		quoteAt("pinnacle", "away", 100),
		quoteAt("circa", "away", 100),
	)

	ops := d.Detect([]*models.MarketGroup{g}, time.Now())
	var evs []models.Opportunity
	for _, op := range ops {
		if op.Kind == models.KindPositiveEV {
			evs = append(evs, op)
		}
	}
	if len(evs) != 1 {
		t.Fatalf("ev ops %d, want 1", len(evs))
	}
	ev := evs[0]
	if ev.SideA.Book != "dk" {
		t.Fatalf("flagged %s, want dk", ev.SideA.Book)
	}
	fair, _ := odds.AmericanToImplied(-120)
	if ev.FairProb != fair {
		t.Fatalf("fair %v want %v", ev.FairProb, fair)
	}
	if ev.RoiBps <= 0 {
		t.Fatalf("ev %v", ev.RoiBps)
	}
	if ev.SideB != nil {
		t.Fatalf("ev single carries a second leg")
	}
}

func TestDetectEVSkipsSharpBooks(t *testing.T) {
	d := NewDetector(DetectorConfig{
		SharpBooks: []string{"pinnacle", "circa"},
	})
	// Circa drifts cheap relative to Pinnacle; a sharp book is never
	// flagged against its own consensus.
	g := groupOf(
		quoteAt("pinnacle", "home", -140),
		quoteAt("circa", "home", 100),
	)
	if ops := d.Detect([]*models.MarketGroup{g}, time.Now()); len(ops) != 0 {
		t.Fatalf("sharp book flagged: %d ops", len(ops))
	}
}

func TestDetectEVMinBooks(t *testing.T) {
	d := NewDetector(DetectorConfig{
		SharpBooks: []string{"pinnacle", "circa"},
	})
	// Only one sharp book priced the side: no consensus, no signal.
	g := groupOf(
		quoteAt("pinnacle", "home", -120),
		quoteAt("dk", "home", 150),
	)
	if ops := d.Detect([]*models.MarketGroup{g}, time.Now()); len(ops) != 0 {
		t.Fatalf("single-book consensus produced %d ops", len(ops))
	}
}

func TestDetectEVSpreadBound(t *testing.T) {
	d := NewDetector(DetectorConfig{
		SharpBooks: []string{"pinnacle", "circa"},
		MaxSpread:  0.03,
	})
	// Sharp books disagree by far more than 3 points of probability;
	// likely one is stale, so the side is skipped entirely.
	g := groupOf(
		quoteAt("pinnacle", "home", -200),
		quoteAt("circa", "home", 120),
		quoteAt("dk", "home", 200),
	)
	if ops := d.Detect([]*models.MarketGroup{g}, time.Now()); len(ops) != 0 {
		t.Fatalf("divergent consensus produced %d ops", len(ops))
	}
}

func TestDetectEVThreshold(t *testing.T) {
	d := NewDetector(DetectorConfig{
		SharpBooks: []string{"pinnacle", "circa"},
		MinEvBps:   5000,
	})
	g := groupOf(
		quoteAt("pinnacle", "home", -120),
		quoteAt("circa", "home", -120),
		quoteAt("dk", "home", 110),
	)
	if ops := d.Detect([]*models.MarketGroup{g}, time.Now()); len(ops) != 0 {
		t.Fatalf("edge under threshold produced %d ops", len(ops))
	}
}

func TestWithModel(t *testing.T) {
	base := NewDetector(DetectorConfig{
		SharpBooks: []string{"pinnacle", "circa"},
		MaxSpread:  0.05,
	})

	if got := base.WithModel(nil); got != base {
		t.Fatalf("nil model should return the base detector")
	}

	derived := base.WithModel(&models.EVModel{
		UserID:     "u1",
		Name:       "custom",
		SharpBooks: []string{"betcris"},
		MinBooks:   1,
	})
	if derived == base {
		t.Fatalf("model should derive a new detector")
	}

	// The derived detector trusts betcris alone.
	g := groupOf(
		quoteAt("betcris", "home", -120),
		quoteAt("dk", "home", 110),
	)
	ops := derived.DetectEV([]*models.MarketGroup{g}, time.Now())
	if len(ops) != 1 {
		t.Fatalf("derived ops %d, want 1", len(ops))
	}
	if ops[0].SideA.Book != "dk" {
		t.Fatalf("flagged %s", ops[0].SideA.Book)
	}
	// The base does not: pinnacle/circa never priced this side.
	if ops := base.DetectEV([]*models.MarketGroup{g}, time.Now()); len(ops) != 0 {
		t.Fatalf("base ops %d, want 0", len(ops))
	}
}
