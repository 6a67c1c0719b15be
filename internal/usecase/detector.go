package usecase

import (
	"sort"
	"time"

	"OddsEdge/internal/domain/models"
	"OddsEdge/pkg/odds"
)

// DetectorConfig parameterizes opportunity detection. The zero value is not
// usable; construct via NewDetector which applies defaults.
type DetectorConfig struct {
	SharpBooks  []string
	BookWeights map[string]float64
	MinBooks    int
	MaxSpread   float64
	MinEvBps    float64
}

// Detector scans market groups for arbitrage pairs and positive-EV singles.
// It is stateless and safe for concurrent use; per-user EV models are applied
// by deriving a parameterized copy with WithModel.
type Detector struct {
	sharp     map[string]bool
	consensus odds.ConsensusConfig
	minEvBps  float64
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg DetectorConfig) *Detector {
	sharp := make(map[string]bool, len(cfg.SharpBooks))
	for _, b := range cfg.SharpBooks {
		sharp[b] = true
	}
	minBooks := cfg.MinBooks
	if minBooks <= 0 {
		minBooks = 2
	}
	return &Detector{
		sharp: sharp,
		consensus: odds.ConsensusConfig{
			Weights:   cfg.BookWeights,
			MinBooks:  minBooks,
			MaxSpread: cfg.MaxSpread,
		},
		minEvBps: cfg.MinEvBps,
	}
}

// WithModel derives a detector parameterized by a user-defined EV model.
// The consensus spread bound is inherited from the base configuration.
func (d *Detector) WithModel(m *models.EVModel) *Detector {
	if m == nil {
		return d
	}
	return NewDetector(DetectorConfig{
		SharpBooks:  m.SharpBooks,
		BookWeights: m.BookWeights,
		MinBooks:    m.MinBooks,
		MaxSpread:   d.consensus.MaxSpread,
		MinEvBps:    m.MinEvBps,
	})
}

// Detect runs both rules over every group. Results are unsorted; ordering is
// the ranking engine's concern.
func (d *Detector) Detect(groups []*models.MarketGroup, now time.Time) []models.Opportunity {
	var out []models.Opportunity
	for _, g := range groups {
		if op, ok := d.detectArb(g, now); ok {
			out = append(out, op)
		}
		out = append(out, d.detectEV(g, now)...)
	}
	return out
}

// DetectEV runs only the positive-EV rule. Used when re-projecting a shared
// snapshot through a user's EV model: the arbitrage set is model-independent.
func (d *Detector) DetectEV(groups []*models.MarketGroup, now time.Time) []models.Opportunity {
	var out []models.Opportunity
	for _, g := range groups {
		out = append(out, d.detectEV(g, now)...)
	}
	return out
}

// detectArb pairs the best (lowest implied) quote on each of two
// complementary sides. Groups without exactly two sides, or with an empty
// side, cannot form a pair and are skipped.
func (d *Detector) detectArb(g *models.MarketGroup, now time.Time) (models.Opportunity, bool) {
	names := g.SideNames()
	if len(names) != 2 {
		return models.Opportunity{}, false
	}
	sort.Strings(names)

	bestA, okA := bestQuote(g.Sides[names[0]])
	bestB, okB := bestQuote(g.Sides[names[1]])
	if !okA || !okB {
		return models.Opportunity{}, false
	}

	roi := odds.ArbROIBps(bestA.Implied, bestB.Implied)
	if roi <= 0 {
		return models.Opportunity{}, false
	}

	return models.Opportunity{
		ID:         models.ArbID(g.EventID, g.Market, g.Line, names[0], names[1]),
		Kind:       models.KindArbitrage,
		EventID:    g.EventID,
		Market:     g.Market,
		Line:       g.Line,
		Mode:       g.Mode,
		EventStart: g.EventStart,
		RoiBps:     roi,
		SideA:      legFrom(bestA),
		SideB:      ptr(legFrom(bestB)),
		DetectedAt: now,
	}, true
}

// detectEV computes the sharp consensus per side and flags every non-sharp
// book priced better than fair by more than the threshold.
func (d *Detector) detectEV(g *models.MarketGroup, now time.Time) []models.Opportunity {
	if len(d.sharp) == 0 {
		return nil
	}

	var out []models.Opportunity
	for side, quotes := range g.Sides {
		byBook := make(map[string]float64)
		for _, q := range quotes {
			if d.sharp[q.Book] {
				byBook[q.Book] = q.Implied
			}
		}

		// Insufficient consensus is not an error: the side is simply
		// skipped for EV purposes this tick.
		fair, err := odds.Consensus(byBook, d.consensus)
		if err != nil {
			continue
		}

		for _, q := range quotes {
			if d.sharp[q.Book] {
				continue
			}
			ev := odds.EvBps(fair, q.Implied)
			if ev <= d.minEvBps || ev <= 0 {
				continue
			}
			out = append(out, models.Opportunity{
				ID:         models.EvID(g.EventID, g.Market, g.Line, side, q.Book),
				Kind:       models.KindPositiveEV,
				EventID:    g.EventID,
				Market:     g.Market,
				Line:       g.Line,
				Mode:       g.Mode,
				EventStart: g.EventStart,
				RoiBps:     ev,
				SideA:      legFrom(q),
				FairProb:   fair,
				DetectedAt: now,
			})
		}
	}
	return out
}

// bestQuote picks the lowest-implied (highest payout) quote of a side.
func bestQuote(quotes []models.Quote) (models.Quote, bool) {
	if len(quotes) == 0 {
		return models.Quote{}, false
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Implied < best.Implied {
			best = q
		}
	}
	return best, true
}

func legFrom(q models.Quote) models.OpportunitySide {
	return models.OpportunitySide{
		Book:     q.Book,
		Side:     q.Side,
		Price:    q.Price,
		Implied:  q.Implied,
		DeepLink: q.DeepLink,
	}
}

func ptr[T any](v T) *T { return &v }
