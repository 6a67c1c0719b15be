package models

import (
	"fmt"
	"hash/fnv"
	"time"
)

// OpportunityKind separates risk-free pairs from single +EV bets.
type OpportunityKind string

const (
	KindArbitrage  OpportunityKind = "arb"
	KindPositiveEV OpportunityKind = "ev"
)

// OpportunitySide is one leg of an opportunity.
type OpportunitySide struct {
	Book     string  `json:"book"`
	Side     string  `json:"side"`
	Price    int     `json:"price"`
	Implied  float64 `json:"implied"`
	DeepLink string  `json:"link,omitempty"`
}

// Opportunity is a derived, ephemeral record recomputed every tick. Its ID is
// stable across ticks for the same logical edge so the change tracker can diff
// by key; the backing books and prices may move underneath it.
type Opportunity struct {
	ID         string          `json:"id"`
	Kind       OpportunityKind `json:"kind"`
	EventID    string          `json:"event_id"`
	Market     string          `json:"market"`
	Line       float64         `json:"line"`
	Mode       Mode            `json:"mode"`
	EventStart time.Time       `json:"event_start"`
	RoiBps     float64         `json:"roi_bps"`

	SideA OpportunitySide  `json:"a"`
	SideB *OpportunitySide `json:"b,omitempty"` // arbitrage only

	// FairProb is the sharp-consensus reference used for EV singles.
	FairProb float64 `json:"fair_prob,omitempty"`

	DetectedAt time.Time `json:"detected_at"`
}

// ArbID derives the stable id for an arbitrage pair. Books are deliberately
// excluded: the best book per side may rotate tick to tick while the edge
// itself persists.
func ArbID(eventID, market string, line float64, sideA, sideB string) string {
	return hashID("arb", eventID, market, fmt.Sprintf("%g", line), sideA, sideB)
}

// EvID derives the stable id for a +EV single at one book.
func EvID(eventID, market string, line float64, side, book string) string {
	return hashID("ev", eventID, market, fmt.Sprintf("%g", line), side, book)
}

func hashID(parts ...string) string {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Counts is the pregame/live split reported independently of any cap.
type Counts struct {
	Pregame int `json:"pregame"`
	Live    int `json:"live"`
}

// Snapshot is the immutable output of one engine tick, shared by reference
// across all subscriptions. Nothing in it is mutated after publication.
type Snapshot struct {
	Seq           int64
	At            time.Time
	Opportunities []Opportunity // sorted: ROI desc, event start asc
	Groups        []*MarketGroup
	Counts        Counts
}
