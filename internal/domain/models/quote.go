package models

import (
	"fmt"
	"time"
)

// Mode distinguishes pregame and in-play opportunities.
type Mode string

const (
	ModePrematch Mode = "prematch"
	ModeLive     Mode = "live"
)

// RawQuote is a single odds update as it arrives from a feed, before
// normalization. Prices are floats on the wire; anything non-finite is
// rejected by the pipeline.
type RawQuote struct {
	Book       string  `json:"book"`
	EventID    string  `json:"event_id"`
	Market     string  `json:"market"`
	Side       string  `json:"side"`
	Line       float64 `json:"line"`
	Price      float64 `json:"price"` // American
	Mode       Mode    `json:"mode"`
	EventStart int64   `json:"event_start"` // unix seconds
	Timestamp  int64   `json:"ts"`          // unix ms or s, feed-dependent
	DeepLink   string  `json:"link,omitempty"`
}

// Quote is a normalized, immutable odds quote. Superseded by newer quotes for
// the same (book, selection) pair; an older timestamp never replaces a newer one.
type Quote struct {
	Book       string
	EventID    string
	Market     string
	Side       string
	Line       float64
	Price      int // American
	Implied    float64
	Mode       Mode
	EventStart time.Time
	ObservedAt time.Time
	DeepLink   string
}

// GroupKey identifies the logical bet this quote belongs to: same event,
// market, and line across all books.
func (q Quote) GroupKey() string {
	return fmt.Sprintf("%s|%s|%g", q.EventID, q.Market, q.Line)
}

// SelectionKey identifies one book's price on one side of the bet.
func (q Quote) SelectionKey() string {
	return fmt.Sprintf("%s|%s|%s", q.GroupKey(), q.Side, q.Book)
}

// MarketGroup is the set of current quotes for one logical bet, split by side.
// Invariant: at most one quote per (book, side); newest wins.
type MarketGroup struct {
	EventID    string
	Market     string
	Line       float64
	Mode       Mode
	EventStart time.Time
	Sides      map[string][]Quote
}

// SideNames returns the side keys present in the group.
func (g *MarketGroup) SideNames() []string {
	names := make([]string, 0, len(g.Sides))
	for s := range g.Sides {
		names = append(names, s)
	}
	return names
}
