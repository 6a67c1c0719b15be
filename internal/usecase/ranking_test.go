package usecase

import (
	"fmt"
	"testing"
	"time"

	"OddsEdge/internal/domain/models"
)

func opp(id string, roiBps float64, mode models.Mode) models.Opportunity {
	return models.Opportunity{
		ID:     id,
		Kind:   models.KindArbitrage,
		Mode:   mode,
		RoiBps: roiBps,
	}
}

func TestSortOpportunities(t *testing.T) {
	early := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(3 * time.Hour)

	ops := []models.Opportunity{
		{ID: "c", RoiBps: 50, EventStart: early},
		{ID: "a", RoiBps: 120, EventStart: late},
		{ID: "b", RoiBps: 120, EventStart: early},
		{ID: "d", RoiBps: 50, EventStart: early},
	}
	SortOpportunities(ops)

	want := []string{"b", "a", "c", "d"}
	for i, id := range want {
		if ops[i].ID != id {
			t.Fatalf("pos %d: %s want %s", i, ops[i].ID, id)
		}
	}
}

func TestViewFreeTier(t *testing.T) {
	r := NewRanker(100, 100, 1000)
	ops := []models.Opportunity{
		opp("small", 80, models.ModePrematch), // visible
		opp("big", 250, models.ModePrematch),  // over the ROI ceiling
		opp("inplay", 40, models.ModeLive),    // live is pro-only at any ROI
		opp("edge", 100, models.ModePrematch), // exactly at the ceiling: visible
	}
	view := r.ViewOf(ops, models.Counts{Pregame: 3, Live: 1}, ViewOptions{Tier: models.TierFree})

	if len(view.Rows) != 2 {
		t.Fatalf("rows %d, want 2", len(view.Rows))
	}
	if view.Rows[0].ID != "edge" || view.Rows[1].ID != "small" {
		t.Fatalf("rows %s,%s", view.Rows[0].ID, view.Rows[1].ID)
	}
	if view.FilteredCount != 2 {
		t.Fatalf("filtered %d, want 2", view.FilteredCount)
	}
	if view.FilteredReason != models.FilteredReasonUpgrade {
		t.Fatalf("reason %q", view.FilteredReason)
	}
	// Counts report the full set, not the visible slice.
	if view.Counts.Pregame != 3 || view.Counts.Live != 1 {
		t.Fatalf("counts %+v", view.Counts)
	}
}

func TestViewProTier(t *testing.T) {
	r := NewRanker(100, 100, 1000)
	ops := []models.Opportunity{
		opp("big", 250, models.ModePrematch),
		opp("inplay", 40, models.ModeLive),
	}
	view := r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierPro})

	if len(view.Rows) != 2 {
		t.Fatalf("rows %d, want 2", len(view.Rows))
	}
	if view.FilteredCount != 0 || view.FilteredReason != "" {
		t.Fatalf("pro tier filtered %d (%q)", view.FilteredCount, view.FilteredReason)
	}
}

func TestViewCapAfterSort(t *testing.T) {
	r := NewRanker(100, 5, 1000)
	var ops []models.Opportunity
	for i := 0; i < 20; i++ {
		ops = append(ops, opp(fmt.Sprintf("op%02d", i), float64(i), models.ModePrematch))
	}
	view := r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierFree})

	if len(view.Rows) != 5 {
		t.Fatalf("rows %d, want 5", len(view.Rows))
	}
	// The cap keeps the best rows, not the first ones seen.
	if view.Rows[0].ID != "op19" || view.Rows[4].ID != "op15" {
		t.Fatalf("cap kept %s..%s", view.Rows[0].ID, view.Rows[4].ID)
	}
	if len(view.IDs) != 5 || view.IDs[0] != "op19" {
		t.Fatalf("ids %v", view.IDs)
	}
}

func TestViewLimitClampedToTierMax(t *testing.T) {
	r := NewRanker(100, 3, 1000)
	var ops []models.Opportunity
	for i := 0; i < 10; i++ {
		ops = append(ops, opp(fmt.Sprintf("op%d", i), 10, models.ModePrematch))
	}
	view := r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierFree, Limit: 50})
	if len(view.Rows) != 3 {
		t.Fatalf("rows %d, want tier max 3", len(view.Rows))
	}

	view = r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierFree, Limit: 2})
	if len(view.Rows) != 2 {
		t.Fatalf("rows %d, want requested 2", len(view.Rows))
	}
}

func TestViewModeAndEventFilters(t *testing.T) {
	r := NewRanker(100, 100, 1000)
	a := opp("a", 50, models.ModePrematch)
	a.EventID = "ev1"
	b := opp("b", 60, models.ModeLive)
	b.EventID = "ev1"
	c := opp("c", 70, models.ModePrematch)
	c.EventID = "ev2"
	ops := []models.Opportunity{a, b, c}

	view := r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierPro, Mode: models.ModeLive})
	if len(view.Rows) != 1 || view.Rows[0].ID != "b" {
		t.Fatalf("mode filter rows %v", view.IDs)
	}

	view = r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierPro, EventID: "ev1"})
	if len(view.Rows) != 2 {
		t.Fatalf("event filter rows %v", view.IDs)
	}
	// Mode filtering is not counted against the upgrade message.
	if view.FilteredCount != 0 {
		t.Fatalf("filtered %d", view.FilteredCount)
	}
}

func TestViewHiddenEdges(t *testing.T) {
	r := NewRanker(100, 100, 1000)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ops := []models.Opportunity{
		opp("a", 50, models.ModePrematch),
		opp("b", 60, models.ModePrematch),
	}
	hidden := []models.HiddenEdge{
		{EdgeID: "a", AutoUnhideAt: now.Add(time.Hour)},  // active
		{EdgeID: "b", AutoUnhideAt: now.Add(-time.Hour)}, // lapsed
	}

	view := r.ViewOf(ops, models.Counts{}, ViewOptions{Tier: models.TierPro, Hidden: hidden, Now: now})
	if len(view.Rows) != 1 || view.Rows[0].ID != "b" {
		t.Fatalf("rows %v", view.IDs)
	}
	// Hidden rows are the user's choice, not an upsell.
	if view.FilteredCount != 0 {
		t.Fatalf("filtered %d", view.FilteredCount)
	}
}

func TestCountByMode(t *testing.T) {
	c := CountByMode([]models.Opportunity{
		opp("a", 1, models.ModePrematch),
		opp("b", 1, models.ModeLive),
		opp("c", 1, models.ModePrematch),
	})
	if c.Pregame != 2 || c.Live != 1 {
		t.Fatalf("counts %+v", c)
	}
}
