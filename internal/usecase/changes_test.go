package usecase

import (
	"testing"

	"OddsEdge/internal/domain/models"
)

func arbRow(id string, roiBps float64, priceA, priceB int) models.Opportunity {
	return models.Opportunity{
		ID:     id,
		Kind:   models.KindArbitrage,
		RoiBps: roiBps,
		SideA:  models.OpportunitySide{Price: priceA},
		SideB:  &models.OpportunitySide{Price: priceB},
	}
}

func TestDiffAddedAndChanged(t *testing.T) {
	prev := Index([]models.Opportunity{
		arbRow("a", 150, 105, 110),
		arbRow("b", 90, -110, 120),
	})
	rows := []models.Opportunity{
		arbRow("a", 200, 105, 115), // roi and price B moved up
		arbRow("b", 90, -110, 120), // untouched
		arbRow("c", 60, 100, 100),  // new this tick
	}

	added, changes := Diff(prev, rows)

	if len(added) != 1 || added[0] != "c" {
		t.Fatalf("added %v", added)
	}
	if len(changes) != 1 {
		t.Fatalf("changes %v", changes)
	}
	rec, ok := changes["a"]
	if !ok {
		t.Fatalf("no record for a")
	}
	if rec.Roi != models.DirUp || rec.PriceB != models.DirUp || rec.PriceA != "" {
		t.Fatalf("record %+v", rec)
	}
}

func TestDiffDirections(t *testing.T) {
	prev := Index([]models.Opportunity{arbRow("a", 150, 105, 110)})
	rows := []models.Opportunity{arbRow("a", 120, 100, 115)}

	_, changes := Diff(prev, rows)
	rec := changes["a"]
	if rec.Roi != models.DirDown {
		t.Fatalf("roi %q", rec.Roi)
	}
	if rec.PriceA != models.DirDown {
		t.Fatalf("priceA %q", rec.PriceA)
	}
	if rec.PriceB != models.DirUp {
		t.Fatalf("priceB %q", rec.PriceB)
	}
}

func TestDiffIdempotent(t *testing.T) {
	rows := []models.Opportunity{
		arbRow("a", 150, 105, 110),
		arbRow("b", 90, -110, 120),
	}
	added, changes := Diff(Index(rows), rows)
	if len(added) != 0 {
		t.Fatalf("added %v", added)
	}
	if changes != nil {
		t.Fatalf("changes %v", changes)
	}
}

func TestDiffAgainstEmptyPrev(t *testing.T) {
	rows := []models.Opportunity{arbRow("a", 150, 105, 110)}
	added, changes := Diff(nil, rows)
	if len(added) != 1 || added[0] != "a" {
		t.Fatalf("added %v", added)
	}
	if changes != nil {
		t.Fatalf("changes %v", changes)
	}
}

func TestDiffEvSingleNilSecondLeg(t *testing.T) {
	evRow := func(roiBps float64, price int) models.Opportunity {
		return models.Opportunity{
			ID:     "ev",
			Kind:   models.KindPositiveEV,
			RoiBps: roiBps,
			SideA:  models.OpportunitySide{Price: price},
		}
	}
	prev := Index([]models.Opportunity{evRow(80, 110)})
	_, changes := Diff(prev, []models.Opportunity{evRow(95, 112)})

	rec := changes["ev"]
	if rec.Roi != models.DirUp || rec.PriceA != models.DirUp || rec.PriceB != "" {
		t.Fatalf("record %+v", rec)
	}
}
