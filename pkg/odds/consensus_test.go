package odds

import (
	"errors"
	"math"
	"testing"
)

func TestConsensusUnweighted(t *testing.T) {
	fair, err := Consensus(map[string]float64{
		"pinnacle": 0.52,
		"circa":    0.50,
	}, ConsensusConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(fair-0.51) > 1e-9 {
		t.Fatalf("got %v want 0.51", fair)
	}
}

func TestConsensusWeighted(t *testing.T) {
	fair, err := Consensus(map[string]float64{
		"pinnacle": 0.60,
		"circa":    0.50,
	}, ConsensusConfig{
		Weights: map[string]float64{"pinnacle": 3, "circa": 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(fair-0.575) > 1e-9 {
		t.Fatalf("got %v want 0.575", fair)
	}
}

func TestConsensusMissingWeightDefaultsToOne(t *testing.T) {
	fair, err := Consensus(map[string]float64{
		"pinnacle":  0.60,
		"bookmaker": 0.50,
	}, ConsensusConfig{
		Weights: map[string]float64{"pinnacle": 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(fair-0.55) > 1e-9 {
		t.Fatalf("got %v want 0.55", fair)
	}
}

func TestConsensusMinBooks(t *testing.T) {
	_, err := Consensus(map[string]float64{"pinnacle": 0.52}, ConsensusConfig{})
	if !errors.Is(err, ErrInsufficientConsensus) {
		t.Fatalf("expected ErrInsufficientConsensus, got %v", err)
	}

	_, err = Consensus(map[string]float64{
		"pinnacle": 0.52,
		"circa":    0.50,
	}, ConsensusConfig{MinBooks: 3})
	if !errors.Is(err, ErrInsufficientConsensus) {
		t.Fatalf("expected ErrInsufficientConsensus, got %v", err)
	}
}

func TestConsensusMaxSpread(t *testing.T) {
	books := map[string]float64{
		"pinnacle": 0.62,
		"circa":    0.50,
	}
	if _, err := Consensus(books, ConsensusConfig{MaxSpread: 0.05}); !errors.Is(err, ErrInsufficientConsensus) {
		t.Fatalf("expected spread rejection, got %v", err)
	}
	if _, err := Consensus(books, ConsensusConfig{MaxSpread: 0.20}); err != nil {
		t.Fatalf("spread within bound should pass: %v", err)
	}
}

func TestConsensusZeroWeightBooksExcluded(t *testing.T) {
	// With every book zeroed out there is no consensus at all.
	_, err := Consensus(map[string]float64{
		"pinnacle": 0.52,
		"circa":    0.50,
	}, ConsensusConfig{
		Weights: map[string]float64{"pinnacle": 0, "circa": 0},
	})
	if !errors.Is(err, ErrInsufficientConsensus) {
		t.Fatalf("expected ErrInsufficientConsensus, got %v", err)
	}
}

func TestConsensusExcludedBooksDoNotCountOrWiden(t *testing.T) {
	// Two priced books, one excluded by weight: only one contributes, which
	// is below the default minimum.
	_, err := Consensus(map[string]float64{
		"pinnacle": 0.52,
		"circa":    0.50,
	}, ConsensusConfig{
		Weights: map[string]float64{"circa": 0},
	})
	if !errors.Is(err, ErrInsufficientConsensus) {
		t.Fatalf("excluded book counted toward minimum: %v", err)
	}

	// An excluded outlier must not trip the spread bound either.
	fair, err := Consensus(map[string]float64{
		"pinnacle":  0.52,
		"circa":     0.50,
		"bookmaker": 0.90, // stale, weighted out
	}, ConsensusConfig{
		Weights:   map[string]float64{"bookmaker": 0},
		MaxSpread: 0.05,
	})
	if err != nil {
		t.Fatalf("excluded outlier widened the spread: %v", err)
	}
	if math.Abs(fair-0.51) > 1e-9 {
		t.Fatalf("got %v want 0.51", fair)
	}
}
