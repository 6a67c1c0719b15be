package odds

import "errors"

// ErrInsufficientConsensus means too few reference books priced the side, or
// the reference books disagree beyond the sanity bound. Not an error condition
// for callers: the market is simply skipped for EV purposes this tick.
var ErrInsufficientConsensus = errors.New("odds: insufficient sharp consensus")

// ConsensusConfig parameterizes the fair-price calculation.
type ConsensusConfig struct {
	// Weights per reference book. A book absent from the map contributes with
	// weight 1; a non-positive weight excludes the book entirely. Weights are
	// normalized over the books actually contributing, so a missing book's
	// weight is redistributed rather than treated as zero mass.
	Weights map[string]float64

	// MinBooks is the minimum number of contributing reference books.
	MinBooks int

	// MaxSpread is the maximum allowed max-min gap between contributing
	// implied probabilities. Zero disables the check.
	MaxSpread float64
}

// Consensus computes the weighted fair probability from per-book implied
// probabilities of the reference (sharp) books. Books excluded by weight do
// not count toward MinBooks and do not widen the spread bound.
func Consensus(byBook map[string]float64, cfg ConsensusConfig) (float64, error) {
	minBooks := cfg.MinBooks
	if minBooks <= 0 {
		minBooks = 2
	}

	lo, hi := 1.0, 0.0
	var sum, weight float64
	books := 0
	for book, prob := range byBook {
		w := 1.0
		if cfg.Weights != nil {
			if bw, ok := cfg.Weights[book]; ok {
				if bw <= 0 {
					continue
				}
				w = bw
			}
		}
		if prob < lo {
			lo = prob
		}
		if prob > hi {
			hi = prob
		}
		sum += prob * w
		weight += w
		books++
	}
	if books < minBooks || weight == 0 {
		return 0, ErrInsufficientConsensus
	}
	if cfg.MaxSpread > 0 && hi-lo > cfg.MaxSpread {
		// Likely a stale quote on one of the reference books.
		return 0, ErrInsufficientConsensus
	}
	return sum / weight, nil
}
