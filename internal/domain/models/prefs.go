package models

import "time"

// HiddenEdge is a user-scoped exclusion. The edge stays hidden until
// AutoUnhideAt passes, after which it reappears on the next tick.
type HiddenEdge struct {
	UserID       string
	EdgeID       string
	AutoUnhideAt time.Time
}

// Expired reports whether the exclusion no longer applies.
func (h HiddenEdge) Expired(now time.Time) bool {
	return !h.AutoUnhideAt.After(now)
}

// EVModel is a named, user-defined parameter set for the fair-price
// calculation: which books count as sharp, how they are weighted, and how many
// must price a side before a consensus is trusted.
type EVModel struct {
	UserID      string
	Name        string
	SharpBooks  []string
	BookWeights map[string]float64
	MinBooks    int
	MinEvBps    float64
}

// Key returns a stable identity for memoizing per-model detection results
// within a tick.
func (m *EVModel) Key() string {
	return m.UserID + "/" + m.Name
}
