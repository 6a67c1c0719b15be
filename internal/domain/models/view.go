package models

// Direction marks which way a tracked field moved between ticks.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

// ChangeRecord holds per-field movement for one surviving opportunity id.
// Valid for exactly one delivered tick, then discarded.
type ChangeRecord struct {
	Roi    Direction `json:"roi,omitempty"`
	PriceA Direction `json:"a,omitempty"`
	PriceB Direction `json:"b,omitempty"`
}

// Tier is the entitlement level gating opportunity visibility.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// FilteredReasonUpgrade is reported when free-tier rules hid opportunities.
const FilteredReasonUpgrade = "pro_required"

// View is one subscription's filtered, diffed slice of a snapshot: the
// payload delivered per tick.
type View struct {
	Rows           []Opportunity           `json:"rows"`
	IDs            []string                `json:"ids"`
	Changes        map[string]ChangeRecord `json:"changes,omitempty"`
	Added          []string                `json:"added,omitempty"`
	Counts         Counts                  `json:"counts"`
	FilteredCount  int                     `json:"filteredCount"`
	FilteredReason string                  `json:"filteredReason,omitempty"`
}

// Plan is the entitlement record served by /api/me/plan. The server treats
// its own lookup as authoritative; a client-asserted pro flag is never honored.
type Plan struct {
	Authenticated bool   `json:"authenticated"`
	Plan          string `json:"plan"` // "free" | "pro"
	Trial         bool   `json:"trial"`

	// UserID is the resolved session owner, for server-side use only.
	UserID string `json:"-"`
}

// Tier maps a plan to the filtering tier.
func (p Plan) Tier() Tier {
	if p.Authenticated && (p.Plan == "pro" || p.Trial) {
		return TierPro
	}
	return TierFree
}
