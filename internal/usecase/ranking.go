package usecase

import (
	"sort"
	"time"

	"OddsEdge/internal/domain/models"
)

// Ranker applies sort order, tier visibility rules, hidden-edge exclusions,
// and the post-sort cap to a tick's opportunity set.
type Ranker struct {
	freeRoiCapBps float64
	freeLimit     int
	proLimit      int
}

// NewRanker creates a ranker. Zero arguments fall back to the product
// defaults: 100 bps free ROI ceiling, 100 free / 1000 pro row caps.
func NewRanker(freeRoiCapBps float64, freeLimit, proLimit int) *Ranker {
	if freeRoiCapBps <= 0 {
		freeRoiCapBps = 100
	}
	if freeLimit <= 0 {
		freeLimit = 100
	}
	if proLimit <= 0 {
		proLimit = 1000
	}
	return &Ranker{freeRoiCapBps: freeRoiCapBps, freeLimit: freeLimit, proLimit: proLimit}
}

// ViewOptions scopes one subscription's slice of a snapshot.
type ViewOptions struct {
	Tier    models.Tier
	Mode    models.Mode // prematch or live
	EventID string      // optional single-event filter
	Limit   int         // requested cap; clamped to the tier maximum
	Hidden  []models.HiddenEdge
	Now     time.Time
}

// View filters, sorts, and caps a snapshot's opportunities for one
// subscription. Counts are carried from the snapshot untouched: they report
// the full qualifying set regardless of tier or cap.
func (r *Ranker) View(snap *models.Snapshot, opt ViewOptions) models.View {
	return r.ViewOf(snap.Opportunities, snap.Counts, opt)
}

// ViewOf is View over an explicit opportunity set, used when a subscription
// re-projects the snapshot through a user EV model.
func (r *Ranker) ViewOf(ops []models.Opportunity, counts models.Counts, opt ViewOptions) models.View {
	view := models.View{Counts: counts}

	hidden := activeHidden(opt.Hidden, opt.Now)

	rows := make([]models.Opportunity, 0, len(ops))
	for _, op := range ops {
		if opt.EventID != "" && op.EventID != opt.EventID {
			continue
		}
		if len(hidden) > 0 && hidden[op.ID] {
			continue
		}
		if opt.Mode != "" && op.Mode != opt.Mode {
			continue
		}
		if opt.Tier != models.TierPro {
			// Free tier: pregame only, ROI at or under the ceiling. Live
			// rows are invisible regardless of ROI.
			if op.Mode != models.ModePrematch || op.RoiBps > r.freeRoiCapBps {
				view.FilteredCount++
				continue
			}
		}
		rows = append(rows, op)
	}

	if view.FilteredCount > 0 {
		view.FilteredReason = models.FilteredReasonUpgrade
	}

	SortOpportunities(rows)

	limit := opt.Limit
	max := r.freeLimit
	if opt.Tier == models.TierPro {
		max = r.proLimit
	}
	if limit <= 0 || limit > max {
		limit = max
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	view.Rows = rows
	view.IDs = make([]string, len(rows))
	for i, op := range rows {
		view.IDs[i] = op.ID
	}
	return view
}

// SortOpportunities orders by ROI descending, ties broken by the
// soonest-starting event, then by id for determinism.
func SortOpportunities(ops []models.Opportunity) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].RoiBps != ops[j].RoiBps {
			return ops[i].RoiBps > ops[j].RoiBps
		}
		if !ops[i].EventStart.Equal(ops[j].EventStart) {
			return ops[i].EventStart.Before(ops[j].EventStart)
		}
		return ops[i].ID < ops[j].ID
	})
}

// CountByMode splits an opportunity set into pregame and live totals.
func CountByMode(ops []models.Opportunity) models.Counts {
	var c models.Counts
	for _, op := range ops {
		if op.Mode == models.ModeLive {
			c.Live++
		} else {
			c.Pregame++
		}
	}
	return c
}

func activeHidden(hidden []models.HiddenEdge, now time.Time) map[string]bool {
	if len(hidden) == 0 {
		return nil
	}
	m := make(map[string]bool, len(hidden))
	for _, h := range hidden {
		if !h.Expired(now) {
			m[h.EdgeID] = true
		}
	}
	return m
}
