package usecase

import (
	"OddsEdge/internal/domain/models"
)

// Diff compares the rows delivered this tick against the previous tick's
// keyed index. Ids absent from prev are reported as added; surviving ids get
// per-field up/down markers for ROI and side prices. Removed ids need no
// tombstone; their absence from the id list is the signal.
func Diff(prev map[string]models.Opportunity, rows []models.Opportunity) (added []string, changes map[string]models.ChangeRecord) {
	for _, op := range rows {
		old, ok := prev[op.ID]
		if !ok {
			added = append(added, op.ID)
			continue
		}

		var rec models.ChangeRecord
		rec.Roi = directionF(old.RoiBps, op.RoiBps)
		rec.PriceA = directionI(old.SideA.Price, op.SideA.Price)
		if old.SideB != nil && op.SideB != nil {
			rec.PriceB = directionI(old.SideB.Price, op.SideB.Price)
		}

		if rec.Roi != "" || rec.PriceA != "" || rec.PriceB != "" {
			if changes == nil {
				changes = make(map[string]models.ChangeRecord)
			}
			changes[op.ID] = rec
		}
	}
	return added, changes
}

// Index builds the keyed map a subscription holds between ticks.
func Index(rows []models.Opportunity) map[string]models.Opportunity {
	m := make(map[string]models.Opportunity, len(rows))
	for _, op := range rows {
		m[op.ID] = op
	}
	return m
}

func directionF(old, cur float64) models.Direction {
	switch {
	case cur > old:
		return models.DirUp
	case cur < old:
		return models.DirDown
	default:
		return ""
	}
}

func directionI(old, cur int) models.Direction {
	switch {
	case cur > old:
		return models.DirUp
	case cur < old:
		return models.DirDown
	default:
		return ""
	}
}
