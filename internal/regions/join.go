package regions

import (
	"slices"

	"silver-dashboard/internal/models"
)

// JoinReport surfaces what the zero-fill join would otherwise hide.
type JoinReport struct {
	// Unmatched lists features that found no purchase row and were zero-filled.
	Unmatched []string `json:"unmatched"`
	// UnusedPurchases lists purchase states that no feature claimed.
	UnusedPurchases []string `json:"unused_purchases"`
	// DuplicateStates lists purchase keys seen more than once; the last row wins.
	DuplicateStates []string `json:"duplicate_states"`
}

func (r JoinReport) Clean() bool {
	return len(r.Unmatched) == 0 && len(r.UnusedPurchases) == 0 && len(r.DuplicateStates) == 0
}

// Join left-joins purchases onto features by exact, case-sensitive name.
// Every feature is kept in its original order; features with no purchase row
// get PurchasedKg 0 and Matched false.
func Join(features []models.RegionFeature, purchases []models.PurchaseRecord) ([]models.RegionFeature, JoinReport) {
	report := JoinReport{
		Unmatched:       []string{},
		UnusedPurchases: []string{},
		DuplicateStates: []string{},
	}

	byState := make(map[string]float64, len(purchases))
	for _, p := range purchases {
		if _, seen := byState[p.State]; seen && !slices.Contains(report.DuplicateStates, p.State) {
			report.DuplicateStates = append(report.DuplicateStates, p.State)
		}
		byState[p.State] = p.PurchasedKg
	}

	claimed := make(map[string]bool, len(features))
	out := make([]models.RegionFeature, len(features))
	for i, f := range features {
		out[i] = f
		kg, ok := byState[f.Name]
		out[i].Matched = ok
		out[i].PurchasedKg = 0
		if ok {
			out[i].PurchasedKg = kg
			claimed[f.Name] = true
		} else {
			report.Unmatched = append(report.Unmatched, f.Name)
		}
	}

	for _, p := range purchases {
		if !claimed[p.State] && !slices.Contains(report.UnusedPurchases, p.State) {
			report.UnusedPurchases = append(report.UnusedPurchases, p.State)
		}
	}

	return out, report
}
