// Package query holds the read-only selections the dashboard panels draw from.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/models"
)

// Band is a price-per-kg range used to filter the history chart.
type Band string

const (
	BandAll          Band = "all"
	BandUpTo20000    Band = "le20000"
	Band20000To30000 Band = "20000-30000"
	BandFrom30000    Band = "ge30000"
)

const DefaultTopStates = 5

// Bands lists every band in display order.
var Bands = []Band{BandAll, BandUpTo20000, Band20000To30000, BandFrom30000}

var bandLabels = map[Band]string{
	BandAll:          "All",
	BandUpTo20000:    "≤ 20,000 INR per kg",
	Band20000To30000: "20,000 - 30,000 INR per kg",
	BandFrom30000:    "≥ 30,000 INR per kg",
}

func (b Band) Label() string {
	return bandLabels[b]
}

// Contains reports whether a per-kg price falls in the band. Unknown bands
// contain nothing.
func (b Band) Contains(price float64) bool {
	switch b {
	case BandAll:
		return true
	case BandUpTo20000:
		return price <= 20000
	case Band20000To30000:
		return price > 20000 && price <= 30000
	case BandFrom30000:
		return price >= 30000
	default:
		return false
	}
}

// ParseBand accepts a band id or its display label. Empty means all.
func ParseBand(s string) (Band, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BandAll, nil
	}
	for _, b := range Bands {
		if strings.EqualFold(s, string(b)) || s == b.Label() {
			return b, nil
		}
	}
	return "", errors.Validation(fmt.Sprintf("unknown price band %q", s))
}

// FilterByBand keeps the records whose price lies in band, in input order.
func FilterByBand(records []models.PriceRecord, band Band) []models.PriceRecord {
	if band == BandAll {
		return slices.Clone(records)
	}
	return lo.Filter(records, func(r models.PriceRecord, _ int) bool {
		return band.Contains(r.PricePerKg)
	})
}

// TopN returns the n largest purchases by quantity, descending. Equal
// quantities keep their input order.
func TopN(purchases []models.PurchaseRecord, n int) []models.PurchaseRecord {
	if n <= 0 {
		return []models.PurchaseRecord{}
	}
	sorted := slices.Clone(purchases)
	slices.SortStableFunc(sorted, func(a, b models.PurchaseRecord) int {
		return cmp.Compare(b.PurchasedKg, a.PurchasedKg)
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// MonthAcrossYears selects one calendar month from every year, oldest first.
func MonthAcrossYears(records []models.PriceRecord, month string) ([]models.PriceRecord, error) {
	canonical, ok := models.CanonicalMonth(strings.TrimSpace(month))
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("unknown month %q, want a three-letter code such as Jan", month))
	}

	out := lo.Filter(records, func(r models.PriceRecord, _ int) bool {
		return r.Month == canonical
	})
	slices.SortStableFunc(out, func(a, b models.PriceRecord) int {
		return cmp.Compare(a.Year, b.Year)
	})
	return out, nil
}
