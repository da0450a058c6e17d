package services

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"silver-dashboard/internal/calculator"
	"silver-dashboard/internal/dataset"
	"silver-dashboard/internal/models"
	"silver-dashboard/internal/query"
	"silver-dashboard/internal/regions"
)

// Dashboard answers every panel query from one loaded store. All derived data
// is computed in NewDashboard and never changes, so methods need no locking.
type Dashboard struct {
	store      *dataset.Store
	prices     []models.PriceRecord
	purchases  []models.PurchaseRecord
	regions    []models.RegionFeature
	report     regions.JoinReport
	collection *geojson.FeatureCollection
	bounds     orb.Bound
	calc       *calculator.Calculator
	builtAt    time.Time

	queries      atomic.Int64
	calculations atomic.Int64

	logger *slog.Logger
}

func NewDashboard(store *dataset.Store, aliases regions.AliasTable, rates calculator.RateProvider, logger *slog.Logger) (*Dashboard, error) {
	if store == nil {
		return nil, fmt.Errorf("dashboard requires a loaded store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if aliases == nil {
		aliases = regions.DefaultAliases()
	}
	if err := aliases.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	purchases := store.Purchases()
	joined, report := regions.Join(regions.Normalize(store.Boundaries(), aliases), purchases)

	d := &Dashboard{
		store:     store,
		prices:    store.Prices(),
		purchases: purchases,
		regions:   joined,
		report:    report,
		calc:      calculator.New(rates),
		builtAt:   time.Now(),
		logger:    logger,
	}
	d.collection, d.bounds = buildCollection(joined)

	if len(report.Unmatched) > 0 {
		logger.Warn("regions without purchase data were zero-filled",
			"count", len(report.Unmatched),
			"regions", report.Unmatched,
		)
	}
	if len(report.UnusedPurchases) > 0 {
		logger.Warn("purchase rows matched no boundary", "states", report.UnusedPurchases)
	}
	if len(report.DuplicateStates) > 0 {
		logger.Warn("duplicate purchase rows, last row kept", "states", report.DuplicateStates)
	}

	logger.Info("dashboard ready",
		"prices", len(d.prices),
		"regions", len(joined),
		"matched", len(joined)-len(report.Unmatched),
		"duration", time.Since(start),
	)

	return d, nil
}

// buildCollection renders the joined regions as GeoJSON with hover and
// fit-to-bounds data attached.
func buildCollection(features []models.RegionFeature) (*geojson.FeatureCollection, orb.Bound) {
	fc := geojson.NewFeatureCollection()
	var bounds orb.Bound

	for i, r := range features {
		f := geojson.NewFeature(r.Geometry)
		bound := r.Geometry.Bound()
		centroid, _ := planar.CentroidArea(r.Geometry)

		f.Properties["name"] = r.Name
		f.Properties["raw_name"] = r.RawName
		f.Properties["purchased_kg"] = r.PurchasedKg
		f.Properties["matched"] = r.Matched
		f.Properties["centroid"] = []float64{centroid.Lon(), centroid.Lat()}
		f.BBox = geojson.NewBBox(bound)
		fc.Append(f)

		if i == 0 {
			bounds = bound
		} else {
			bounds = bounds.Union(bound)
		}
	}

	if len(features) > 0 {
		fc.BBox = geojson.NewBBox(bounds)
	}
	return fc, bounds
}

// PriceHistory returns the price series restricted to band.
func (d *Dashboard) PriceHistory(band query.Band) []models.PriceRecord {
	d.queries.Add(1)
	return query.FilterByBand(d.prices, band)
}

func (d *Dashboard) TopStates(n int) []models.PurchaseRecord {
	d.queries.Add(1)
	return query.TopN(d.purchases, n)
}

func (d *Dashboard) MonthPrices(month string) ([]models.PriceRecord, error) {
	d.queries.Add(1)
	return query.MonthAcrossYears(d.prices, month)
}

// Regions returns the joined features; PurchasedKg is zero for unmatched ones.
func (d *Dashboard) Regions() []models.RegionFeature {
	d.queries.Add(1)
	return slices.Clone(d.regions)
}

// RegionsGeoJSON returns the shared collection. Callers must treat it as read-only.
func (d *Dashboard) RegionsGeoJSON() *geojson.FeatureCollection {
	d.queries.Add(1)
	return d.collection
}

func (d *Dashboard) Bounds() orb.Bound {
	return d.bounds
}

func (d *Dashboard) JoinReport() regions.JoinReport {
	return regions.JoinReport{
		Unmatched:       slices.Clone(d.report.Unmatched),
		UnusedPurchases: slices.Clone(d.report.UnusedPurchases),
		DuplicateStates: slices.Clone(d.report.DuplicateStates),
	}
}

// MaxPurchasedKg is the top of the choropleth colour scale.
func (d *Dashboard) MaxPurchasedKg() float64 {
	var top float64
	for _, r := range d.regions {
		top = max(top, r.PurchasedKg)
	}
	return top
}

func (d *Dashboard) Calculate(in models.CalculatorInput) (calculator.Result, error) {
	d.calculations.Add(1)
	return d.calc.Calculate(in)
}

// Currencies lists the conversion targets the rate provider knows about.
func (d *Dashboard) Currencies() []models.Currency {
	if static, ok := d.calc.Rates().(calculator.StaticRates); ok {
		return static.Currencies()
	}
	return []models.Currency{models.CurrencyUSD, models.CurrencyEUR, models.CurrencyGBP}
}

// Stats is used for monitoring.
func (d *Dashboard) Stats() map[string]any {
	return map[string]any{
		"price_records":    len(d.prices),
		"purchase_records": len(d.purchases),
		"regions":          len(d.regions),
		"unmatched":        len(d.report.Unmatched),
		"unused_purchases": len(d.report.UnusedPurchases),
		"duplicate_states": len(d.report.DuplicateStates),
		"loaded_at":        d.store.LoadedAt(),
		"built_at":         d.builtAt,
		"queries":          d.queries.Load(),
		"calculations":     d.calculations.Load(),
	}
}
