package dataset

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/models"
)

const (
	testPricesCSV = `Year,Month,Silver_Price_INR_per_kg
2019,Jan,20000
2019,Feb,21000
2020,jan,22000
`
	testPurchasesCSV = `State,Silver_Purchased_kg
Maharashtra,50
Odisha,30
Kerala,
`
	testBoundaries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME_1": "Maharashtra"},
     "geometry": {"type": "Polygon", "coordinates": [[[72,16],[80,16],[80,22],[72,22],[72,16]]]}},
    {"type": "Feature", "properties": {"NAME_1": "Orissa"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[81,17],[87,17],[87,22],[81,22],[81,17]]]]}}
  ]
}`
)

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPrices(t *testing.T) {
	path := createTempFile(t, "prices.csv", testPricesCSV)

	got, err := LoadPrices(path)
	if err != nil {
		t.Fatalf("LoadPrices() error = %v", err)
	}

	want := []models.PriceRecord{
		{Year: 2019, Month: "Jan", PricePerKg: 20000, Date: time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{Year: 2019, Month: "Feb", PricePerKg: 21000, Date: time.Date(2019, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{Year: 2020, Month: "Jan", PricePerKg: 22000, Date: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadPrices() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPrices_DateIsFirstOfMonth(t *testing.T) {
	path := createTempFile(t, "prices.csv", testPricesCSV)

	got, err := LoadPrices(path)
	if err != nil {
		t.Fatalf("LoadPrices() error = %v", err)
	}

	for _, r := range got {
		if r.Date.Day() != 1 || r.Date.Year() != r.Year || r.Date.Format("Jan") != r.Month {
			t.Errorf("date %v does not match %d/%s", r.Date, r.Year, r.Month)
		}
	}
}

func TestLoadPrices_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		wantCode errors.ErrorCode
	}{
		{
			name:     "unknown month code",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,Foo,20000\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "full month name",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,January,20000\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "non-numeric year",
			csv:      "Year,Month,Silver_Price_INR_per_kg\nabcd,Jan,20000\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "non-numeric price",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,Jan,lots\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "NaN price",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,Jan,NaN\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "infinite price",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,Jan,+Inf\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "negative price",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,Jan,-5\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "missing column",
			csv:      "Year,Month\n2019,Jan\n",
			wantCode: errors.CodeParse,
		},
		{
			name:     "empty file",
			csv:      "",
			wantCode: errors.CodeParse,
		},
		{
			name:     "ragged row",
			csv:      "Year,Month,Silver_Price_INR_per_kg\n2019,Jan\n",
			wantCode: errors.CodeParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempFile(t, "prices.csv", tt.csv)

			_, err := LoadPrices(path)
			if err == nil {
				t.Fatal("LoadPrices() should fail")
			}
			if !errors.HasCode(err, tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestLoadPrices_ErrorNamesRow(t *testing.T) {
	csv := "Year,Month,Silver_Price_INR_per_kg\n2019,Jan,20000\n2019,Xyz,21000\n"
	path := createTempFile(t, "prices.csv", csv)

	_, err := LoadPrices(path)
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("error type = %T, want *errors.AppError", err)
	}
	if want := path + " row 3"; appErr.Details != want {
		t.Errorf("Details = %q, want %q", appErr.Details, want)
	}
}

func TestLoadPurchases(t *testing.T) {
	path := createTempFile(t, "purchases.csv", testPurchasesCSV)

	got, err := LoadPurchases(path)
	if err != nil {
		t.Fatalf("LoadPurchases() error = %v", err)
	}

	want := []models.PurchaseRecord{
		{State: "Maharashtra", PurchasedKg: 50},
		{State: "Odisha", PurchasedKg: 30},
		{State: "Kerala", PurchasedKg: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadPurchases() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPurchases_InvalidQuantity(t *testing.T) {
	for _, quantity := range []string{"heavy", "NaN", "Inf", "-Inf", "-10"} {
		t.Run(quantity, func(t *testing.T) {
			path := createTempFile(t, "purchases.csv", "State,Silver_Purchased_kg\nKerala,10\nGoa,"+quantity+"\n")

			recs, err := LoadPurchases(path)
			if !errors.HasCode(err, errors.CodeParse) {
				t.Errorf("error = %v, want %s", err, errors.CodeParse)
			}
			if recs != nil {
				t.Errorf("records = %v, want none", recs)
			}
		})
	}
}

func TestLoadBoundaries(t *testing.T) {
	path := createTempFile(t, "states.geojson", testBoundaries)

	got, err := LoadBoundaries(path, "")
	if err != nil {
		t.Fatalf("LoadBoundaries() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Maharashtra" || got[0].RawName != "Maharashtra" {
		t.Errorf("feature 0 = %q/%q", got[0].Name, got[0].RawName)
	}
	if _, ok := got[0].Geometry.(orb.Polygon); !ok {
		t.Errorf("feature 0 geometry = %T, want orb.Polygon", got[0].Geometry)
	}
	if _, ok := got[1].Geometry.(orb.MultiPolygon); !ok {
		t.Errorf("feature 1 geometry = %T, want orb.MultiPolygon", got[1].Geometry)
	}
}

func TestLoadBoundaries_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		geojson string
	}{
		{"not json", `{"type": "FeatureCollection", "features": [`},
		{"not a collection", `{"type": "Feature", "properties": {}, "geometry": null}`},
		{
			"point geometry",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":{"type":"Point","coordinates":[74,15]}}]}`,
		},
		{
			"null geometry",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":null}]}`,
		},
		{
			"empty polygon",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":{"type":"Polygon","coordinates":[]}}]}`,
		},
		{
			"short ring",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,1]]]}}]}`,
		},
		{
			"open ring",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}}]}`,
		},
		{
			"empty multipolygon",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":{"type":"MultiPolygon","coordinates":[]}}]}`,
		},
		{
			"multipolygon with empty member",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":"Goa"},"geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[]]}}]}`,
		},
		{
			"missing name",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Goa"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
		},
		{
			"non-string name",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NAME_1":7},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempFile(t, "states.geojson", tt.geojson)

			_, err := LoadBoundaries(path, "NAME_1")
			if !errors.HasCode(err, errors.CodeFormat) {
				t.Errorf("error = %v, want %s", err, errors.CodeFormat)
			}
		})
	}
}

func TestLoad_MissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.csv")

	if _, err := LoadPrices(missing); !errors.HasCode(err, errors.CodeMissingResource) {
		t.Errorf("LoadPrices error = %v, want %s", err, errors.CodeMissingResource)
	}
	if _, err := LoadPurchases(missing); !errors.HasCode(err, errors.CodeMissingResource) {
		t.Errorf("LoadPurchases error = %v, want %s", err, errors.CodeMissingResource)
	}
	if _, err := LoadBoundaries(missing, ""); !errors.HasCode(err, errors.CodeMissingResource) {
		t.Errorf("LoadBoundaries error = %v, want %s", err, errors.CodeMissingResource)
	}
}

func testPaths(t *testing.T) Paths {
	t.Helper()
	return Paths{
		Prices:     createTempFile(t, "prices.csv", testPricesCSV),
		Purchases:  createTempFile(t, "purchases.csv", testPurchasesCSV),
		Boundaries: createTempFile(t, "states.geojson", testBoundaries),
	}
}

func TestLoader_Load(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := testPaths(t)

	store, err := NewLoader(logger).Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(store.Prices()) != 3 || len(store.Purchases()) != 3 || len(store.Boundaries()) != 2 {
		t.Errorf("unexpected table sizes: %d/%d/%d",
			len(store.Prices()), len(store.Purchases()), len(store.Boundaries()))
	}
	if store.Paths().NameProperty != DefaultNameProperty {
		t.Errorf("NameProperty = %q, want default", store.Paths().NameProperty)
	}
}

func TestLoader_CachesByPaths(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := testPaths(t)
	loader := NewLoader(logger)

	first, err := loader.Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := loader.Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if first != second {
		t.Error("second Load() should return the cached store")
	}
}

func TestLoader_IdempotentLoad(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := testPaths(t)

	a, err := NewLoader(logger).Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b, err := NewLoader(logger).Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff(a.Prices(), b.Prices()); diff != "" {
		t.Errorf("prices differ between loads:\n%s", diff)
	}
	if diff := cmp.Diff(a.Purchases(), b.Purchases()); diff != "" {
		t.Errorf("purchases differ between loads:\n%s", diff)
	}
	if diff := cmp.Diff(a.Boundaries(), b.Boundaries()); diff != "" {
		t.Errorf("boundaries differ between loads:\n%s", diff)
	}
}

func TestLoader_FailurePropagates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	paths := testPaths(t)
	paths.Prices = createTempFile(t, "bad.csv", "Year,Month,Silver_Price_INR_per_kg\n2019,Smarch,1\n")

	_, err := NewLoader(logger).Load(context.Background(), paths)
	if !errors.HasCode(err, errors.CodeParse) {
		t.Errorf("Load() error = %v, want %s", err, errors.CodeParse)
	}
}

func TestStore_AccessorsReturnCopies(t *testing.T) {
	store := NewStore(
		[]models.PriceRecord{{Year: 2019, Month: "Jan", PricePerKg: 1}},
		[]models.PurchaseRecord{{State: "Goa", PurchasedKg: 2}},
		nil,
	)

	prices := store.Prices()
	prices[0].PricePerKg = 999

	if store.Prices()[0].PricePerKg != 1 {
		t.Error("mutating a returned slice must not change the store")
	}
}
