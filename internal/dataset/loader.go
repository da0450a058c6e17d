package dataset

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/models"
)

const (
	colYear      = "Year"
	colMonth     = "Month"
	colPrice     = "Silver_Price_INR_per_kg"
	colState     = "State"
	colPurchased = "Silver_Purchased_kg"

	// DefaultNameProperty is the boundary feature property holding the region name.
	DefaultNameProperty = "NAME_1"

	yearMonthLayout = "2006-Jan"
)

// LoadPrices reads the historical price table. Row numbers in errors count
// the header as row 1.
func LoadPrices(path string) ([]models.PriceRecord, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(path, header, colYear, colMonth, colPrice)
	if err != nil {
		return nil, err
	}

	records := make([]models.PriceRecord, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 2

		yearMonth := strings.TrimSpace(row[idx[colYear]]) + "-" + strings.TrimSpace(row[idx[colMonth]])
		date, err := time.Parse(yearMonthLayout, yearMonth)
		if err != nil {
			return nil, errors.Parse(path, rowNum, fmt.Sprintf("invalid year/month %q", yearMonth))
		}

		price, err := parseAmount(path, rowNum, colPrice, strings.TrimSpace(row[idx[colPrice]]))
		if err != nil {
			return nil, err
		}

		records = append(records, models.PriceRecord{
			Year:       date.Year(),
			Month:      date.Format("Jan"),
			PricePerKg: price,
			Date:       date,
		})
	}

	return records, nil
}

// LoadPurchases reads the state purchase table. A blank quantity loads as 0.
func LoadPurchases(path string) ([]models.PurchaseRecord, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(path, header, colState, colPurchased)
	if err != nil {
		return nil, err
	}

	records := make([]models.PurchaseRecord, 0, len(rows))
	for i, row := range rows {
		raw := strings.TrimSpace(row[idx[colPurchased]])

		var kg float64
		if raw != "" {
			kg, err = parseAmount(path, i+2, colPurchased, raw)
			if err != nil {
				return nil, err
			}
		}

		records = append(records, models.PurchaseRecord{
			State:       row[idx[colState]],
			PurchasedKg: kg,
		})
	}

	return records, nil
}

// LoadBoundaries reads a GeoJSON FeatureCollection of Polygon/MultiPolygon
// features named by nameProperty.
func LoadBoundaries(path, nameProperty string) ([]models.RegionFeature, error) {
	if nameProperty == "" {
		nameProperty = DefaultNameProperty
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.MissingResource(path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		appErr := errors.Format(path, "cannot decode boundary collection")
		appErr.Cause = err
		return nil, appErr
	}

	features := make([]models.RegionFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			return nil, errors.Format(path, fmt.Sprintf("feature %d is null", i))
		}

		name, ok := f.Properties[nameProperty].(string)
		if !ok || name == "" {
			return nil, errors.Format(path, fmt.Sprintf("feature %d has no string %q property", i, nameProperty))
		}

		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if err := checkPolygon(g); err != nil {
				return nil, errors.Format(path, fmt.Sprintf("feature %d (%s): %v", i, name, err))
			}
		case orb.MultiPolygon:
			if len(g) == 0 {
				return nil, errors.Format(path, fmt.Sprintf("feature %d (%s): empty MultiPolygon", i, name))
			}
			for j, poly := range g {
				if err := checkPolygon(poly); err != nil {
					return nil, errors.Format(path, fmt.Sprintf("feature %d (%s) polygon %d: %v", i, name, j, err))
				}
			}
		case nil:
			return nil, errors.Format(path, fmt.Sprintf("feature %d (%s) has no geometry", i, name))
		default:
			return nil, errors.Format(path, fmt.Sprintf("feature %d (%s): expected Polygon or MultiPolygon, got %s",
				i, name, f.Geometry.GeoJSONType()))
		}

		features = append(features, models.RegionFeature{
			Name:     name,
			RawName:  name,
			Geometry: f.Geometry,
		})
	}

	return features, nil
}

// parseAmount reads a price or quantity. NaN, infinities and negative values
// are rejected so they never reach the join or the JSON encoders.
func parseAmount(path string, row int, column, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Parse(path, row, fmt.Sprintf("invalid %s %q", column, raw))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Parse(path, row, fmt.Sprintf("%s must be a finite number, got %q", column, raw))
	}
	if v < 0 {
		return 0, errors.Parse(path, row, fmt.Sprintf("%s must not be negative, got %q", column, raw))
	}
	return v, nil
}

// checkPolygon enforces the RFC 7946 linear ring rules: at least one ring,
// each closed and holding four or more positions.
func checkPolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return stderrors.New("polygon has no rings")
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("ring %d has %d positions, need at least 4", i, len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return fmt.Errorf("ring %d is not closed", i)
		}
	}
	return nil
}

func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.MissingResource(path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, errors.Parse(path, 1, "missing header row")
		}
		return nil, nil, csvError(path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, csvError(path, err)
	}

	return header, rows, nil
}

func csvError(path string, err error) error {
	var parseErr *csv.ParseError
	if stderrors.As(err, &parseErr) {
		appErr := errors.Parse(path, parseErr.Line, parseErr.Err.Error())
		appErr.Cause = err
		return appErr
	}
	return errors.MissingResource(path, err)
}

func columnIndex(path string, header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(required))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, errors.Parse(path, 1, fmt.Sprintf("missing column %q", name))
		}
	}
	return idx, nil
}
