package models

import "github.com/paulmach/orb"

// RegionFeature is a named boundary polygon. Name holds the canonical spelling
// once the alias table has been applied; RawName keeps the spelling from the
// boundary file. PurchasedKg is zero-filled by the join when no purchase row
// matches, and Matched records whether one did.
type RegionFeature struct {
	Name        string       `json:"name"`
	RawName     string       `json:"raw_name"`
	Geometry    orb.Geometry `json:"-"`
	PurchasedKg float64      `json:"purchased_kg"`
	Matched     bool         `json:"matched"`
}
