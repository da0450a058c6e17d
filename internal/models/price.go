package models

import (
	"strings"
	"time"
)

// MonthCodes lists the recognised three-letter month abbreviations in calendar order.
var MonthCodes = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// CanonicalMonth returns the canonical spelling of a three-letter month code,
// matching case-insensitively.
func CanonicalMonth(code string) (string, bool) {
	for _, m := range MonthCodes {
		if strings.EqualFold(m, code) {
			return m, true
		}
	}
	return "", false
}

// PriceRecord is one row of the historical price table.
// Date is always the first of Year/Month in UTC.
type PriceRecord struct {
	Year       int       `json:"year"`
	Month      string    `json:"month"`
	PricePerKg float64   `json:"price_per_kg"`
	Date       time.Time `json:"date"`
}
