package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestINR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "₹0.00"},
		{"5000", "₹5,000.00"},
		{"50000", "₹50,000.00"},
		{"1234567.891", "₹1,234,567.89"},
		{"999.995", "₹1,000.00"},
		{"-1234.5", "-₹1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := INR(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("INR(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestForeign(t *testing.T) {
	if got := Foreign(decimal.RequireFromString("60"), "USD"); got != "60.00 USD" {
		t.Errorf("Foreign() = %q, want %q", got, "60.00 USD")
	}
	if got := Foreign(decimal.RequireFromString("1187.5"), "GBP"); got != "1,187.50 GBP" {
		t.Errorf("Foreign() = %q, want %q", got, "1,187.50 GBP")
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"-1234.56", "-1,234.56"},
		{"1000000", "1,000,000.00"},
		{"0.005", "0.01"},
	}

	for _, tt := range tests {
		if got := Number(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("Number(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKilograms(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 kg"},
		{50, "50 kg"},
		{1250.5, "1,250.5 kg"},
		{12345.678, "12,345.68 kg"},
		{2500000, "2,500,000 kg"},
	}

	for _, tt := range tests {
		if got := Kilograms(tt.in); got != tt.want {
			t.Errorf("Kilograms(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
