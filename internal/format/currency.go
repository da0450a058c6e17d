package format

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer groups thousands the English way. Printer methods are safe for
// concurrent use.
var printer = message.NewPrinter(language.English)

// INR returns a rupee amount with thousands separators (e.g., "₹5,000.00").
func INR(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return printer.Sprintf("-₹%.2f", cents(amount.Abs()))
	}
	return printer.Sprintf("₹%.2f", cents(amount))
}

// Foreign returns an amount followed by its currency code (e.g., "60.00 USD").
func Foreign(amount decimal.Decimal, code string) string {
	return printer.Sprintf("%.2f %s", cents(amount), code)
}

// Number returns an amount rounded to two places with separators (e.g., "-1,234.56").
func Number(amount decimal.Decimal) string {
	return printer.Sprintf("%.2f", cents(amount))
}

// Kilograms formats a purchase quantity for chart hover labels (e.g., "1,250.5 kg").
func Kilograms(kg float64) string {
	rounded := decimal.NewFromFloat(kg).Round(2).InexactFloat64()
	return printer.Sprintf("%v kg", number.Decimal(rounded, number.MaxFractionDigits(2)))
}

// cents rounds half away from zero in decimal before the printer sees a float,
// so 999.995 prints as 1,000.00.
func cents(amount decimal.Decimal) float64 {
	return amount.Round(2).InexactFloat64()
}
