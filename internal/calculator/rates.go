package calculator

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/models"
)

// RateProvider supplies INR to target-currency multipliers.
type RateProvider interface {
	RateFor(currency models.Currency) (decimal.Decimal, error)
}

// StaticRates is a fixed rate table.
type StaticRates map[models.Currency]decimal.Decimal

// DefaultRates returns the bundled INR conversion table.
func DefaultRates() StaticRates {
	return StaticRates{
		models.CurrencyUSD: decimal.RequireFromString("0.012"),
		models.CurrencyEUR: decimal.RequireFromString("0.011"),
		models.CurrencyGBP: decimal.RequireFromString("0.0095"),
	}
}

func (r StaticRates) RateFor(currency models.Currency) (decimal.Decimal, error) {
	rate, ok := r[currency]
	if !ok {
		return decimal.Zero, errors.UnknownCurrency(string(currency))
	}
	return rate, nil
}

// Currencies lists the supported currency codes in a stable order.
func (r StaticRates) Currencies() []models.Currency {
	out := lo.Keys(r)
	slices.Sort(out)
	return out
}

type rateFile struct {
	Rates map[string]string `yaml:"rates"`
}

// LoadRates reads a rate table from YAML. Rates are quoted strings so they
// keep their exact decimal value:
//
//	rates:
//	  USD: "0.012"
func LoadRates(path string) (StaticRates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.MissingResource(path, err)
	}

	var f rateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		appErr := errors.Format(path, "cannot decode rate table")
		appErr.Cause = err
		return nil, appErr
	}
	if len(f.Rates) == 0 {
		return nil, errors.Format(path, "rate table is empty")
	}

	rates := make(StaticRates, len(f.Rates))
	for code, value := range f.Rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			appErr := errors.Format(path, fmt.Sprintf("rate for %s is not a number", code))
			appErr.Cause = err
			return nil, appErr
		}
		if rate.Sign() <= 0 {
			return nil, errors.Format(path, fmt.Sprintf("rate for %s must be positive", code))
		}
		rates[models.Currency(strings.ToUpper(strings.TrimSpace(code)))] = rate
	}
	return rates, nil
}
