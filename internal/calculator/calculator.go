// Package calculator prices a quantity of silver and converts the total out of
// INR. Arithmetic is decimal throughout; rounding is left to presentation.
package calculator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/models"
)

// Widget defaults for a fresh calculator.
const (
	DefaultWeight       = 100.0
	DefaultUnit         = models.UnitGrams
	DefaultPricePerGram = 50.0
	DefaultCurrency     = models.CurrencyUSD
)

var gramsPerKilogram = decimal.NewFromInt(1000)

// DefaultInput returns the calculator state shown before any user edits.
func DefaultInput() models.CalculatorInput {
	return models.CalculatorInput{
		Weight:       DefaultWeight,
		Unit:         DefaultUnit,
		PricePerGram: DefaultPricePerGram,
		Currency:     DefaultCurrency,
	}
}

func checkAmount(name string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, errors.Validation(fmt.Sprintf("%s must be a finite number", name))
	}
	if v < 0 {
		return decimal.Zero, errors.Validation(fmt.Sprintf("%s must not be negative", name))
	}
	return decimal.NewFromFloat(v), nil
}

// ComputeCost returns the total INR cost of weight at pricePerGram.
func ComputeCost(weight float64, unit models.Unit, pricePerGram float64) (decimal.Decimal, error) {
	w, err := checkAmount("weight", weight)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := checkAmount("price per gram", pricePerGram)
	if err != nil {
		return decimal.Zero, err
	}

	switch unit {
	case models.UnitGrams:
		return w.Mul(price), nil
	case models.UnitKilograms:
		return w.Mul(gramsPerKilogram).Mul(price), nil
	default:
		return decimal.Zero, errors.Validation(fmt.Sprintf("unknown weight unit %q", unit))
	}
}

// ConvertCurrency multiplies an INR total by the provider's rate for currency.
func ConvertCurrency(total decimal.Decimal, currency models.Currency, rates RateProvider) (decimal.Decimal, error) {
	rate, err := rates.RateFor(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Mul(rate), nil
}

// Result carries exact decimal values alongside the float output model.
type Result struct {
	Total     decimal.Decimal
	Converted decimal.Decimal
	Rate      decimal.Decimal
	Currency  models.Currency
}

func (r Result) Output() models.CalculatorOutput {
	return models.CalculatorOutput{
		TotalLocalCost: r.Total.InexactFloat64(),
		ConvertedCost:  r.Converted.InexactFloat64(),
		Currency:       r.Currency,
		Rate:           r.Rate.InexactFloat64(),
	}
}

type Calculator struct {
	rates RateProvider
}

func New(rates RateProvider) *Calculator {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Calculator{rates: rates}
}

func (c *Calculator) Rates() RateProvider {
	return c.rates
}

// Calculate runs ComputeCost then ConvertCurrency for one input.
func (c *Calculator) Calculate(in models.CalculatorInput) (Result, error) {
	total, err := ComputeCost(in.Weight, in.Unit, in.PricePerGram)
	if err != nil {
		return Result{}, err
	}

	rate, err := c.rates.RateFor(in.Currency)
	if err != nil {
		return Result{}, err
	}

	converted := total.Mul(rate)
	for _, v := range []struct {
		name  string
		value decimal.Decimal
	}{{"total cost", total}, {"converted cost", converted}} {
		if math.IsInf(v.value.InexactFloat64(), 0) {
			return Result{}, errors.Validation(fmt.Sprintf("%s is too large to represent", v.name))
		}
	}

	return Result{
		Total:     total,
		Converted: converted,
		Rate:      rate,
		Currency:  in.Currency,
	}, nil
}
