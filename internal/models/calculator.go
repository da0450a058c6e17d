package models

type Unit string

const (
	UnitGrams     Unit = "grams"
	UnitKilograms Unit = "kilograms"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

type CalculatorInput struct {
	Weight       float64  `json:"weight"`
	Unit         Unit     `json:"unit"`
	PricePerGram float64  `json:"price_per_gram"`
	Currency     Currency `json:"currency"`
}

type CalculatorOutput struct {
	TotalLocalCost float64  `json:"total_local_cost"`
	ConvertedCost  float64  `json:"converted_cost"`
	Currency       Currency `json:"currency"`
	Rate           float64  `json:"rate"`
}
