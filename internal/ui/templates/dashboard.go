package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"silver-dashboard/internal/calculator"
	"silver-dashboard/internal/models"
	"silver-dashboard/internal/query"
)

const (
	Title       = "Silver Price Calculator & Silver Sales Analysis Dashboard"
	datastarJS  = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"
	plotlyJS    = "https://cdn.plot.ly/plotly-2.35.2.min.js"
	footerText  = "Dashboard created for Silver Price Analysis"
	chartScript = `
function silverLayout(title, x, y) {
  return {title: title, xaxis: {title: x}, yaxis: {title: y}, margin: {t: 48, r: 16, b: 48, l: 72}};
}
function renderPrices(rows) {
  if (!rows) return;
  Plotly.react('price-chart', [{x: rows.map(r => r.date), y: rows.map(r => r.price_per_kg), mode: 'lines', name: 'INR per kg'}],
    silverLayout('Historical Silver Price (INR per kg)', 'Date', 'Silver_Price_INR_per_kg'));
}
function renderTopStates(rows) {
  if (!rows) return;
  Plotly.react('top-states-chart', [{type: 'bar', x: rows.map(r => r.state), y: rows.map(r => r.purchased_kg)}],
    silverLayout('Top States', 'State', 'Silver_Purchased_kg'));
}
function renderMonth(rows, month) {
  if (!rows) return;
  Plotly.react('month-chart', [{x: rows.map(r => r.year), y: rows.map(r => r.price_per_kg), mode: 'lines+markers'}],
    silverLayout(month + ' Silver Prices (INR per kg)', 'Year', 'Silver_Price_INR_per_kg'));
}
function renderRegions(fc, maxKg) {
  if (!fc || !fc.features) return;
  const names = fc.features.map(f => f.properties.name);
  Plotly.react('regions-map', [{
    type: 'choropleth', geojson: fc, featureidkey: 'properties.name', locations: names,
    z: fc.features.map(f => f.properties.purchased_kg), zmin: 0, zmax: maxKg || 1,
    colorscale: 'Blues', hovertext: names,
    hovertemplate: '%{hovertext}<br>Silver_Purchased_kg=%{z}<extra></extra>'
  }], {title: 'Silver Purchases by State (kg)', geo: {fitbounds: 'locations', visible: false}, margin: {t: 48, r: 0, b: 0, l: 0}});
}
`
)

// PageData seeds the client-side signals and the filter controls.
type PageData struct {
	Input      models.CalculatorInput
	Currencies []models.Currency
	TopStates  int
	Month      string
}

// DefaultPageData returns the calculator widget defaults.
func DefaultPageData(currencies []models.Currency, topStates int, month string) PageData {
	return PageData{
		Input:      calculator.DefaultInput(),
		Currencies: currencies,
		TopStates:  topStates,
		Month:      month,
	}
}

func (p PageData) signals() (string, error) {
	raw, err := json.Marshal(map[string]any{
		"weight":        p.Input.Weight,
		"unit":          p.Input.Unit,
		"pricePerGram":  p.Input.PricePerGram,
		"currency":      p.Input.Currency,
		"band":          string(query.BandAll),
		"month":         p.Month,
		"topStates":     p.TopStates,
		"tab":           "calculator",
		"priceData":     nil,
		"topStatesData": nil,
		"monthData":     nil,
		"regionsData":   nil,
		"maxKg":         0,
	})
	return string(raw), err
}

// Dashboard renders the page shell. Panels are filled by SSE patches.
func Dashboard(p PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := p.signals()
		if err != nil {
			return fmt.Errorf("encode page signals: %w", err)
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title>`, templ.EscapeString(Title))
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, datastarJS)
		fmt.Fprintf(&b, `<script src="%s"></script>`, plotlyJS)
		b.WriteString(`<script>` + chartScript + `</script>`)
		b.WriteString(`</head>`)

		fmt.Fprintf(&b, `<body data-signals='%s' data-on-load="@get('/sse/refresh-all')">`, templ.EscapeString(signals))
		fmt.Fprintf(&b, `<h1>%s</h1>`, templ.EscapeString(Title))

		b.WriteString(`<nav class="tabs">`)
		b.WriteString(`<button data-on-click="$tab = 'calculator'" data-class-active="$tab == 'calculator'">Silver Price Calculator</button>`)
		b.WriteString(`<button data-on-click="$tab = 'dashboard'" data-class-active="$tab == 'dashboard'">Silver Sales Dashboard</button>`)
		b.WriteString(`</nav>`)

		writeCalculatorTab(&b, p)
		writeDashboardTab(&b, p)

		fmt.Fprintf(&b, `<footer><hr><p>%s</p></footer>`, templ.EscapeString(footerText))
		b.WriteString(`</body></html>`)

		_, err = io.WriteString(w, b.String())
		return err
	})
}

func writeCalculatorTab(b *strings.Builder, p PageData) {
	recalc := `data-on-input__debounce.300ms="@get('/sse/calculate')"`

	b.WriteString(`<section id="calculator-tab" data-show="$tab == 'calculator'">`)
	b.WriteString(`<h2>Silver Price Calculator</h2><div class="columns"><div class="column">`)

	fmt.Fprintf(b, `<label>Weight Unit <select data-bind-unit %s>`, recalc)
	for _, u := range []models.Unit{models.UnitGrams, models.UnitKilograms} {
		fmt.Fprintf(b, `<option value="%[1]s"%[2]s>%[1]s</option>`, templ.EscapeString(string(u)), selected(u == p.Input.Unit))
	}
	b.WriteString(`</select></label>`)

	fmt.Fprintf(b, `<label>Weight (<span data-text="$unit"></span>) <input type="number" min="0" step="any" data-bind-weight %s></label>`, recalc)
	fmt.Fprintf(b, `<label>Current Price per Gram (INR) <input type="number" min="0" step="any" data-bind-price-per-gram %s></label>`, recalc)

	fmt.Fprintf(b, `<label>Convert to <select data-bind-currency %s>`, recalc)
	for _, c := range p.Currencies {
		fmt.Fprintf(b, `<option value="%[1]s"%[2]s>%[1]s</option>`, templ.EscapeString(string(c)), selected(c == p.Input.Currency))
	}
	b.WriteString(`</select></label>`)

	b.WriteString(`<div id="calc-result"></div>`)
	b.WriteString(`</div><div class="column">`)

	b.WriteString(`<h3>Historical Silver Price Chart</h3>`)
	b.WriteString(`<label>Price Range Filter <select data-bind-band data-on-change="@get('/sse/prices')">`)
	for _, band := range query.Bands {
		fmt.Fprintf(b, `<option value="%s">%s</option>`, templ.EscapeString(string(band)), templ.EscapeString(band.Label()))
	}
	b.WriteString(`</select></label>`)
	b.WriteString(`<div id="price-chart" data-effect="renderPrices($priceData)"></div>`)
	b.WriteString(`<div id="prices-content"></div>`)
	b.WriteString(`</div></div></section>`)
}

func writeDashboardTab(b *strings.Builder, p PageData) {
	b.WriteString(`<section id="dashboard-tab" data-show="$tab == 'dashboard'">`)
	b.WriteString(`<h2>Silver Sales Dashboard</h2>`)

	b.WriteString(`<h3>State-wise Silver Purchases Map</h3>`)
	b.WriteString(`<div id="regions-map" data-effect="renderRegions($regionsData, $maxKg)"></div>`)
	b.WriteString(`<div id="regions-content"></div>`)

	b.WriteString(`<div class="columns"><div class="column">`)
	fmt.Fprintf(b, `<h3>Top <span data-text="$topStates">%d</span> States by Silver Purchases</h3>`, p.TopStates)
	b.WriteString(`<div id="top-states-chart" data-effect="renderTopStates($topStatesData)"></div>`)
	b.WriteString(`<div id="top-states-content"></div>`)
	b.WriteString(`</div><div class="column">`)

	fmt.Fprintf(b, `<h3><span data-text="$month">%s</span> Silver Prices Over Years</h3>`, templ.EscapeString(p.Month))
	b.WriteString(`<label>Month <select data-bind-month data-on-change="@get('/sse/month-prices')">`)
	for _, m := range models.MonthCodes {
		fmt.Fprintf(b, `<option value="%[1]s"%[2]s>%[1]s</option>`, m, selected(m == p.Month))
	}
	b.WriteString(`</select></label>`)
	b.WriteString(`<div id="month-chart" data-effect="renderMonth($monthData, $month)"></div>`)
	b.WriteString(`<div id="month-content"></div>`)
	b.WriteString(`</div></div></section>`)
}

func selected(ok bool) string {
	if ok {
		return " selected"
	}
	return ""
}
