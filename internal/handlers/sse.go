package handlers

import (
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"silver-dashboard/internal/calculator"
	"silver-dashboard/internal/config"
	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/format"
	"silver-dashboard/internal/models"
	"silver-dashboard/internal/query"
	"silver-dashboard/internal/regions"
	"silver-dashboard/internal/services"
)

var fragmentFuncs = template.FuncMap{
	"kg":   format.Kilograms,
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

var topStatesTemplate = template.Must(template.New("topStates").Funcs(fragmentFuncs).Parse(`
<div id="top-states-content">
<table class="modern-table">
<thead><tr><th>#</th><th>State</th><th>Silver Purchased</th></tr></thead>
<tbody>
{{range $i, $item := .}}<tr>
<td>{{inc $i}}</td>
<td>{{.State}}</td>
<td><strong>{{kg .PurchasedKg}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var calcResultTemplate = template.Must(template.New("calcResult").Parse(`
<div id="calc-result">
<h3 class="calc-total">Total Cost: {{.TotalDisplay}}</h3>
<p class="calc-converted">Equivalent in {{.Currency}}: {{.ConvertedDisplay}}</p>
</div>`))

var calcErrorTemplate = template.Must(template.New("calcError").Parse(`
<div id="calc-result">
<p class="calc-error">{{.}}</p>
</div>`))

var joinReportTemplate = template.Must(template.New("joinReport").Funcs(fragmentFuncs).Parse(`
<div id="regions-content">
{{if .Unmatched}}<p class="join-warning">No purchase data for: {{join .Unmatched ", "}} (shown as 0 kg)</p>{{else}}<p>All regions matched purchase data</p>{{end}}
{{if .UnusedPurchases}}<p class="join-warning">Purchase rows without a boundary: {{join .UnusedPurchases ", "}}</p>{{end}}
</div>`))

type SSEHandlers struct {
	dashboard *services.Dashboard
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, defaults config.DashboardConfig, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		defaults:  defaults,
		logger:    logger,
	}
}

// dashboardSignals mirrors the client-side filter state.
type dashboardSignals struct {
	Band      string `json:"band"`
	Month     string `json:"month"`
	TopStates *int   `json:"topStates"`
}

// calculatorSignals mirrors the calculator form.
type calculatorSignals struct {
	Weight       *float64 `json:"weight"`
	Unit         string   `json:"unit"`
	PricePerGram *float64 `json:"pricePerGram"`
	Currency     string   `json:"currency"`
}

// readSignals decodes Datastar signals when the request carries any. A plain
// GET without the datastar parameter leaves dst untouched.
func readSignals(r *http.Request, dst any) error {
	if r.Method == http.MethodGet && !r.URL.Query().Has("datastar") {
		return nil
	}
	return datastar.ReadSignals(r, dst)
}

func (h *SSEHandlers) signals(r *http.Request) dashboardSignals {
	var s dashboardSignals
	if err := readSignals(r, &s); err != nil {
		h.logger.Warn("ignoring unreadable dashboard signals", "error", err)
		return dashboardSignals{}
	}
	return s
}

func (h *SSEHandlers) band(s dashboardSignals) query.Band {
	band, err := query.ParseBand(s.Band)
	if err != nil {
		h.logger.Warn("unknown price band, showing all", "band", s.Band)
		return query.BandAll
	}
	return band
}

func (h *SSEHandlers) month(s dashboardSignals) string {
	if month, ok := models.CanonicalMonth(strings.TrimSpace(s.Month)); ok {
		return month
	}
	return h.defaults.Month
}

func (h *SSEHandlers) topStates(s dashboardSignals) int {
	if s.TopStates != nil && *s.TopStates >= 0 {
		return *s.TopStates
	}
	return h.defaults.TopStates
}

func (h *SSEHandlers) renderTopStates(data []models.PurchaseRecord) (string, error) {
	var buf strings.Builder
	err := topStatesTemplate.Execute(&buf, data)
	return buf.String(), err
}

func (h *SSEHandlers) renderJoinReport(report regions.JoinReport) (string, error) {
	var buf strings.Builder
	err := joinReportTemplate.Execute(&buf, report)
	return buf.String(), err
}

func (h *SSEHandlers) renderCalculation(in models.CalculatorInput) (string, error) {
	var buf strings.Builder

	result, err := h.dashboard.Calculate(in)
	if err != nil {
		message := "Calculation failed"
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			message = appErr.Message
		}
		err = calcErrorTemplate.Execute(&buf, message)
		return buf.String(), err
	}

	err = calcResultTemplate.Execute(&buf, newCalculation(result))
	return buf.String(), err
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) bool {
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return false
	}
	sse.PatchSignals(jsonData)
	return true
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandlePrices(w http.ResponseWriter, r *http.Request) {
	band := h.band(h.signals(r))
	sse := datastar.NewSSE(w, r)

	if !h.patchSignals(sse, map[string]any{
		"priceData": h.dashboard.PriceHistory(band),
		"band":      string(band),
	}) {
		return
	}
	sse.PatchElements(`<div id="prices-content">Price history loaded</div>`)

	flush(w)
}

func (h *SSEHandlers) HandleTopStates(w http.ResponseWriter, r *http.Request) {
	limit := h.topStates(h.signals(r))
	sse := datastar.NewSSE(w, r)

	data := h.dashboard.TopStates(limit)
	html, err := h.renderTopStates(data)
	if err != nil {
		h.logger.Error("render top states", "error", err)
		return
	}
	sse.PatchElements(html)

	h.patchSignals(sse, map[string]any{"topStatesData": data})

	flush(w)
}

func (h *SSEHandlers) HandleMonthPrices(w http.ResponseWriter, r *http.Request) {
	month := h.month(h.signals(r))
	sse := datastar.NewSSE(w, r)

	data, err := h.dashboard.MonthPrices(month)
	if err != nil {
		h.logger.Error("month prices", "month", month, "error", err)
		return
	}

	if !h.patchSignals(sse, map[string]any{"monthData": data, "month": month}) {
		return
	}
	sse.PatchElements(`<div id="month-content">` + template.HTMLEscapeString(month) + ` prices loaded</div>`)

	flush(w)
}

func (h *SSEHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	if !h.patchSignals(sse, map[string]any{
		"regionsData": h.dashboard.RegionsGeoJSON(),
		"maxKg":       h.dashboard.MaxPurchasedKg(),
	}) {
		return
	}

	html, err := h.renderJoinReport(h.dashboard.JoinReport())
	if err != nil {
		h.logger.Error("render join report", "error", err)
		return
	}
	sse.PatchElements(html)

	flush(w)
}

func (h *SSEHandlers) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var s calculatorSignals
	if err := readSignals(r, &s); err != nil {
		h.logger.Warn("ignoring unreadable calculator signals", "error", err)
		s = calculatorSignals{}
	}

	in := calculatorRequest{
		Weight:       s.Weight,
		Unit:         s.Unit,
		PricePerGram: s.PricePerGram,
		Currency:     s.Currency,
	}.input()

	sse := datastar.NewSSE(w, r)

	html, err := h.renderCalculation(in)
	if err != nil {
		h.logger.Error("render calculation", "error", err)
		return
	}
	sse.PatchElements(html)

	flush(w)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	s := h.signals(r)
	band, month, limit := h.band(s), h.month(s), h.topStates(s)
	sse := datastar.NewSSE(w, r)

	topStates := h.dashboard.TopStates(limit)
	html, err := h.renderTopStates(topStates)
	if err != nil {
		h.logger.Error("render top states", "error", err)
		return
	}
	sse.PatchElements(html)

	reportHTML, err := h.renderJoinReport(h.dashboard.JoinReport())
	if err != nil {
		h.logger.Error("render join report", "error", err)
		return
	}
	sse.PatchElements(reportHTML)

	monthData, err := h.dashboard.MonthPrices(month)
	if err != nil {
		h.logger.Error("month prices", "month", month, "error", err)
		return
	}

	h.patchSignals(sse, map[string]any{
		"priceData":     h.dashboard.PriceHistory(band),
		"topStatesData": topStates,
		"monthData":     monthData,
		"regionsData":   h.dashboard.RegionsGeoJSON(),
		"maxKg":         h.dashboard.MaxPurchasedKg(),
	})

	calcHTML, err := h.renderCalculation(calculator.DefaultInput())
	if err != nil {
		h.logger.Error("render calculation", "error", err)
		return
	}
	sse.PatchElements(calcHTML)

	flush(w)
}
