package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"silver-dashboard/internal/calculator"
	"silver-dashboard/internal/config"
	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/format"
	"silver-dashboard/internal/models"
	"silver-dashboard/internal/observability"
	"silver-dashboard/internal/query"
	"silver-dashboard/internal/services"
)

// Static datasets never change while the process runs.
var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	dashboard *services.Dashboard
	defaults  config.DashboardConfig
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, defaults config.DashboardConfig, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		defaults:  defaults,
		logger:    logger,
	}
}

type priceSeries struct {
	Band    query.Band           `json:"band"`
	Label   string               `json:"label"`
	Records []models.PriceRecord `json:"records"`
}

type monthSeries struct {
	Month   string               `json:"month"`
	Records []models.PriceRecord `json:"records"`
}

type calculation struct {
	models.CalculatorOutput
	TotalDisplay     string `json:"total_display"`
	ConvertedDisplay string `json:"converted_display"`
}

func newCalculation(result calculator.Result) calculation {
	return calculation{
		CalculatorOutput: result.Output(),
		TotalDisplay:     format.INR(result.Total),
		ConvertedDisplay: format.Foreign(result.Converted, string(result.Currency)),
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandlePrices(w http.ResponseWriter, r *http.Request) {
	band, err := query.ParseBand(r.URL.Query().Get("band"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, priceSeries{
		Band:    band,
		Label:   band.Label(),
		Records: h.dashboard.PriceHistory(band),
	}, cacheHeaders)
}

func (h *APIHandlers) HandleTopStates(w http.ResponseWriter, r *http.Request) {
	limit, err := topStatesLimit(r, h.defaults.TopStates)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.dashboard.TopStates(limit), cacheHeaders)
}

func (h *APIHandlers) HandleMonthPrices(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r, h.defaults.Month)

	records, err := h.dashboard.MonthPrices(month)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	canonical, _ := models.CanonicalMonth(month)
	errors.WriteSuccessWithHeaders(w, monthSeries{Month: canonical, Records: records}, cacheHeaders)
}

// HandleRegions serves a bare GeoJSON FeatureCollection so map libraries can
// load it without unwrapping the response envelope.
func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(h.dashboard.RegionsGeoJSON())
	if err != nil {
		h.fail(w, r, errors.Wrap(err, errors.CodeInternal, "failed to encode regions"))
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", cacheHeaders["Cache-Control"])
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *APIHandlers) HandleJoinReport(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.JoinReport())
}

// HandleCalculate accepts query parameters on GET and a JSON body on POST.
// Omitted fields take the calculator defaults.
func (h *APIHandlers) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	in, err := calculatorInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.dashboard.Calculate(in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, newCalculation(result))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}

func topStatesLimit(r *http.Request, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequestWrap(err, fmt.Sprintf("limit must be an integer, got %q", raw))
	}
	if limit < 0 {
		return 0, errors.Validation("limit must not be negative")
	}
	return limit, nil
}

func monthParam(r *http.Request, fallback string) string {
	if month := strings.TrimSpace(r.URL.Query().Get("month")); month != "" {
		return month
	}
	return fallback
}

type calculatorRequest struct {
	Weight       *float64 `json:"weight"`
	Unit         string   `json:"unit"`
	PricePerGram *float64 `json:"price_per_gram"`
	Currency     string   `json:"currency"`
}

func (c calculatorRequest) input() models.CalculatorInput {
	in := calculator.DefaultInput()
	if c.Weight != nil {
		in.Weight = *c.Weight
	}
	if c.PricePerGram != nil {
		in.PricePerGram = *c.PricePerGram
	}
	if c.Unit != "" {
		in.Unit = models.Unit(strings.ToLower(strings.TrimSpace(c.Unit)))
	}
	if c.Currency != "" {
		in.Currency = models.Currency(strings.ToUpper(strings.TrimSpace(c.Currency)))
	}
	return in
}

func calculatorInput(r *http.Request) (models.CalculatorInput, error) {
	var req calculatorRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return models.CalculatorInput{}, errors.BadRequestWrap(err, "request body must be a JSON calculator input")
		}
		return req.input(), nil
	}

	q := r.URL.Query()
	for _, field := range []struct {
		name string
		dst  **float64
	}{
		{"weight", &req.Weight},
		{"price_per_gram", &req.PricePerGram},
	} {
		raw := strings.TrimSpace(q.Get(field.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.CalculatorInput{}, errors.BadRequestWrap(err, fmt.Sprintf("%s must be a number, got %q", field.name, raw))
		}
		*field.dst = &v
	}
	req.Unit = q.Get("unit")
	req.Currency = q.Get("currency")

	return req.input(), nil
}
