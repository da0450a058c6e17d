package templates

import (
	"context"
	"strings"
	"testing"

	"silver-dashboard/internal/models"
)

func TestDashboard_Render(t *testing.T) {
	page := DefaultPageData([]models.Currency{models.CurrencyEUR, models.CurrencyGBP, models.CurrencyUSD}, 5, "Jan")

	var buf strings.Builder
	if err := Dashboard(page).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	html := buf.String()

	expected := []string{
		"<title>Silver Price Calculator &amp; Silver Sales Analysis Dashboard</title>",
		"Silver Price Calculator</button>",
		"Silver Sales Dashboard</button>",
		`@get(&#39;/sse/refresh-all&#39;)`,
		`id="calc-result"`,
		`id="prices-content"`,
		`id="top-states-content"`,
		`id="month-content"`,
		`id="regions-content"`,
		`id="regions-map"`,
		`<option value="USD" selected>USD</option>`,
		`<option value="grams" selected>grams</option>`,
		`<option value="Jan" selected>Jan</option>`,
		`<option value="ge30000">`,
		"cdn.plot.ly",
		"Dashboard created for Silver Price Analysis",
	}
	for _, content := range expected {
		if !strings.Contains(html, content) {
			t.Errorf("expected page to contain %q", content)
		}
	}
}

func TestDashboard_SignalsCarryDefaults(t *testing.T) {
	page := DefaultPageData([]models.Currency{models.CurrencyUSD}, 3, "Mar")

	signals, err := page.signals()
	if err != nil {
		t.Fatalf("signals() failed: %v", err)
	}

	for _, content := range []string{
		`"weight":100`,
		`"unit":"grams"`,
		`"pricePerGram":50`,
		`"currency":"USD"`,
		`"band":"all"`,
		`"month":"Mar"`,
		`"topStates":3`,
	} {
		if !strings.Contains(signals, content) {
			t.Errorf("signals %s should contain %s", signals, content)
		}
	}
}
