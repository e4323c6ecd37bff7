package telebotConverter

import (
	"strings"
	"testing"

	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/shopspring/decimal"
)

func TestPortfolioResponse(t *testing.T) {
	positions := []model.Position{
		{Symbol: "AAPL", Quantity: 10, AvgPrice: decimal.RequireFromString("150.50")},
		{Symbol: "BTC", Quantity: 2, AvgPrice: decimal.RequireFromString("64000")},
	}

	got := PortfolioResponse(positions)

	for _, want := range []string{"AAPL", "Количество: 10", "150.50", "1505.00", "BTC", "128000.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("response does not contain %q:\n%s", want, got)
		}
	}
}

func TestRateReportResponse(t *testing.T) {
	change := decimal.RequireFromString("-20")
	report := model.RateReport{
		Symbol:   "USD",
		Current:  decimal.RequireFromString("80"),
		Previous: decimal.RequireFromString("100"),
		Change:   &change,
	}

	got := RateReportResponse(report, "руб.")

	for _, want := range []string{"USD", "80.00 руб.", "100.00 руб.", "-20.00%"} {
		if !strings.Contains(got, want) {
			t.Errorf("response does not contain %q:\n%s", want, got)
		}
	}
}

func TestRateReportResponseWithoutChange(t *testing.T) {
	report := model.RateReport{
		Symbol:   "XYZ",
		Current:  decimal.RequireFromString("5"),
		Previous: decimal.Decimal{},
	}

	got := RateReportResponse(report, "USD")

	if strings.Contains(got, "%") {
		t.Errorf("response contains percent change for zero previous:\n%s", got)
	}
	if !strings.Contains(got, "не определено") {
		t.Errorf("response does not mention undefined change:\n%s", got)
	}
}
