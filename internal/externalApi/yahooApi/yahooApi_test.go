package yahooApi

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseEquityPrice(t *testing.T) {
	response := `{
		"chart": {
			"result": [
				{"meta": {"currency": "USD", "symbol": "AAPL", "regularMarketPrice": 189.84}}
			],
			"error": null
		}
	}`

	price, err := parseEquityPrice([]byte(response))
	if err != nil {
		t.Fatal(err)
	}

	if !price.Equal(decimal.RequireFromString("189.84")) {
		t.Errorf("price = %s, want 189.84", price)
	}
}

func TestParseEquityPriceProviderError(t *testing.T) {
	response := `{
		"chart": {
			"result": null,
			"error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}
		}
	}`

	if _, err := parseEquityPrice([]byte(response)); err == nil {
		t.Error("err = nil, want provider error")
	}
}

func TestParseEquityPriceEmptyResult(t *testing.T) {
	response := `{"chart": {"result": [], "error": null}}`

	if _, err := parseEquityPrice([]byte(response)); err == nil {
		t.Error("err = nil, want empty result error")
	}
}
