package alphaVantageApi

import (
	"errors"
	"testing"

	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi"
	"github.com/shopspring/decimal"
)

func TestParseCryptoRate(t *testing.T) {
	response := `{
		"Realtime Currency Exchange Rate": {
			"1. From_Currency Code": "BTC",
			"2. From_Currency Name": "Bitcoin",
			"3. To_Currency Code": "USD",
			"4. To_Currency Name": "United States Dollar",
			"5. Exchange Rate": "64123.45000000",
			"6. Last Refreshed": "2026-08-02 10:00:01",
			"7. Time Zone": "UTC"
		}
	}`

	rate, err := parseCryptoRate([]byte(response))
	if err != nil {
		t.Fatal(err)
	}

	if !rate.Equal(decimal.RequireFromString("64123.45")) {
		t.Errorf("rate = %s, want 64123.45", rate)
	}
}

// неизвестная пара: провайдер отвечает 200 без объекта курса
func TestParseCryptoRateUnknownPair(t *testing.T) {
	response := `{"Error Message": "Invalid API call."}`

	_, err := parseCryptoRate([]byte(response))
	if !errors.Is(err, externalApi.ErrNotFound) {
		t.Errorf("err = %v, want externalApi.ErrNotFound", err)
	}
}

func TestParseCryptoRateInvalidJson(t *testing.T) {
	if _, err := parseCryptoRate([]byte("not json")); err == nil {
		t.Error("err = nil, want unmarshal error")
	}
}
