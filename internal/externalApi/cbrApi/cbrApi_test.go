package cbrApi

import (
	"testing"

	"github.com/shopspring/decimal"
)

// фид отдается в windows-1251, для теста достаточно ASCII-подмножества
const dailyFeedSample = `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="02.08.2026" name="Foreign Currency Market">
	<Valute ID="R01235">
		<NumCode>840</NumCode>
		<CharCode>USD</CharCode>
		<Nominal>1</Nominal>
		<Name>Dollar</Name>
		<Value>75,00</Value>
	</Valute>
	<Valute ID="R01375">
		<NumCode>156</NumCode>
		<CharCode>CNY</CharCode>
		<Nominal>1</Nominal>
		<Name>Yuan</Name>
		<Value>10,4321</Value>
	</Valute>
</ValCurs>`

func TestParseRates(t *testing.T) {
	rates, err := parseRates([]byte(dailyFeedSample))
	if err != nil {
		t.Fatal(err)
	}

	if len(rates) != 2 {
		t.Fatalf("len(rates) = %d, want 2", len(rates))
	}

	usd, ok := rates["USD"]
	if !ok {
		t.Fatal("USD not found in rates")
	}
	if !usd.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("USD = %s, want 75.00", usd)
	}

	cny, ok := rates["CNY"]
	if !ok {
		t.Fatal("CNY not found in rates")
	}
	if !cny.Equal(decimal.RequireFromString("10.4321")) {
		t.Errorf("CNY = %s, want 10.4321", cny)
	}

	if _, ok := rates["EUR"]; ok {
		t.Error("EUR present in rates, want absent")
	}
}

func TestParseRatesInvalidValue(t *testing.T) {
	broken := `<?xml version="1.0" encoding="windows-1251"?>
<ValCurs Date="02.08.2026">
	<Valute><CharCode>USD</CharCode><Nominal>1</Nominal><Name>Dollar</Name><Value>abc</Value></Valute>
</ValCurs>`

	if _, err := parseRates([]byte(broken)); err == nil {
		t.Error("err = nil, want parse error")
	}
}

func TestParseRatesUnknownCharset(t *testing.T) {
	broken := `<?xml version="1.0" encoding="koi8-r"?><ValCurs></ValCurs>`

	if _, err := parseRates([]byte(broken)); err == nil {
		t.Error("err = nil, want charset error")
	}
}
