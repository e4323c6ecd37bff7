package alphaVantageModel

// CryptoRateResponse - ответ CURRENCY_EXCHANGE_RATE. При неизвестной паре
// провайдер возвращает 200 без объекта Realtime Currency Exchange Rate.
type CryptoRateResponse struct {
	RealtimeCurrencyExchangeRate *RealtimeCurrencyExchangeRate `json:"Realtime Currency Exchange Rate"`
}

type RealtimeCurrencyExchangeRate struct {
	FromCurrencyCode string `json:"1. From_Currency Code"`
	ToCurrencyCode   string `json:"3. To_Currency Code"`
	ExchangeRate     string `json:"5. Exchange Rate"`
}
