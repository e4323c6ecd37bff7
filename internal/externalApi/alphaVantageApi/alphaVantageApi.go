package alphaVantageApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi"
	"github.com/KotFed0t/finance_assistant_bot/internal/model/alphaVantageModel"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const quoteCurrency = "USD"

type AlphaVantageApi struct {
	client *resty.Client
	apiKey string
}

func New(cfg *config.Config) *AlphaVantageApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AlphaVantageApi.Url)
	return &AlphaVantageApi{client: client, apiKey: cfg.API.AlphaVantageApi.ApiKey}
}

// GetCryptoRate возвращает мгновенный курс symbol к USD.
// externalApi.ErrNotFound - провайдер не знает такую пару.
func (a *AlphaVantageApi) GetCryptoRate(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	url := "/query"
	params := map[string]string{
		"function":      "CURRENCY_EXCHANGE_RATE",
		"from_currency": symbol,
		"to_currency":   quoteCurrency,
		"apikey":        a.apiKey,
	}

	slog.Debug("start AlphaVantageApi.GetCryptoRate request", slog.String("rqID", rqId), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return decimal.Decimal{}, err
	}

	rate, err := parseCryptoRate(resp.Body())
	if err != nil {
		if !errors.Is(err, externalApi.ErrNotFound) {
			slog.Error("can't parse AlphaVantageApi response", slog.String("err", err.Error()), slog.String("rqID", rqId))
		}
		return decimal.Decimal{}, err
	}

	slog.Debug("AlphaVantageApi.GetCryptoRate request complete", slog.String("rqID", rqId))

	return rate, nil
}

// parseCryptoRate достает курс из ответа. Отсутствие объекта
// "Realtime Currency Exchange Rate" означает неизвестную провайдеру пару.
func parseCryptoRate(data []byte) (decimal.Decimal, error) {
	rateResponse := alphaVantageModel.CryptoRateResponse{}
	if err := json.Unmarshal(data, &rateResponse); err != nil {
		return decimal.Decimal{}, fmt.Errorf("unmarshal crypto rate response: %w", err)
	}

	if rateResponse.RealtimeCurrencyExchangeRate == nil {
		return decimal.Decimal{}, externalApi.ErrNotFound
	}

	rate, err := decimal.NewFromString(rateResponse.RealtimeCurrencyExchangeRate.ExchangeRate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid exchange rate %q: %w", rateResponse.RealtimeCurrencyExchangeRate.ExchangeRate, err)
	}

	return rate, nil
}
