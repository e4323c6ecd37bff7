package yahooApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/internal/model/yahooModel"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url)
	return &YahooApi{client: client}
}

// GetEquityPrice возвращает последнюю цену акции. Провайдер не отличает
// неизвестный тикер от сбоя, поэтому любая неудача - описательная ошибка,
// а не "не найдено".
func (a *YahooApi) GetEquityPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"interval": "1d",
		"range":    "1d",
	}

	slog.Debug("start YahooApi.GetEquityPrice request", slog.String("rqID", rqId), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return decimal.Decimal{}, fmt.Errorf("failed to get equity price for %s: %w", symbol, err)
	}

	price, err := parseEquityPrice(resp.Body())
	if err != nil {
		slog.Error("can't parse YahooApi response", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return decimal.Decimal{}, fmt.Errorf("failed to get equity price for %s: %w", symbol, err)
	}

	slog.Debug("YahooApi.GetEquityPrice request complete", slog.String("rqID", rqId))

	return price, nil
}

func parseEquityPrice(data []byte) (decimal.Decimal, error) {
	chartResponse := yahooModel.ChartResponse{}
	if err := json.Unmarshal(data, &chartResponse); err != nil {
		return decimal.Decimal{}, fmt.Errorf("unmarshal chart response: %w", err)
	}

	if chartResponse.Chart.Error != nil {
		return decimal.Decimal{}, fmt.Errorf("provider error %s: %s", chartResponse.Chart.Error.Code, chartResponse.Chart.Error.Description)
	}

	if len(chartResponse.Chart.Result) == 0 {
		return decimal.Decimal{}, errors.New("empty chart result")
	}

	return decimal.NewFromFloat(chartResponse.Chart.Result[0].Meta.RegularMarketPrice), nil
}
