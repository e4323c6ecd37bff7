package cbrApi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/internal/model/cbrModel"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

const dateReqLayout = "02/01/2006"

type CbrApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CbrApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CbrApi.Url)
	return &CbrApi{client: client}
}

// GetRates возвращает дневную таблицу курсов за указанную дату.
// Отсутствие кода в таблице - нормальный исход, его проверяет вызывающий.
func (a *CbrApi) GetRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	url := "/scripts/XML_daily.asp"

	slog.Debug("start CbrApi.GetRates request", slog.String("rqID", rqId), slog.String("date", date.Format(dateReqLayout)))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("date_req", date.Format(dateReqLayout)).
		Get(url)

	if err != nil {
		slog.Error("error while dialing CbrApi", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	rates, err := parseRates(resp.Body())
	if err != nil {
		slog.Error("can't parse CbrApi response", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	slog.Debug("CbrApi.GetRates request complete", slog.String("rqID", rqId))

	return rates, nil
}

// parseRates разбирает XML фида. Документ приходит в windows-1251, значение
// курса - с запятой в качестве десятичного разделителя.
func parseRates(data []byte) (map[string]decimal.Decimal, error) {
	valCurs := cbrModel.ValCurs{}

	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "windows-1251":
			return charmap.Windows1251.NewDecoder().Reader(input), nil
		default:
			return nil, fmt.Errorf("unknown charset %s", charset)
		}
	}

	if err := decoder.Decode(&valCurs); err != nil {
		return nil, fmt.Errorf("decode ValCurs: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(valCurs.Valutes))
	for _, valute := range valCurs.Valutes {
		value, err := decimal.NewFromString(strings.Replace(valute.Value, ",", ".", 1))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for code %s: %w", valute.Value, valute.CharCode, err)
		}
		rates[valute.CharCode] = value
	}

	return rates, nil
}
