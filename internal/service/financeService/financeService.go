package financeService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/data/repository"
	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi"
	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/internal/service"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/shopspring/decimal"
)

// при конкурентной первой покупке одного символа insert может проиграть
// гонку - слияние повторяется уже по существующей строке
const mergeAttempts = 2

type Repository interface {
	RegUser(ctx context.Context, chatID int64, username string) (userID int64, err error)
	GetUserID(ctx context.Context, chatID int64) (userID int64, err error)
	GetPosition(ctx context.Context, userID int64, symbol string) (model.Position, error)
	GetPositionForUpdate(ctx context.Context, userID int64, symbol string) (model.Position, error)
	InsertPosition(ctx context.Context, position model.Position) error
	UpdatePosition(ctx context.Context, position model.Position) error
	GetPositions(ctx context.Context, userID int64) ([]model.Position, error)
	DeletePosition(ctx context.Context, userID int64, symbol string) error
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type Cache interface {
	GetRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
	SetRates(ctx context.Context, date time.Time, rates map[string]decimal.Decimal) error
}

type CbrApi interface {
	GetRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

type AlphaVantageApi interface {
	GetCryptoRate(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type YahooApi interface {
	GetEquityPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, positions []model.Position) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type FinanceService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	cbrApi          CbrApi
	alphaVantageApi AlphaVantageApi
	yahooApi        YahooApi
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	cbrApi CbrApi,
	alphaVantageApi AlphaVantageApi,
	yahooApi YahooApi,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *FinanceService {
	return &FinanceService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		cbrApi:          cbrApi,
		alphaVantageApi: alphaVantageApi,
		yahooApi:        yahooApi,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
	}
}

func (s *FinanceService) RegUser(ctx context.Context, chatID int64, username string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.RegUser"

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	defer func() {
		slog.Debug("RegUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	}()

	_, err := s.repo.RegUser(ctx, chatID, username)
	if err != nil {
		slog.Error("got error from repo.RegUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *FinanceService) IsRegistered(ctx context.Context, chatID int64) (bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.IsRegistered"

	_, err := s.repo.GetUserID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		slog.Error("got error from repo.GetUserID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return false, err
	}

	return true, nil
}

func (s *FinanceService) GetPortfolio(ctx context.Context, chatID int64) ([]model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	}()

	userID, err := s.repo.GetUserID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUserID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	positions, err := s.repo.GetPositions(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return positions, nil
}

// AddAsset вливает покупку в позицию (user, symbol) внутри одной транзакции:
// строка блокируется на время слияния, поэтому конкурентные покупки одного
// символа не теряют обновлений и не создают вторую строку.
func (s *FinanceService) AddAsset(ctx context.Context, chatID int64, symbol string, quantity int, unitPrice decimal.Decimal) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.AddAsset"

	slog.Debug("AddAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Error("AddAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		}
	}()

	userID, err := s.repo.GetUserID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		return model.Position{}, err
	}

	for attempt := 0; attempt < mergeAttempts; attempt++ {
		err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
			current, txErr := s.repo.GetPositionForUpdate(ctx, userID, symbol)
			if txErr != nil {
				if !errors.Is(txErr, repository.ErrNotFound) {
					return txErr
				}

				position = model.Position{UserID: userID, Symbol: symbol}.ApplyPurchase(quantity, unitPrice)
				return s.repo.InsertPosition(ctx, position)
			}

			position = current.ApplyPurchase(quantity, unitPrice)
			return s.repo.UpdatePosition(ctx, position)
		})

		if !errors.Is(err, repository.ErrAlreadyExists) {
			break
		}
	}

	if err != nil {
		return model.Position{}, err
	}

	return position, nil
}

func (s *FinanceService) RemoveAsset(ctx context.Context, chatID int64, symbol string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.RemoveAsset"

	slog.Debug("RemoveAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("RemoveAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	userID, err := s.repo.GetUserID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}

	_, err = s.repo.GetPosition(ctx, userID, symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.DeletePosition(ctx, userID, symbol)
	if err != nil {
		slog.Error("got error from repo.DeletePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// GetCurrencyRateReport сравнивает курс валюты за сегодня и вчера по дневным
// таблицам фида. Отсутствие кода в таблице любого из дней - ErrQuoteUnavailable.
func (s *FinanceService) GetCurrencyRateReport(ctx context.Context, code string) (model.RateReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetCurrencyRateReport"

	slog.Debug("GetCurrencyRateReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))
	defer func() {
		slog.Debug("GetCurrencyRateReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))
	}()

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	todayRates, err := s.getRates(ctx, today)
	if err != nil {
		return model.RateReport{}, err
	}

	yesterdayRates, err := s.getRates(ctx, yesterday)
	if err != nil {
		return model.RateReport{}, err
	}

	current, okCurrent := todayRates[code]
	previous, okPrevious := yesterdayRates[code]
	if !okCurrent || !okPrevious {
		return model.RateReport{}, service.ErrQuoteUnavailable
	}

	return buildRateReport(code, current, previous), nil
}

func (s *FinanceService) getRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.getRates"

	rates, err := s.cache.GetRates(ctx, date)
	if err == nil {
		return rates, nil
	}

	slog.Warn("can't get rates from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	rates, err = s.cbrApi.GetRates(ctx, date)
	if err != nil {
		return nil, err
	}

	go s.cache.SetRates(context.WithoutCancel(ctx), date, rates)

	return rates, nil
}

// GetCryptoRateReport сравнивает два последовательных мгновенных курса:
// исторической точки у провайдера в этом объеме нет, поэтому "вчерашнее"
// значение - повторное чтение того же эндпоинта. Известное ограничение.
func (s *FinanceService) GetCryptoRateReport(ctx context.Context, symbol string) (model.RateReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetCryptoRateReport"

	slog.Debug("GetCryptoRateReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetCryptoRateReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	current, err := s.alphaVantageApi.GetCryptoRate(ctx, symbol)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return model.RateReport{}, service.ErrQuoteUnavailable
		}
		return model.RateReport{}, err
	}

	previous, err := s.alphaVantageApi.GetCryptoRate(ctx, symbol)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return model.RateReport{}, service.ErrQuoteUnavailable
		}
		return model.RateReport{}, err
	}

	return buildRateReport(symbol, current, previous), nil
}

// GetEquityRateReport - то же ограничение по "вчерашней" цене, что и у
// крипты. Провайдер не отличает неизвестный тикер от сбоя, поэтому любая
// его ошибка уходит наверх как ошибка провайдера.
func (s *FinanceService) GetEquityRateReport(ctx context.Context, symbol string) (model.RateReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.GetEquityRateReport"

	slog.Debug("GetEquityRateReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetEquityRateReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	current, err := s.yahooApi.GetEquityPrice(ctx, symbol)
	if err != nil {
		return model.RateReport{}, err
	}

	previous, err := s.yahooApi.GetEquityPrice(ctx, symbol)
	if err != nil {
		return model.RateReport{}, err
	}

	return buildRateReport(symbol, current, previous), nil
}

func buildRateReport(symbol string, current, previous decimal.Decimal) model.RateReport {
	report := model.RateReport{
		Symbol:   symbol,
		Current:  current,
		Previous: previous,
	}

	if change, ok := CalcPercentageChange(current, previous); ok {
		report.Change = &change
	}

	return report
}

func (s *FinanceService) ExportPortfolio(ctx context.Context, chatID int64) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FinanceService.ExportPortfolio"

	slog.Debug("ExportPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("chatID", chatID))
	defer func() {
		if err != nil && !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrEmptyPortfolio) {
			slog.Error("ExportPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ExportPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	positions, err := s.GetPortfolio(ctx, chatID)
	if err != nil {
		return "", err
	}

	if len(positions) == 0 {
		return "", service.ErrEmptyPortfolio
	}

	fileBytes, fileExtension, err := s.reportGenerator.Generate(ctx, positions)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("portfolio_%d_%s%s", chatID, time.Now().Format("20060102_150405"), fileExtension)

	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		return "", err
	}

	return downloadLink, nil
}

// FillRatesCache - фоновая задача прогрева кэша дневной таблицы курсов.
// Дата берется один раз: на границе суток таблица дня N не должна попасть
// под ключ дня N+1.
func (s *FinanceService) FillRatesCache(ctx context.Context) error {
	now := time.Now()

	rates, err := s.cbrApi.GetRates(ctx, now)
	if err != nil {
		return err
	}

	return s.cache.SetRates(ctx, now, rates)
}

// CleanupDriveFiles - фоновая задача удаления старых выгрузок.
func (s *FinanceService) CleanupDriveFiles(ctx context.Context) error {
	return s.cloudStorage.DeleteOldFiles(ctx)
}
