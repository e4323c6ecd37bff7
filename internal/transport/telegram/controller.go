package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/finance_assistant_bot/data/session"
	"github.com/KotFed0t/finance_assistant_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/internal/service"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

type FinanceService interface {
	RegUser(ctx context.Context, chatID int64, username string) error
	IsRegistered(ctx context.Context, chatID int64) (bool, error)
	GetPortfolio(ctx context.Context, chatID int64) ([]model.Position, error)
	AddAsset(ctx context.Context, chatID int64, symbol string, quantity int, unitPrice decimal.Decimal) (model.Position, error)
	RemoveAsset(ctx context.Context, chatID int64, symbol string) error
	GetCurrencyRateReport(ctx context.Context, code string) (model.RateReport, error)
	GetCryptoRateReport(ctx context.Context, symbol string) (model.RateReport, error)
	GetEquityRateReport(ctx context.Context, symbol string) (model.RateReport, error)
	ExportPortfolio(ctx context.Context, chatID int64) (downloadLink string, err error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
	DeleteSession(ctx context.Context, key string) error
}

type Controller struct {
	financeService FinanceService
	session        Session
}

func NewController(financeService FinanceService, session Session) *Controller {
	return &Controller{
		financeService: financeService,
		session:        session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	registered, err := ctrl.financeService.IsRegistered(ctx, c.Chat().ID)
	if err != nil {
		slog.Error("got error from financeService.IsRegistered", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if registered {
		return c.Send(greetingMsg, telebotConverter.MainMenu())
	}

	return c.Send(greetingMsg, telebotConverter.RegistrationMenu())
}

func (ctrl *Controller) RegisterUser(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	username := ""
	if c.Sender() != nil {
		username = c.Sender().Username
	}

	err := ctrl.financeService.RegUser(ctx, c.Chat().ID, username)
	if err != nil {
		slog.Error("got error from financeService.RegUser", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(registeredMsg, telebotConverter.MainMenu())
}

func (ctrl *Controller) ShowPortfolioMenu(c tele.Context) error {
	return c.Send(portfolioMenuMsg, telebotConverter.PortfolioMenu())
}

func (ctrl *Controller) ShowPortfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	positions, err := ctrl.financeService.GetPortfolio(ctx, c.Chat().ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(notRegisteredMsg, telebotConverter.RegistrationMenu())
		}
		slog.Error("got error from financeService.GetPortfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if len(positions) == 0 {
		return c.Send(emptyPortfolioMsg, telebotConverter.PortfolioMenu())
	}

	return c.Send(telebotConverter.PortfolioResponse(positions), telebotConverter.PortfolioMenu())
}

// setState переводит диалог чата в новое состояние, сохраняя остальные
// накопленные поля сессии.
func (ctrl *Controller) setState(ctx context.Context, c tele.Context, state model.State) error {
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}

	chatSession.State = state
	return ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
}

// resetDialog завершает диалог: сессия удаляется целиком вместе с
// промежуточными данными, следующий шаг начинается с чистого состояния.
func (ctrl *Controller) resetDialog(ctx context.Context, c tele.Context) error {
	return ctrl.session.DeleteSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return chatSession, nil
}

func (ctrl *Controller) InitCurrencyRate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setState(ctx, c, model.ExpectingCurrencyCode); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterCurrencyMsg, telebotConverter.ReturnToMainMenuButton())
}

func (ctrl *Controller) ProcessCurrencyRate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	code := strings.ToUpper(strings.TrimSpace(c.Message().Text))

	report, err := ctrl.financeService.GetCurrencyRateReport(ctx, code)

	if resetErr := ctrl.resetDialog(ctx, c); resetErr != nil {
		return c.Send(internalErrMsg)
	}

	if err != nil {
		if errors.Is(err, service.ErrQuoteUnavailable) {
			return c.Send(quoteNotFoundMsg, telebotConverter.MainMenu())
		}
		slog.Error("got error from financeService.GetCurrencyRateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg, telebotConverter.MainMenu())
	}

	return c.Send(telebotConverter.RateReportResponse(report, "руб."), telebotConverter.MainMenu())
}

func (ctrl *Controller) InitCryptoRate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setState(ctx, c, model.ExpectingCryptoCode); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterCryptoMsg, telebotConverter.ReturnToMainMenuButton())
}

func (ctrl *Controller) ProcessCryptoRate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	symbol := strings.ToUpper(strings.TrimSpace(c.Message().Text))

	report, err := ctrl.financeService.GetCryptoRateReport(ctx, symbol)

	if resetErr := ctrl.resetDialog(ctx, c); resetErr != nil {
		return c.Send(internalErrMsg)
	}

	if err != nil {
		if errors.Is(err, service.ErrQuoteUnavailable) {
			return c.Send(quoteNotFoundMsg, telebotConverter.MainMenu())
		}
		slog.Error("got error from financeService.GetCryptoRateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg, telebotConverter.MainMenu())
	}

	return c.Send(telebotConverter.RateReportResponse(report, "USD"), telebotConverter.MainMenu())
}

func (ctrl *Controller) InitEquityRate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setState(ctx, c, model.ExpectingEquitySymbol); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterEquityMsg, telebotConverter.ReturnToMainMenuButton())
}

func (ctrl *Controller) ProcessEquityRate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	symbol := strings.ToUpper(strings.TrimSpace(c.Message().Text))

	report, err := ctrl.financeService.GetEquityRateReport(ctx, symbol)

	if resetErr := ctrl.resetDialog(ctx, c); resetErr != nil {
		return c.Send(internalErrMsg)
	}

	if err != nil {
		// провайдер не отличает неизвестный тикер от сбоя
		slog.Error("got error from financeService.GetEquityRateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(quoteNotFoundMsg, telebotConverter.MainMenu())
	}

	return c.Send(telebotConverter.RateReportResponse(report, "USD"), telebotConverter.MainMenu())
}

func (ctrl *Controller) InitAddAsset(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setState(ctx, c, model.ExpectingAssetName); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterAssetNameMsg, telebotConverter.BackToPortfolioButton())
}

func (ctrl *Controller) ProcessAssetName(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.AssetName = strings.ToUpper(strings.TrimSpace(c.Message().Text))
	chatSession.State = model.ExpectingAssetQuantity

	err = ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(enterQuantityMsg, telebotConverter.BackToPortfolioButton())
}

// ProcessAssetQuantity при невалидном вводе не меняет ни сессию, ни
// портфель - пользователь остается на том же шаге.
func (ctrl *Controller) ProcessAssetQuantity(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	quantity, err := strconv.Atoi(strings.TrimSpace(c.Message().Text))
	if err != nil || quantity <= 0 {
		return c.Send(invalidQuantityMsg, telebotConverter.BackToPortfolioButton())
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.Quantity = quantity
	chatSession.State = model.ExpectingAssetPrice

	err = ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(enterPriceMsg, telebotConverter.BackToPortfolioButton())
}

func (ctrl *Controller) ProcessAssetPrice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	price, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(c.Message().Text, ",", ".")))
	if err != nil || !price.IsPositive() {
		return c.Send(invalidPriceMsg, telebotConverter.BackToPortfolioButton())
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	position, err := ctrl.financeService.AddAsset(ctx, c.Chat().ID, chatSession.AssetName, chatSession.Quantity, price)
	if err != nil {
		slog.Error("got error from financeService.AddAsset", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if resetErr := ctrl.resetDialog(ctx, c); resetErr != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PositionSavedResponse(position), telebotConverter.PortfolioMenu())
}

func (ctrl *Controller) InitRemoveAsset(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setState(ctx, c, model.ExpectingRemovalSymbol); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterRemovalMsg, telebotConverter.BackToPortfolioButton())
}

func (ctrl *Controller) ProcessRemoveAsset(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	symbol := strings.ToUpper(strings.TrimSpace(c.Message().Text))

	err := ctrl.financeService.RemoveAsset(ctx, c.Chat().ID, symbol)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		slog.Error("got error from financeService.RemoveAsset", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if resetErr := ctrl.resetDialog(ctx, c); resetErr != nil {
		return c.Send(internalErrMsg)
	}

	if errors.Is(err, service.ErrNotFound) {
		return c.Send(assetNotFoundMsg, telebotConverter.PortfolioMenu())
	}

	return c.Send(assetRemovedMsg, telebotConverter.PortfolioMenu())
}

func (ctrl *Controller) ExportPortfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	downloadLink, err := ctrl.financeService.ExportPortfolio(ctx, c.Chat().ID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPortfolio) {
			return c.Send(emptyPortfolioMsg, telebotConverter.PortfolioMenu())
		}
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(notRegisteredMsg, telebotConverter.RegistrationMenu())
		}
		slog.Error("got error from financeService.ExportPortfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Выгрузка портфеля готова: "+downloadLink, telebotConverter.PortfolioMenu())
}

// BackToMainMenu отменяет текущий диалог: вместе с шагом сбрасываются и
// накопленные промежуточные данные.
func (ctrl *Controller) BackToMainMenu(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.resetDialog(ctx, c); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(mainMenuMsg, telebotConverter.MainMenu())
}

func (ctrl *Controller) BackToPortfolioMenu(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.resetDialog(ctx, c); err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(portfolioMenuMsg, telebotConverter.PortfolioMenu())
}
