package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/data/session"
	"github.com/KotFed0t/finance_assistant_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/finance_assistant_bot/internal/transport/telegram/middleware"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	tele "gopkg.in/telebot.v4"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot       *tele.Bot
	ctrl      *telegram.Controller
	session   Session
	sequencer *customMW.Sequencer
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	sequencer := customMW.NewSequencer()

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: sequencer.WrapPoller(&tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout}),
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session, sequencer: sequencer}
}

func (b *TGBot) Start() {
	b.bot.Use(customMW.Recover(), b.sequencer.Middleware(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle(tele.OnText, b.dispatchText)
}

// dispatchText выбирает метод контроллера по тексту кнопки и шагу диалога.
// Кнопки возврата срабатывают из любого шага, остальные команды доступны
// только из состояния по умолчанию.
func (b *TGBot) dispatchText(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("что-то пошло не так...")
	}

	c.Set("session", chatSession)

	switch c.Message().Text {
	case telebotConverter.BtnBackToMainMenu, telebotConverter.BtnReturnToMainMenu:
		return b.ctrl.BackToMainMenu(c)
	case telebotConverter.BtnBackToPortfolio:
		return b.ctrl.BackToPortfolioMenu(c)
	}

	switch chatSession.State {
	case model.DefaultState:
		return b.dispatchCommand(c)
	case model.ExpectingCurrencyCode:
		return b.ctrl.ProcessCurrencyRate(c)
	case model.ExpectingCryptoCode:
		return b.ctrl.ProcessCryptoRate(c)
	case model.ExpectingEquitySymbol:
		return b.ctrl.ProcessEquityRate(c)
	case model.ExpectingAssetName:
		return b.ctrl.ProcessAssetName(c)
	case model.ExpectingAssetQuantity:
		return b.ctrl.ProcessAssetQuantity(c)
	case model.ExpectingAssetPrice:
		return b.ctrl.ProcessAssetPrice(c)
	case model.ExpectingRemovalSymbol:
		return b.ctrl.ProcessRemoveAsset(c)
	default:
		slog.Error("unexpected chatSession state", slog.String("rqID", rqID), slog.Any("state", chatSession.State))
		return c.Send("сначала введите одну из команд")
	}
}

func (b *TGBot) dispatchCommand(c tele.Context) error {
	switch c.Message().Text {
	case telebotConverter.BtnRegister:
		return b.ctrl.RegisterUser(c)
	case telebotConverter.BtnPortfolio:
		return b.ctrl.ShowPortfolioMenu(c)
	case telebotConverter.BtnMyAssets:
		return b.ctrl.ShowPortfolio(c)
	case telebotConverter.BtnAddAsset:
		return b.ctrl.InitAddAsset(c)
	case telebotConverter.BtnRemoveAsset:
		return b.ctrl.InitRemoveAsset(c)
	case telebotConverter.BtnExportPortfolio:
		return b.ctrl.ExportPortfolio(c)
	case telebotConverter.BtnCurrency:
		return b.ctrl.InitCurrencyRate(c)
	case telebotConverter.BtnCrypto:
		return b.ctrl.InitCryptoRate(c)
	case telebotConverter.BtnEquity:
		return b.ctrl.InitEquityRate(c)
	default:
		return c.Send("сначала введите одну из команд")
	}
}
