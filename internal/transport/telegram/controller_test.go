package telegram

import (
	"context"
	"strconv"
	"testing"

	"github.com/KotFed0t/finance_assistant_bot/data/session"
	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/internal/service"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

// fakeTeleCtx подменяет только то, что трогают обработчики. Остальные
// методы интерфейса унаследованы от nil и уронят тест, если обработчик
// неожиданно в них полезет.
type fakeTeleCtx struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	message *tele.Message
	sent    []string
	store   map[string]any
}

func newFakeTeleCtx(chatID int64, text string) *fakeTeleCtx {
	return &fakeTeleCtx{
		chat:    &tele.Chat{ID: chatID},
		sender:  &tele.User{ID: chatID, Username: "user"},
		message: &tele.Message{Text: text},
		store:   make(map[string]any),
	}
}

func (c *fakeTeleCtx) Chat() *tele.Chat       { return c.chat }
func (c *fakeTeleCtx) Sender() *tele.User     { return c.sender }
func (c *fakeTeleCtx) Message() *tele.Message { return c.message }

func (c *fakeTeleCtx) Send(what interface{}, _ ...interface{}) error {
	if text, ok := what.(string); ok {
		c.sent = append(c.sent, text)
	}
	return nil
}

func (c *fakeTeleCtx) Set(key string, val interface{}) { c.store[key] = val }
func (c *fakeTeleCtx) Get(key string) interface{}      { return c.store[key] }

func (c *fakeTeleCtx) lastSent(t *testing.T) string {
	t.Helper()
	if len(c.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return c.sent[len(c.sent)-1]
}

type fakeSessionStore struct {
	sessions map[string]model.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]model.Session)}
}

func (s *fakeSessionStore) GetSession(_ context.Context, key string) (model.Session, error) {
	chatSession, ok := s.sessions[key]
	if !ok {
		return model.Session{}, session.ErrNotFound
	}
	return chatSession, nil
}

func (s *fakeSessionStore) SetSession(_ context.Context, key string, chatSession model.Session) error {
	s.sessions[key] = chatSession
	return nil
}

func (s *fakeSessionStore) DeleteSession(_ context.Context, key string) error {
	delete(s.sessions, key)
	return nil
}

func (s *fakeSessionStore) mustGet(t *testing.T, chatID int64) model.Session {
	t.Helper()
	chatSession, ok := s.sessions[strconv.FormatInt(chatID, 10)]
	if !ok {
		t.Fatal("session not found")
	}
	return chatSession
}

// assertNoSession проверяет, что диалог завершен и сессия удалена.
func (s *fakeSessionStore) assertNoSession(t *testing.T, chatID int64) {
	t.Helper()
	if chatSession, ok := s.sessions[strconv.FormatInt(chatID, 10)]; ok {
		t.Errorf("session still stored: %+v", chatSession)
	}
}

type addAssetCall struct {
	symbol   string
	quantity int
	price    decimal.Decimal
}

type fakeFinanceService struct {
	addAssetCalls   []addAssetCall
	removeAssetErr  error
	removedSymbols  []string
	currencyReports map[string]model.RateReport
}

func (s *fakeFinanceService) RegUser(_ context.Context, _ int64, _ string) error { return nil }

func (s *fakeFinanceService) IsRegistered(_ context.Context, _ int64) (bool, error) {
	return true, nil
}

func (s *fakeFinanceService) GetPortfolio(_ context.Context, _ int64) ([]model.Position, error) {
	return nil, nil
}

func (s *fakeFinanceService) AddAsset(_ context.Context, userID int64, symbol string, quantity int, unitPrice decimal.Decimal) (model.Position, error) {
	s.addAssetCalls = append(s.addAssetCalls, addAssetCall{symbol: symbol, quantity: quantity, price: unitPrice})
	return model.Position{UserID: userID, Symbol: symbol, Quantity: quantity, AvgPrice: unitPrice.Round(2)}, nil
}

func (s *fakeFinanceService) RemoveAsset(_ context.Context, _ int64, symbol string) error {
	if s.removeAssetErr != nil {
		return s.removeAssetErr
	}
	s.removedSymbols = append(s.removedSymbols, symbol)
	return nil
}

func (s *fakeFinanceService) GetCurrencyRateReport(_ context.Context, code string) (model.RateReport, error) {
	report, ok := s.currencyReports[code]
	if !ok {
		return model.RateReport{}, service.ErrQuoteUnavailable
	}
	return report, nil
}

func (s *fakeFinanceService) GetCryptoRateReport(_ context.Context, _ string) (model.RateReport, error) {
	return model.RateReport{}, service.ErrQuoteUnavailable
}

func (s *fakeFinanceService) GetEquityRateReport(_ context.Context, _ string) (model.RateReport, error) {
	return model.RateReport{}, service.ErrQuoteUnavailable
}

func (s *fakeFinanceService) ExportPortfolio(_ context.Context, _ int64) (string, error) {
	return "", service.ErrEmptyPortfolio
}

func TestAddAssetDialog(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)

	if err := ctrl.InitAddAsset(newFakeTeleCtx(chatID, "Добавить актив")); err != nil {
		t.Fatal(err)
	}
	if got := sessions.mustGet(t, chatID).State; got != model.ExpectingAssetName {
		t.Fatalf("state after init = %v, want ExpectingAssetName", got)
	}

	if err := ctrl.ProcessAssetName(newFakeTeleCtx(chatID, "aapl")); err != nil {
		t.Fatal(err)
	}
	chatSession := sessions.mustGet(t, chatID)
	if chatSession.AssetName != "AAPL" {
		t.Errorf("AssetName = %q, want AAPL", chatSession.AssetName)
	}
	if chatSession.State != model.ExpectingAssetQuantity {
		t.Fatalf("state = %v, want ExpectingAssetQuantity", chatSession.State)
	}

	if err := ctrl.ProcessAssetQuantity(newFakeTeleCtx(chatID, "10")); err != nil {
		t.Fatal(err)
	}
	chatSession = sessions.mustGet(t, chatID)
	if chatSession.Quantity != 10 {
		t.Errorf("Quantity = %d, want 10", chatSession.Quantity)
	}
	if chatSession.State != model.ExpectingAssetPrice {
		t.Fatalf("state = %v, want ExpectingAssetPrice", chatSession.State)
	}

	if err := ctrl.ProcessAssetPrice(newFakeTeleCtx(chatID, "150,5")); err != nil {
		t.Fatal(err)
	}

	if len(srv.addAssetCalls) != 1 {
		t.Fatalf("AddAsset calls = %d, want 1", len(srv.addAssetCalls))
	}
	call := srv.addAssetCalls[0]
	if call.symbol != "AAPL" || call.quantity != 10 || !call.price.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("AddAsset called with %s/%d/%s, want AAPL/10/150.5", call.symbol, call.quantity, call.price)
	}

	sessions.assertNoSession(t, chatID)
}

// Невалидное количество: пользователь остается на том же шаге, в сервис
// ничего не уходит.
func TestProcessAssetQuantityInvalidInput(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State:     model.ExpectingAssetQuantity,
		AssetName: "AAPL",
	})

	for _, input := range []string{"abc", "1.5", "-3", "0"} {
		c := newFakeTeleCtx(chatID, input)
		if err := ctrl.ProcessAssetQuantity(c); err != nil {
			t.Fatal(err)
		}
		if got := c.lastSent(t); got != invalidQuantityMsg {
			t.Errorf("input %q: sent %q, want re-prompt", input, got)
		}
	}

	chatSession := sessions.mustGet(t, chatID)
	if chatSession.State != model.ExpectingAssetQuantity {
		t.Errorf("state = %v, want ExpectingAssetQuantity", chatSession.State)
	}
	if len(srv.addAssetCalls) != 0 {
		t.Errorf("AddAsset calls = %d, want 0", len(srv.addAssetCalls))
	}
}

func TestProcessAssetPriceInvalidInput(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State:     model.ExpectingAssetPrice,
		AssetName: "AAPL",
		Quantity:  10,
	})

	for _, input := range []string{"abc", "-1", "0"} {
		c := newFakeTeleCtx(chatID, input)
		if err := ctrl.ProcessAssetPrice(c); err != nil {
			t.Fatal(err)
		}
		if got := c.lastSent(t); got != invalidPriceMsg {
			t.Errorf("input %q: sent %q, want re-prompt", input, got)
		}
	}

	chatSession := sessions.mustGet(t, chatID)
	if chatSession.State != model.ExpectingAssetPrice {
		t.Errorf("state = %v, want ExpectingAssetPrice", chatSession.State)
	}
	if len(srv.addAssetCalls) != 0 {
		t.Errorf("AddAsset calls = %d, want 0", len(srv.addAssetCalls))
	}
}

func TestProcessRemoveAssetNotFound(t *testing.T) {
	srv := &fakeFinanceService{removeAssetErr: service.ErrNotFound}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State: model.ExpectingRemovalSymbol,
	})

	c := newFakeTeleCtx(chatID, "nope")
	if err := ctrl.ProcessRemoveAsset(c); err != nil {
		t.Fatal(err)
	}

	if got := c.lastSent(t); got != assetNotFoundMsg {
		t.Errorf("sent %q, want %q", got, assetNotFoundMsg)
	}
	sessions.assertNoSession(t, chatID)
}

func TestProcessRemoveAssetUppercasesSymbol(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State: model.ExpectingRemovalSymbol,
	})

	c := newFakeTeleCtx(chatID, "aapl")
	if err := ctrl.ProcessRemoveAsset(c); err != nil {
		t.Fatal(err)
	}

	if len(srv.removedSymbols) != 1 || srv.removedSymbols[0] != "AAPL" {
		t.Errorf("removedSymbols = %v, want [AAPL]", srv.removedSymbols)
	}
	if got := c.lastSent(t); got != assetRemovedMsg {
		t.Errorf("sent %q, want %q", got, assetRemovedMsg)
	}
}

func TestProcessCurrencyRate(t *testing.T) {
	change := decimal.RequireFromString("-20")
	srv := &fakeFinanceService{currencyReports: map[string]model.RateReport{
		"USD": {
			Symbol:   "USD",
			Current:  decimal.RequireFromString("80"),
			Previous: decimal.RequireFromString("100"),
			Change:   &change,
		},
	}}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State: model.ExpectingCurrencyCode,
	})

	c := newFakeTeleCtx(chatID, "usd")
	if err := ctrl.ProcessCurrencyRate(c); err != nil {
		t.Fatal(err)
	}

	sessions.assertNoSession(t, chatID)
	if len(c.sent) == 0 {
		t.Fatal("nothing was sent")
	}
}

func TestProcessCurrencyRateUnknownCode(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State: model.ExpectingCurrencyCode,
	})

	c := newFakeTeleCtx(chatID, "XYZ")
	if err := ctrl.ProcessCurrencyRate(c); err != nil {
		t.Fatal(err)
	}

	if got := c.lastSent(t); got != quoteNotFoundMsg {
		t.Errorf("sent %q, want %q", got, quoteNotFoundMsg)
	}
	sessions.assertNoSession(t, chatID)
}

// Отмена диалога выкидывает и шаг, и накопленные промежуточные данные.
func TestBackToPortfolioMenuDiscardsScratchData(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State:     model.ExpectingAssetPrice,
		AssetName: "AAPL",
		Quantity:  10,
	})

	if err := ctrl.BackToPortfolioMenu(newFakeTeleCtx(chatID, "Назад")); err != nil {
		t.Fatal(err)
	}

	sessions.assertNoSession(t, chatID)
}

func TestBackToMainMenuDiscardsScratchData(t *testing.T) {
	srv := &fakeFinanceService{}
	sessions := newFakeSessionStore()
	ctrl := NewController(srv, sessions)

	const chatID = int64(42)
	_ = sessions.SetSession(context.Background(), strconv.FormatInt(chatID, 10), model.Session{
		State:     model.ExpectingAssetQuantity,
		AssetName: "GOLD",
	})

	if err := ctrl.BackToMainMenu(newFakeTeleCtx(chatID, "Назад в главное меню")); err != nil {
		t.Fatal(err)
	}

	sessions.assertNoSession(t, chatID)
}
