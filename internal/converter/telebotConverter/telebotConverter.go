package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	tele "gopkg.in/telebot.v4"
)

// Тексты кнопок reply-клавиатур. По ним же диспетчеризуются команды
// в состоянии по умолчанию.
const (
	BtnRegister         = "Регистрация"
	BtnPortfolio        = "Мой портфель"
	BtnCurrency         = "Курс валют"
	BtnCrypto           = "Криптовалюта"
	BtnEquity           = "Биржа"
	BtnMyAssets         = "Мои активы"
	BtnAddAsset         = "Добавить актив"
	BtnRemoveAsset      = "Удалить актив"
	BtnExportPortfolio  = "Экспорт портфеля"
	BtnBackToMainMenu   = "Назад в главное меню"
	BtnBackToPortfolio  = "Назад"
	BtnReturnToMainMenu = "Возврат в главное меню"
)

func replyMenu(buttons ...string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}

	rows := make([]tele.Row, 0, len(buttons))
	for _, button := range buttons {
		rows = append(rows, markup.Row(markup.Text(button)))
	}
	markup.Reply(rows...)

	return markup
}

func RegistrationMenu() *tele.ReplyMarkup {
	return replyMenu(BtnRegister)
}

func MainMenu() *tele.ReplyMarkup {
	return replyMenu(BtnPortfolio, BtnCurrency, BtnCrypto, BtnEquity)
}

func PortfolioMenu() *tele.ReplyMarkup {
	return replyMenu(BtnMyAssets, BtnAddAsset, BtnRemoveAsset, BtnExportPortfolio, BtnBackToMainMenu)
}

// BackToPortfolioButton - клавиатура шагов диалогов портфеля.
func BackToPortfolioButton() *tele.ReplyMarkup {
	return replyMenu(BtnBackToPortfolio)
}

// ReturnToMainMenuButton - клавиатура шагов запроса котировок.
func ReturnToMainMenuButton() *tele.ReplyMarkup {
	return replyMenu(BtnReturnToMainMenu)
}

func PortfolioResponse(positions []model.Position) string {
	var sb strings.Builder

	sb.WriteString("Ваши активы:\n")
	for _, position := range positions {
		sb.WriteString(fmt.Sprintf(
			"Актив: %s, Количество: %d, Средняя цена покупки: %s, Сумма: %s\n",
			position.Symbol,
			position.Quantity,
			position.AvgPrice.StringFixed(2),
			position.TotalCost().StringFixed(2),
		))
	}

	return sb.String()
}

// PositionSavedResponse - подтверждение покупки с пересчитанной позицией.
func PositionSavedResponse(position model.Position) string {
	return fmt.Sprintf(
		"Актив добавлен. %s: количество %d, средняя цена покупки %s, сумма %s",
		position.Symbol,
		position.Quantity,
		position.AvgPrice.StringFixed(2),
		position.TotalCost().StringFixed(2),
	)
}

// RateReportResponse форматирует котировку с изменением за день.
// Когда изменение не определено (вчерашнее значение нулевое), строка
// изменения опускается.
func RateReportResponse(report model.RateReport, unit string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Текущий курс %s: %s %s\n", report.Symbol, report.Current.StringFixed(2), unit))
	sb.WriteString(fmt.Sprintf("Курс %s вчера: %s %s\n", report.Symbol, report.Previous.StringFixed(2), unit))

	if report.Change != nil {
		sb.WriteString(fmt.Sprintf("Изменение по сравнению с вчерашним днем: %s%%", report.Change.StringFixed(2)))
	} else {
		sb.WriteString("Изменение по сравнению с вчерашним днем не определено")
	}

	return sb.String()
}
