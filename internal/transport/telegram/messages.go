package telegram

const (
	internalErrMsg     = "что-то пошло не так..."
	greetingMsg        = "Привет! Я бот-помощник по личным финансам."
	registeredMsg      = "Вы успешно зарегистрированы!"
	mainMenuMsg        = "Главное меню"
	portfolioMenuMsg   = "Меню портфеля"
	emptyPortfolioMsg  = "У вас пока нет активов"
	enterCurrencyMsg   = "Введите код валюты (например, USD):"
	enterCryptoMsg     = "Введите код криптовалюты (например, BTC):"
	enterEquityMsg     = "Введите тикер бумаги (например, AAPL):"
	enterAssetNameMsg  = "Введите название актива:"
	enterQuantityMsg   = "Введите количество:"
	enterPriceMsg      = "Введите цену покупки:"
	invalidQuantityMsg = "Количество должно быть целым положительным числом. Введите количество:"
	invalidPriceMsg    = "Цена должна быть положительным числом. Введите цену покупки:"
	enterRemovalMsg    = "Введите название актива для удаления:"
	assetRemovedMsg    = "Актив удален из портфеля"
	assetNotFoundMsg   = "Такого актива нет в портфеле"
	quoteNotFoundMsg   = "Не удалось найти котировку по указанному коду"
	notRegisteredMsg   = "Сначала пройдите регистрацию"
)
