package model

type State int

const (
	DefaultState State = iota
	ExpectingCurrencyCode
	ExpectingCryptoCode
	ExpectingEquitySymbol
	ExpectingAssetName
	ExpectingAssetQuantity
	ExpectingAssetPrice
	ExpectingRemovalSymbol
)

// Session хранит шаг диалога и промежуточные данные пользователя между сообщениями.
type Session struct {
	State     State
	AssetName string
	Quantity  int
}
