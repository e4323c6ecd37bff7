package financeService

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalcPercentageChange считает изменение current к previous в процентах.
// ok == false, когда previous равен нулю и изменение не определено.
// Функция чистая и не зависит от источника котировки.
func CalcPercentageChange(current, previous decimal.Decimal) (change decimal.Decimal, ok bool) {
	if previous.IsZero() {
		return decimal.Decimal{}, false
	}
	return current.Sub(previous).Div(previous).Mul(hundred), true
}
