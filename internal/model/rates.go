package model

import "github.com/shopspring/decimal"

// RateReport - котировка актива сейчас и вчера с процентным изменением.
// Change == nil, когда вчерашнее значение нулевое и изменение не определено.
type RateReport struct {
	Symbol   string
	Current  decimal.Decimal
	Previous decimal.Decimal
	Change   *decimal.Decimal
}
