package dbModel

import "github.com/shopspring/decimal"

type Position struct {
	UserID   int64           `db:"user_id"`
	Symbol   string          `db:"symbol"`
	Quantity int             `db:"quantity"`
	AvgPrice decimal.Decimal `db:"avg_price"`
}
