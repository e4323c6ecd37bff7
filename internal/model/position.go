package model

import "github.com/shopspring/decimal"

// Position - позиция пользователя по одному активу. AvgPrice хранит среднюю
// цену покупки за единицу, округленную до 2 знаков после каждой докупки.
// Округление накапливается от слияния к слиянию и не пересчитывается по всей
// истории операций.
type Position struct {
	UserID   int64
	Symbol   string
	Quantity int
	AvgPrice decimal.Decimal
}

// TotalCost возвращает суммарную стоимость позиции по средней цене покупки.
func (p Position) TotalCost() decimal.Decimal {
	return p.AvgPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// ApplyPurchase вливает докупку в позицию: количество суммируется, средняя
// цена пересчитывается как взвешенное среднее и округляется до 2 знаков.
// Репозиторий выполняет слияние в одной транзакции с блокировкой строки,
// поэтому конкурентные докупки не теряются.
func (p Position) ApplyPurchase(quantity int, unitPrice decimal.Decimal) Position {
	if p.Quantity <= 0 {
		p.Quantity = quantity
		p.AvgPrice = unitPrice.Round(2)
		return p
	}

	oldQty := decimal.NewFromInt(int64(p.Quantity))
	newQty := decimal.NewFromInt(int64(p.Quantity + quantity))
	totalCost := p.AvgPrice.Mul(oldQty).Add(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))

	p.Quantity += quantity
	p.AvgPrice = totalCost.Div(newQty).Round(2)
	return p
}
