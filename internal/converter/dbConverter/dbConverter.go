package dbConverter

import (
	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/internal/model/dbModel"
)

func ConvertPosition(dbPosition dbModel.Position) model.Position {
	return model.Position{
		UserID:   dbPosition.UserID,
		Symbol:   dbPosition.Symbol,
		Quantity: dbPosition.Quantity,
		AvgPrice: dbPosition.AvgPrice,
	}
}
