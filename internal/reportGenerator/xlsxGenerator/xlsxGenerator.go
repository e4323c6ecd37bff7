package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Портфель"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate формирует xlsx с активами пользователя: символ, количество,
// средняя цена покупки и суммарная стоимость.
func (g *XLSXGenerator) Generate(ctx context.Context, positions []model.Position) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(positions) == 0 {
		return nil, "", errors.New("empty positions")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSheet(f, positions); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSheet(f *excelize.File, positions []model.Position) error {
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "D1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Мои активы")

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"}, // Светло-голубой цвет
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("ошибка применения стиля: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "символ")
	_ = f.SetCellStr(sheetName, "B2", "кол-во")
	_ = f.SetCellStr(sheetName, "C2", "средняя цена")
	_ = f.SetCellStr(sheetName, "D2", "сумма")

	for i, position := range positions {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", i+3), position.Symbol)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", i+3), int64(position.Quantity))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", i+3), position.AvgPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", i+3), position.TotalCost().InexactFloat64())
	}

	// Удаляем лист по умолчанию "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	return nil
}
