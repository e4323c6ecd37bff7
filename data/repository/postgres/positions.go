package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/finance_assistant_bot/data/repository"
	"github.com/KotFed0t/finance_assistant_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/finance_assistant_bot/internal/model"
	"github.com/KotFed0t/finance_assistant_bot/internal/model/dbModel"
	"github.com/KotFed0t/finance_assistant_bot/utils"
)

func (r *Postgres) GetPosition(ctx context.Context, userID int64, symbol string) (position model.Position, err error) {
	query := `
		SELECT user_id, symbol, quantity, avg_price
		FROM positions
		WHERE user_id = $1
		AND symbol = $2
		`

	return r.getPosition(ctx, "Postgres.GetPosition", query, userID, symbol)
}

// GetPositionForUpdate блокирует строку позиции до конца текущей транзакции,
// чтобы конкурентные слияния по одному (user, symbol) выполнялись строго
// последовательно. Вызывается только внутри WithinTransaction.
func (r *Postgres) GetPositionForUpdate(ctx context.Context, userID int64, symbol string) (position model.Position, err error) {
	query := `
		SELECT user_id, symbol, quantity, avg_price
		FROM positions
		WHERE user_id = $1
		AND symbol = $2
		FOR UPDATE
		`

	return r.getPosition(ctx, "Postgres.GetPositionForUpdate", query, userID, symbol)
}

func (r *Postgres) getPosition(ctx context.Context, op, query string, userID int64, symbol string) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("getPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("getPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("getPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPosition := dbModel.Position{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, symbol).StructScan(&dbPosition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Position{}, repository.ErrNotFound
		}
		return model.Position{}, err
	}

	return dbConverter.ConvertPosition(dbPosition), nil
}

// InsertPosition вставляет новую позицию. При конкурентной вставке того же
// (user, symbol) возвращает ErrAlreadyExists - вызывающий повторяет слияние.
func (r *Postgres) InsertPosition(ctx context.Context, position model.Position) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertPosition"
	query := `
		INSERT INTO positions(user_id, symbol, quantity, avg_price)
		VALUES($1, $2, $3, $4)
		ON CONFLICT (user_id, symbol) DO NOTHING
		`

	slog.Debug("InsertPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			slog.Error("InsertPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, position.UserID, position.Symbol, position.Quantity, position.AvgPrice)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrAlreadyExists
	}

	return nil
}

func (r *Postgres) UpdatePosition(ctx context.Context, position model.Position) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdatePosition"
	query := `
		UPDATE positions
		SET
			quantity = $1,
			avg_price = $2
		WHERE
			user_id = $3
			AND symbol = $4
		`

	slog.Debug("UpdatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdatePosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, position.Quantity, position.AvgPrice, position.UserID, position.Symbol)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetPositions(ctx context.Context, userID int64) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPositions"
	query := `
		SELECT user_id, symbol, quantity, avg_price
		FROM positions
		WHERE user_id = $1
		ORDER BY symbol
		`

	slog.Debug("GetPositions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var position dbModel.Position
		err = rows.StructScan(&position)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(position))
	}

	return positions, nil
}

// DeletePosition удаляет позицию. Отсутствие строки не считается ошибкой.
func (r *Postgres) DeletePosition(ctx context.Context, userID int64, symbol string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePosition"
	params := map[string]any{
		"userID": userID,
		"symbol": symbol,
	}

	query := `
		DELETE FROM positions
		WHERE
			user_id = $1
			AND symbol = $2
		`

	slog.Debug("DeletePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("DeletePosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID, symbol)
	if err != nil {
		return err
	}

	return nil
}
