package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const ratesKeyPrefix = "cbr_rates:"

// RedisCache кэширует дневные таблицы курсов ЦБ по дате, чтобы не ходить в
// фид на каждый запрос пользователя.
type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func ratesKey(date time.Time) string {
	return ratesKeyPrefix + date.Format("2006-01-02")
}

func (r *RedisCache) SetRates(ctx context.Context, date time.Time, rates map[string]decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetRates start", slog.String("rqID", rqID))

	ratesJson, err := json.Marshal(rates)
	if err != nil {
		slog.Error(
			"can't marshal rates in SetRates",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
		)
		return errors.New("can't marshal rates")
	}

	_, err = r.redis.Set(ctx, ratesKey(date), ratesJson, r.cfg.Cache.RatesExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetRates completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetRates(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetRates start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, ratesKey(date)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return nil, err
	}

	rates := make(map[string]decimal.Decimal)
	err = json.Unmarshal([]byte(res), &rates)
	if err != nil {
		slog.Error(
			"can't unmarshal rates in GetRates",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshal rates")
	}

	slog.Debug("GetRates completed", slog.String("rqID", rqID))

	return rates, nil
}
