package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/finance_assistant_bot/config"
	"github.com/KotFed0t/finance_assistant_bot/data"
	"github.com/KotFed0t/finance_assistant_bot/data/cache"
	"github.com/KotFed0t/finance_assistant_bot/data/repository/postgres"
	"github.com/KotFed0t/finance_assistant_bot/data/session"
	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi/alphaVantageApi"
	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi/cbrApi"
	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/finance_assistant_bot/internal/externalApi/yahooApi"
	"github.com/KotFed0t/finance_assistant_bot/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/finance_assistant_bot/internal/scheduler"
	"github.com/KotFed0t/finance_assistant_bot/internal/service/financeService"
	"github.com/KotFed0t/finance_assistant_bot/internal/tgbot"
	"github.com/KotFed0t/finance_assistant_bot/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	cbrApiClient := cbrApi.New(cfg)
	alphaVantageApiClient := alphaVantageApi.New(cfg)
	yahooApiClient := yahooApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	financeSrv := financeService.New(
		cfg,
		pgRepo,
		redisCache,
		cbrApiClient,
		alphaVantageApiClient,
		yahooApiClient,
		reportGenerator,
		googleCloudStorage,
	)

	sched := scheduler.New()
	sched.NewIntervalJob("fill rates cache", financeSrv.FillRatesCache, cfg.Jobs.FillRatesCacheInterval, true)
	sched.NewIntervalJob("cleanup drive files", financeSrv.CleanupDriveFiles, cfg.Jobs.CleanupDriveFilesInterval, false)
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(financeSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
