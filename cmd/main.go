package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/minvestfinance/simvest-backend/config"
	"github.com/minvestfinance/simvest-backend/data"
	"github.com/minvestfinance/simvest-backend/data/cache"
	"github.com/minvestfinance/simvest-backend/data/repository"
	"github.com/minvestfinance/simvest-backend/internal/externalApi/fmpApi"
	"github.com/minvestfinance/simvest-backend/internal/reportGenerator/xlsxGenerator"
	"github.com/minvestfinance/simvest-backend/internal/scheduler"
	"github.com/minvestfinance/simvest-backend/internal/service/minvestedService"
	"github.com/minvestfinance/simvest-backend/internal/service/simvestService"
	"github.com/minvestfinance/simvest-backend/internal/transport/httpapi"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	// chart points serialize as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	fmpApiClient := fmpApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	simvestSrv := simvestService.New(cfg, pgRepo, redisCache, fmpApiClient, reportGenerator)
	minvestedSrv := minvestedService.New(cfg, pgRepo)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh universe quotes", simvestSrv.RefreshUniverseQuotes, cfg.Jobs.RefreshQuotesInterval, true)
	sched.Start()
	defer sched.Stop()

	controller := httpapi.NewController(simvestSrv, minvestedSrv)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      httpapi.NewRouter(cfg, controller),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server start", slog.Int("port", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", slog.String("err", err.Error()))
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
	}
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
