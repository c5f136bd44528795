package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smena/internal/api"
	"smena/internal/config"
	"smena/internal/currency"
	"smena/internal/database"
	"smena/internal/logging"
	"smena/internal/metrics"
	"smena/internal/report"

	"github.com/rs/zerolog"
)

// Отдельный процесс отчётного API: читает ту же базу, что и бот,
// и отдаёт отчёты по HTTP без телеграмной части.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var fetcher currency.RateFetcher
	if cfg.FX.URL != "" {
		fetcher = currency.NewHTTPRateFetcher(cfg.FX.URL, time.Duration(cfg.FX.TimeoutSeconds)*time.Second)
	}
	converter := currency.NewConverter(fetcher, db, &logger)
	converter.Refresh(ctx)

	reports := report.NewGenerator(db, converter, cfg.ExcludedChats, &logger)

	metrics.Register()

	server := api.NewHTTPServer(cfg.API, reports, &logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.API.Port).Msg("API server starting")
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("API server error")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}
