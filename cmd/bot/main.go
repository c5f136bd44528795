package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"smena/internal/api"
	"smena/internal/archive"
	"smena/internal/bot"
	"smena/internal/config"
	"smena/internal/currency"
	"smena/internal/database"
	"smena/internal/domain"
	"smena/internal/events"
	"smena/internal/google"
	"smena/internal/ledger"
	"smena/internal/logging"
	"smena/internal/metrics"
	"smena/internal/models"
	"smena/internal/report"
	"smena/internal/repository"
	"smena/internal/service"
	"smena/internal/shiftclock"
	"smena/internal/wallet"
	"smena/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

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

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, &logger)

	clock := shiftclock.New()

	var fetcher currency.RateFetcher
	if cfg.FX.URL != "" {
		fetcher = currency.NewHTTPRateFetcher(cfg.FX.URL, time.Duration(cfg.FX.TimeoutSeconds)*time.Second)
	}
	converter := currency.NewConverter(fetcher, db, &logger)
	converter.Refresh(ctx)

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	// Воркер выгрузки закрытых смен в таблицу
	var syncWorker domain.SyncWorker
	if sheetsService != nil {
		w := worker.NewShiftSyncWorker(sheetsService, converter, redisClient, worker.RetryPolicy{
			MaxRetries:    5,
			InitialDelay:  2 * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		}, &logger)
		go w.Run(ctx)
		syncWorker = w
	}

	eventBus := events.NewEventBus()
	archiver := archive.New(db, eventBus, syncWorker, clock, cfg.Shift.ArchiveRetentionDays, &logger)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(bot.NewBotWrapper(botAPI))

	shiftLedger := ledger.New(
		db, archiver, clock, converter, eventBus,
		tgService.ResolveChatTitle, cfg.IsOwner, &logger,
	)

	timers := worker.NewTimerManager(tgService, &logger)
	timers.Bind(eventBus)
	defer timers.StopAll()

	walletWatcher := initWallet(ctx, cfg, &logger)

	settingsService := service.NewSettingsService(db, &logger)
	applyOperatorOverrides(ctx, settingsService, &logger)

	reports := report.NewGenerator(db, converter, cfg.ExcludedChats, &logger)

	telegramBot := bot.NewBot(
		tgService, cfg, shiftLedger, reports, stateService,
		settingsService, converter, clock, walletWatcher, &logger,
	)

	metrics.Register()

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, reports, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() { _ = apiServer.Shutdown(context.Background()) }()
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	scheduler, err := startScheduler(ctx, cfg, telegramBot, archiver, converter, walletWatcher, &logger)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

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
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	fallbackRepo := repository.NewMemoryStateRepository(ttl)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

// initGoogleSheets подключает выгрузку в таблицу, если она настроена.
// Без неё бот работает, смены остаются только в локальном архиве.
func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.ShiftsSpreadsheetID == "" {
		logger.Info().Msg("Выгрузка в Google Sheets не настроена")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.ShiftsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

// applyOperatorOverrides читает необязательный файл с процентами ЗП
// и переносит их в настройки. Файл удобен для деплоя: проценты меняются
// без команд боту.
func applyOperatorOverrides(ctx context.Context, settings *service.SettingsService, logger *zerolog.Logger) {
	path := os.Getenv("OPERATORS_PATH")
	if path == "" {
		path = "configs/operators.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug().Str("operators_path", path).Msg("Файл с процентами операторов не найден")
		return
	}

	var overrides struct {
		DefaultPercent float64            `yaml:"default_percent"`
		SalaryPercent  map[string]float64 `yaml:"salary_percent"`
	}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		logger.Error().Err(err).Str("operators_path", path).Msg("Ошибка парсинга operators.yaml")
		return
	}

	if overrides.DefaultPercent > 0 {
		if err := settings.SetDefaultPercent(ctx, overrides.DefaultPercent); err != nil {
			logger.Error().Err(err).Msg("Не удалось сохранить процент по умолчанию")
		}
	}
	for name, percent := range overrides.SalaryPercent {
		if err := settings.SetSalaryPercent(ctx, name, percent); err != nil {
			logger.Error().Err(err).Str("operator", name).Msg("Не удалось сохранить процент оператора")
		}
	}
}

func initWallet(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *wallet.Watcher {
	if !cfg.Wallet.Enabled || cfg.Wallet.Address == "" || cfg.Wallet.APIBaseURL == "" {
		return nil
	}

	fetcher := wallet.NewHTTPBalanceFetcher(cfg.Wallet.APIBaseURL, cfg.Wallet.Address, 10*time.Second)
	watcher := wallet.NewWatcher(fetcher, logger)
	if err := watcher.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Первый опрос кошелька не удался")
	}
	return watcher
}

func startScheduler(
	ctx context.Context,
	cfg *config.Config,
	telegramBot *bot.Bot,
	archiver *archive.Archiver,
	converter *currency.Converter,
	walletWatcher *wallet.Watcher,
	logger *zerolog.Logger,
) (*worker.Scheduler, error) {
	scheduler := worker.NewScheduler(logger)

	summarySpec, err := cronSpec(cfg.Shift.SummaryTime)
	if err != nil {
		return nil, fmt.Errorf("summary_time: %w", err)
	}
	if err := scheduler.AddJob(summarySpec, "owner_summaries", func() {
		telegramBot.SendOwnerSummaries(ctx)
	}); err != nil {
		return nil, err
	}

	boardSpec, err := cronSpec(cfg.Shift.BoardRefreshTime)
	if err != nil {
		return nil, fmt.Errorf("board_refresh_time: %w", err)
	}
	if err := scheduler.AddJob(boardSpec, "board_refresh", func() {
		telegramBot.RefreshAllBoards(ctx)
	}); err != nil {
		return nil, err
	}

	if err := scheduler.AddJob("30 9 * * *", "archive_prune", func() {
		if _, err := archiver.Prune(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка очистки архива")
		}
	}); err != nil {
		return nil, err
	}

	fxSpec := fmt.Sprintf("@every %dm", cfg.FX.RefreshMinutes)
	if err := scheduler.AddJob(fxSpec, "fx_refresh", func() {
		converter.Refresh(ctx)
	}); err != nil {
		return nil, err
	}

	if walletWatcher != nil {
		walletSpec := fmt.Sprintf("@every %dm", cfg.Wallet.PollMinutes)
		if err := scheduler.AddJob(walletSpec, "wallet_poll", func() {
			if err := walletWatcher.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("Опрос кошелька не удался")
			}
		}); err != nil {
			return nil, err
		}
	}

	scheduler.Start()
	return scheduler, nil
}

// cronSpec превращает время "HH:MM" в cron-выражение на каждый день.
func cronSpec(hhmm string) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
