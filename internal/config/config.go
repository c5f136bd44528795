package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	FX         FXConfig         `yaml:"fx"`
	Google     GoogleConfig     `yaml:"google"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Exports    ExportConfig     `yaml:"exports"`
	Shift      ShiftConfig      `yaml:"shift"`

	Owners        []int64 `yaml:"owners"`
	AllowedChats  []int64 `yaml:"allowed_chats"`
	ExcludedChats []int64 `yaml:"excluded_chats"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type FXConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RefreshMinutes int    `yaml:"refresh_minutes"`
}

type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	ShiftsSpreadsheetID string `yaml:"shifts_spreadsheet_id"`
}

type WalletConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	APIBaseURL  string `yaml:"api_base_url"`
	PollMinutes int    `yaml:"poll_minutes"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type ShiftConfig struct {
	// SummaryTime — время рассылки итогов владельцам (за минуту до границы смены).
	SummaryTime string `yaml:"summary_time"`
	// BoardRefreshTime — время утреннего обновления табло.
	BoardRefreshTime string `yaml:"board_refresh_time"`
	// ArchiveRetentionDays — глубина хранения архива смен.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`
	// RateLimitMessages / RateLimitWindow — частотное ограничение сообщений.
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен: в контейнере переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подстановка переменных окружения в YAML до разбора
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if len(c.Owners) == 0 {
		return errors.New("at least one owner id is required")
	}
	if len(c.AllowedChats) == 0 {
		return errors.New("at least one allowed chat is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.FX.TimeoutSeconds == 0 {
		c.FX.TimeoutSeconds = 5
	}
	if c.FX.RefreshMinutes == 0 {
		c.FX.RefreshMinutes = 60
	}
	if c.Wallet.PollMinutes == 0 {
		c.Wallet.PollMinutes = 15
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Shift.SummaryTime == "" {
		c.Shift.SummaryTime = "08:59"
	}
	if c.Shift.BoardRefreshTime == "" {
		c.Shift.BoardRefreshTime = "09:00"
	}
	if c.Shift.ArchiveRetentionDays == 0 {
		c.Shift.ArchiveRetentionDays = 90
	}
	if c.Shift.RateLimitMessages == 0 {
		c.Shift.RateLimitMessages = 20
	}
	if c.Shift.RateLimitWindow == 0 {
		c.Shift.RateLimitWindow = 60
	}
}

// IsOwner проверяет идентификатор по списку владельцев.
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.Owners {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAllowedChat проверяет чат по списку распознаваемых.
func (c *Config) IsAllowedChat(chatID int64) bool {
	for _, id := range c.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// IsExcludedChat сообщает, исключён ли чат из сводных отчётов.
func (c *Config) IsExcludedChat(chatID int64) bool {
	for _, id := range c.ExcludedChats {
		if id == chatID {
			return true
		}
	}
	return false
}
