package domain

import (
	"context"
	"time"

	"smena/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Store — персистентное состояние: смены, брони, расходы, архив, настройки.
type Store interface {
	GetShift(ctx context.Context, chatID int64) (*models.Shift, error)
	CreateShift(ctx context.Context, shift *models.Shift) error
	ResetShift(ctx context.Context, chatID int64, businessDate, title string) error
	UpdateShiftTitle(ctx context.Context, chatID int64, title string) error
	UpdateBoardMessage(ctx context.Context, chatID int64, messageID int) error
	GetAllShifts(ctx context.Context) ([]models.Shift, error)

	InsertBooking(ctx context.Context, b *models.Booking) error
	UpdateBooking(ctx context.Context, b *models.Booking) error

	InsertExpense(ctx context.Context, e *models.Expense) error
	GetExpenses(ctx context.Context, chatID int64, businessDate string) ([]models.Expense, error)
	GetExpensesByDateRange(ctx context.Context, dateFrom, dateTo string) ([]models.Expense, error)

	InsertArchiveRecord(ctx context.Context, rec *models.ShiftArchiveRecord) error
	GetArchiveByDateRange(ctx context.Context, dateFrom, dateTo string) ([]models.ShiftArchiveRecord, error)
	HasArchiveRecord(ctx context.Context, chatID int64, businessDate string) (bool, error)
	PruneArchive(ctx context.Context, cutoff time.Time) (int64, error)

	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
}

// StateRepository хранит состояние диалога редактирования с TTL.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.EditState, error)
	SetState(ctx context.Context, state *models.EditState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// TelegramService — узкий фасад поверх Bot API: отправка, правка и
// удаление сообщений плюс имя чата.
type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendHTML(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditReplyMarkup(chatID int64, messageID int, keyboard *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID string, text string) error
	ResolveChatTitle(ctx context.Context, chatID int64) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// TelegramSender — сырой клиент Bot API, который оборачивает TelegramService.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// EventPublisher — внутрипроцессные события домена.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsWriter выгружает строки закрытых смен во внешнюю таблицу.
type SheetsWriter interface {
	AppendShiftRows(ctx context.Context, rec *models.ShiftArchiveRecord, totalUSD float64) error
	TestConnection(ctx context.Context) error
}

// SyncWorker принимает задачи на фоновую синхронизацию таблицы.
type SyncWorker interface {
	EnqueueShift(ctx context.Context, rec *models.ShiftArchiveRecord) error
}

// BalanceFetcher возвращает баланс наблюдаемого кошелька.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context) (float64, error)
}
