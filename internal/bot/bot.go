package bot

import (
	"context"
	"os"
	"time"

	"smena/internal/config"
	"smena/internal/currency"
	"smena/internal/domain"
	"smena/internal/ledger"
	"smena/internal/report"
	"smena/internal/service"
	"smena/internal/shiftclock"
	"smena/internal/wallet"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Bot struct {
	tg        domain.TelegramService
	config    *config.Config
	ledger    *ledger.Ledger
	reports   *report.Generator
	state     *service.StateService
	settings  *service.SettingsService
	converter *currency.Converter
	clock     *shiftclock.Clock
	wallet    *wallet.Watcher
	logger    *zerolog.Logger
}

func NewBot(
	tg domain.TelegramService,
	cfg *config.Config,
	shiftLedger *ledger.Ledger,
	reports *report.Generator,
	state *service.StateService,
	settings *service.SettingsService,
	converter *currency.Converter,
	clock *shiftclock.Clock,
	walletWatcher *wallet.Watcher,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tg:        tg,
		config:    cfg,
		ledger:    shiftLedger,
		reports:   reports,
		state:     state,
		settings:  settings,
		converter: converter,
		clock:     clock,
		wallet:    walletWatcher,
		logger:    logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Бот авторизован")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Бот останавливается...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop() {
	b.tg.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		if update.Message != nil {
			userID = update.Message.From.ID
		} else if update.CallbackQuery != nil {
			userID = update.CallbackQuery.From.ID
		}
		if userID == 0 {
			return
		}

		if !b.isOwner(userID) && update.Message != nil {
			limit := b.config.Shift.RateLimitMessages
			window := time.Duration(b.config.Shift.RateLimitWindow) * time.Second
			if limit > 0 {
				allowed, err := b.state.CheckRateLimit(updateCtx, userID, limit, window)
				if err == nil && !allowed {
					b.logger.Warn().Int64("user_id", userID).Msg("Превышен лимит сообщений")
					b.reply(update.Message, "Слишком часто. Подожди немного.")
					return
				}
			}
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}

		if update.Message == nil {
			return
		}

		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Паника в обработчике обновления")
		}
	}()
	handler()
}

func (b *Bot) isOwner(userID int64) bool {
	for _, id := range b.config.Owners {
		if id == userID {
			return true
		}
	}
	return false
}

// isAllowedChat проверяет, что чат есть в списке рабочих. Пустой
// список означает отсутствие ограничения.
func (b *Bot) isAllowedChat(chatID int64) bool {
	if len(b.config.AllowedChats) == 0 {
		return true
	}
	for _, id := range b.config.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ReplyToMessageID = msg.MessageID
	if _, err := b.tg.Send(m); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Не удалось ответить на сообщение")
	}
}

func (b *Bot) replyHTML(msg *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ReplyToMessageID = msg.MessageID
	m.ParseMode = tgbotapi.ModeHTML
	if _, err := b.tg.Send(m); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Не удалось ответить на сообщение")
	}
}
