package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"smena/internal/ledger"
	"smena/internal/metrics"
	"smena/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var bookingPrefixRe = regexp.MustCompile(`^\d{1,2}:\d{2}`)

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Text == "" {
		return
	}

	// незавершённое редактирование перехватывает любой текст
	if pending, err := b.state.PendingEdit(ctx, msg.From.ID); err == nil && pending != nil {
		b.applyEdit(ctx, msg, pending)
		return
	}

	if bookingPrefixRe.MatchString(msg.Text) {
		b.addBooking(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(msg, helpText)
	case "summary":
		b.cmdSummary(ctx, msg)
	case "expense":
		b.cmdExpense(ctx, msg)
	case "new_shift":
		b.cmdNewShift(ctx, msg)
	case "daily":
		if b.isAllowedChat(msg.Chat.ID) {
			b.RefreshBoard(ctx, msg.Chat.ID)
		}
	case "cancel":
		b.cmdCancel(ctx, msg)
	case "report":
		b.cmdReport(ctx, msg)
	case "operator":
		b.cmdOperator(ctx, msg)
	case "cash":
		b.cmdCash(ctx, msg)
	case "stats":
		b.cmdStats(ctx, msg)
	case "export":
		b.cmdExport(ctx, msg)
	case "setrate":
		b.cmdSetRate(ctx, msg)
	case "setpercent":
		b.cmdSetPercent(ctx, msg)
	}
}

const helpText = `Бронь: 18:30 Анна 300 лари 1ч 30мин
Команды:
/summary — итоги смены владельцам
/expense <тип> <сумма> [валюта] [комментарий]
/new_shift — сбросить смену
/daily — обновить табло
/cancel — выйти из редактирования
/report ДД.ММ-ДД.ММ — отчёт за период
/operator <имя> ДД.ММ-ДД.ММ — отчёт по оператору
/cash ДД.ММ-ДД.ММ — кассовый отчёт чата
/stats ДД.ММ-ДД.ММ — статистика операторов
/export ДД.ММ-ДД.ММ — выгрузка в Excel
/setrate <валюта> <курс> — ручной курс
/setpercent <имя> <процент> — процент ЗП`

func (b *Bot) addBooking(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAllowedChat(msg.Chat.ID) {
		return
	}

	booking, err := b.ledger.AddBooking(ctx, msg.Chat.ID, msg.Text, msg.From.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrValidation) {
			b.logger.Debug().Str("text", msg.Text).Msg("Текст не распознан как бронь")
			return
		}
		b.reply(msg, b.errorMessage(err))
		return
	}
	metrics.IncBookingCreated()

	shift, err := b.ledger.EnsureShift(ctx, msg.Chat.ID)
	pos := 0
	if err == nil {
		pos = bookingPosition(shift, booking.ID)
	}

	text := fmt.Sprintf("Добавлено!\n%d. %s — %s (%s)", pos, booking.Time, booking.Descriptor, booking.DurationLabel)
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	if kb := personalKeyboard(booking.ID, booking.Status); kb != nil {
		reply.ReplyMarkup = kb
	}

	sent, err := b.tg.Send(reply)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Не удалось подтвердить бронь")
	} else if err := b.ledger.SetReplyMessage(ctx, msg.Chat.ID, booking.ID, sent.MessageID); err != nil {
		b.logger.Error().Err(err).Msg("Не удалось запомнить ответное сообщение брони")
	}

	b.RefreshBoard(ctx, msg.Chat.ID)
}

func (b *Bot) applyEdit(ctx context.Context, msg *tgbotapi.Message, pending *models.EditState) {
	if !bookingPrefixRe.MatchString(msg.Text) {
		b.reply(msg, "Начни с времени: 17:30 ...")
		return
	}

	booking, err := b.ledger.EditBooking(ctx, pending.ChatID, pending.BookingID, msg.Text, msg.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			b.reply(msg, "Бронь уже удалена.")
		case errors.Is(err, ledger.ErrUnauthorized):
			b.reply(msg, "Это не твоя бронь!")
		default:
			b.reply(msg, b.errorMessage(err))
			return
		}
		_ = b.state.FinishEdit(ctx, msg.From.ID)
		return
	}

	shift, shiftErr := b.ledger.EnsureShift(ctx, pending.ChatID)
	pos := 0
	if shiftErr == nil {
		pos = bookingPosition(shift, booking.ID)
	}
	text := fmt.Sprintf("Обновлено!\n%d. %s — %s (%s)", pos, booking.Time, booking.Descriptor, booking.DurationLabel)

	updated := false
	if booking.ReplyMessageID != 0 {
		if _, err := b.tg.EditMessage(pending.ChatID, booking.ReplyMessageID, text, personalKeyboard(booking.ID, booking.Status)); err == nil {
			updated = true
		}
	}
	if !updated {
		reply := tgbotapi.NewMessage(pending.ChatID, text)
		reply.ReplyToMessageID = msg.MessageID
		if kb := personalKeyboard(booking.ID, booking.Status); kb != nil {
			reply.ReplyMarkup = kb
		}
		if sent, err := b.tg.Send(reply); err == nil {
			_ = b.ledger.SetReplyMessage(ctx, pending.ChatID, booking.ID, sent.MessageID)
		}
	}

	// прибираем приглашение к редактированию
	if pending.PromptMessageID != 0 {
		_ = b.tg.DeleteMessage(pending.ChatID, pending.PromptMessageID)
	}

	_ = b.state.FinishEdit(ctx, msg.From.ID)
	b.reply(msg, "Бронь обновлена!")
	b.RefreshBoard(ctx, pending.ChatID)
}

func (b *Bot) cmdCancel(ctx context.Context, msg *tgbotapi.Message) {
	pending, err := b.state.PendingEdit(ctx, msg.From.ID)
	if err == nil && pending != nil {
		_ = b.state.FinishEdit(ctx, msg.From.ID)
		b.reply(msg, "Редактирование отменено.")
		return
	}
	b.reply(msg, "Нечего отменять.")
}

func (b *Bot) cmdNewShift(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	if _, err := b.ledger.ResetShiftManually(ctx, msg.Chat.ID, msg.From.ID); err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.reply(msg, "Смена сброшена вручную!")
	b.RefreshBoard(ctx, msg.Chat.ID)
}

func (b *Bot) cmdExpense(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		b.reply(msg, "Использование: /expense <тип> <сумма> [валюта] [комментарий]\nПример: /expense квартира 500")
		return
	}

	parts := strings.Fields(args)
	if len(parts) < 2 {
		b.reply(msg, "Укажи тип и сумму\nПример: /expense билет 200")
		return
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(parts[1], ",", "."), 64)
	if err != nil {
		b.reply(msg, "Сумма должна быть числом")
		return
	}

	cur := models.CurrencyUSD
	rest := parts[2:]
	if len(rest) > 0 {
		if c, ok := parseCurrencyToken(rest[0]); ok {
			cur = c
			rest = rest[1:]
		}
	}
	comment := strings.Join(rest, " ")

	expense, err := b.ledger.AddExpense(ctx, msg.Chat.ID, parts[0], amount, cur, comment, msg.From.ID)
	if err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}

	text := fmt.Sprintf("Добавлен расход: %s %.2f USD", expense.Type, expense.AmountUSD)
	if expense.Comment != "" {
		text += "\n" + expense.Comment
	}
	b.reply(msg, text)
}

func (b *Bot) cmdSetRate(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		b.reply(msg, "Использование: /setrate <валюта> <курс>\nПример: /setrate лари 0.38")
		return
	}

	cur, ok := parseCurrencyToken(parts[0])
	if !ok {
		b.reply(msg, "Не знаю такую валюту: "+parts[0])
		return
	}

	rate, err := strconv.ParseFloat(strings.ReplaceAll(parts[1], ",", "."), 64)
	if err != nil {
		b.reply(msg, "Курс должен быть числом")
		return
	}

	if err := b.settings.SetRate(ctx, cur, rate); err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.converter.Refresh(ctx)
	b.reply(msg, fmt.Sprintf("Курс %s установлен: %.4f USD", cur.Label(), rate))
}

func (b *Bot) cmdSetPercent(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isOwner(msg.From.ID) {
		b.reply(msg, "Ты не владелец")
		return
	}

	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		b.reply(msg, "Использование: /setpercent <имя> <процент>\nПример: /setpercent Анна 12")
		return
	}

	percent, err := strconv.ParseFloat(strings.ReplaceAll(parts[1], ",", "."), 64)
	if err != nil || percent < 0 || percent >= 100 {
		b.reply(msg, "Процент должен быть числом от 0 до 99")
		return
	}

	if err := b.settings.SetSalaryPercent(ctx, parts[0], percent/100); err != nil {
		b.reply(msg, b.errorMessage(err))
		return
	}
	b.reply(msg, fmt.Sprintf("Процент для %s: %.0f%%", parts[0], percent))
}

// parseCurrencyToken распознаёт валютный токен команды.
func parseCurrencyToken(token string) (models.Currency, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "лари", "лар", "lari", "gel":
		return models.CurrencyLari, true
	case "доллар", "доллары", "dollar", "usd", "$":
		return models.CurrencyUSD, true
	case "евро", "euro", "eur", "€":
		return models.CurrencyEuro, true
	case "крипта", "crypto", "usdt":
		return models.CurrencyCrypto, true
	case "драм", "драмы", "dram", "amd":
		return models.CurrencyDram, true
	}
	return "", false
}
