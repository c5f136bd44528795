package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"smena/internal/ledger"
	"smena/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data

	// сразу убираем "часики"
	_ = b.tg.AnswerCallback(callback.ID, "")

	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	switch {
	case data == "cancel_edit":
		b.cancelEditCallback(ctx, callback)
	case strings.HasPrefix(data, "done:"):
		b.transitionCallback(ctx, callback, chatID, data, ledger.ActionMarkArrived)
	case strings.HasPrefix(data, "cancel:"):
		b.transitionCallback(ctx, callback, chatID, data, ledger.ActionMarkNoShow)
	case strings.HasPrefix(data, "delete:"):
		b.transitionCallback(ctx, callback, chatID, data, ledger.ActionMarkCancelled)
	case strings.HasPrefix(data, "edit:"):
		b.startEditCallback(ctx, callback, chatID, data)
	}
}

func parseCallbackID(data string) int64 {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	id, _ := strconv.ParseInt(parts[1], 10, 64)
	return id
}

func (b *Bot) transitionCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, chatID int64, data string, action ledger.TransitionAction) {
	bookingID := parseCallbackID(data)
	if bookingID == 0 {
		return
	}

	booking, err := b.ledger.Transition(ctx, chatID, bookingID, action, callback.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			_ = b.tg.AnswerCallback(callback.ID, "Бронь не найдена.")
		case errors.Is(err, ledger.ErrUnauthorized):
			_ = b.tg.AnswerCallback(callback.ID, "Это не твоя бронь!")
		case errors.Is(err, ledger.ErrInvalidState):
			_ = b.tg.AnswerCallback(callback.ID, "Бронь уже отменена.")
		default:
			b.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Не удалось сменить статус брони")
		}
		return
	}
	metrics.IncBookingTransition(string(action))

	if action == ledger.ActionMarkArrived {
		_ = b.tg.AnswerCallback(callback.ID, "Клиент пришёл — таймер запущен!")
	}

	b.RefreshBoard(ctx, chatID)

	// клавиатура под ответным сообщением сужается по статусу
	if booking.ReplyMessageID != 0 {
		kb := personalKeyboard(booking.ID, booking.Status)
		if err := b.tg.EditReplyMarkup(chatID, booking.ReplyMessageID, kb); err != nil {
			_ = b.ledger.SetReplyMessage(ctx, chatID, booking.ID, 0)
		}
	}
}

func (b *Bot) startEditCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, chatID int64, data string) {
	bookingID := parseCallbackID(data)
	if bookingID == 0 {
		return
	}

	booking, err := b.ledger.FindBooking(ctx, chatID, bookingID)
	if err != nil {
		_ = b.tg.AnswerCallback(callback.ID, "Бронь не найдена.")
		return
	}
	if callback.From.ID != booking.AuthorID && !b.isOwner(callback.From.ID) {
		_ = b.tg.AnswerCallback(callback.ID, "Это не твоя бронь! Редактировать нельзя.")
		return
	}

	prompt := fmt.Sprintf(
		"<b>Редактируй бронь:</b>\n\n"+
			"<b>Текущая:</b> <code>%s %s %s</code>\n\n"+
			"<b>Пиши в формате:</b>\n"+
			"<code>18:30 Анна 1ч 30мин</code>\n"+
			"<code>15:00 Иван 300 лари</code>\n\n"+
			"<i>или нажми кнопку ниже</i>",
		booking.Time, html.EscapeString(booking.Descriptor), booking.DurationLabel,
	)

	sent, err := b.tg.SendWithInlineKeyboard(chatID, prompt, cancelEditKeyboard())
	if err != nil {
		b.logger.Error().Err(err).Msg("Не удалось отправить приглашение к редактированию")
		return
	}

	if err := b.state.StartEdit(ctx, callback.From.ID, chatID, bookingID, sent.MessageID); err != nil {
		b.logger.Error().Err(err).Msg("Не удалось сохранить состояние редактирования")
	}
}

func (b *Bot) cancelEditCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	_ = b.state.FinishEdit(ctx, callback.From.ID)
	_ = b.tg.AnswerCallback(callback.ID, "Редактирование отменено")
	if callback.Message != nil {
		_, _ = b.tg.EditMessage(callback.Message.Chat.ID, callback.Message.MessageID, "Редактирование отменено.", nil)
	}
}
