package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"smena/internal/ledger"
	"smena/internal/models"
)

// boardText собирает текст табло смены: шапка с датой и названием
// чата, затем пронумерованный список броней по времени сеанса.
func boardText(shift *models.Shift) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Брони на %s — %s (смена)</b>\n", shift.BusinessDate, html.EscapeString(shift.Title)))

	sorted := ledger.SortBookings(shift.Bookings)
	if len(sorted) == 0 {
		sb.WriteString("\n<i>Пока нет броней</i>")
		return sb.String()
	}

	for i := range sorted {
		bk := &sorted[i]
		line := fmt.Sprintf("%d. %s — %s (%s)", i+1, bk.Time, html.EscapeString(bk.Descriptor), bk.DurationLabel)
		switch bk.Status {
		case models.StatusDone:
			line += " Пришёл"
		case models.StatusDeleted:
			line = "<s>" + line + " Отменено</s>"
		case models.StatusCancelled:
			line = "<s>" + line + " Не пришёл</s>"
		}
		sb.WriteString("\n" + line)
	}
	return sb.String()
}

// RefreshBoard перерисовывает табло чата: правит существующее
// сообщение, при неудаче шлёт новое и запоминает его id.
func (b *Bot) RefreshBoard(ctx context.Context, chatID int64) {
	shift, err := b.ledger.EnsureShift(ctx, chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось получить смену для табло")
		return
	}

	text := boardText(shift)

	if shift.BoardMessageID != 0 {
		if _, err := b.tg.EditMessage(chatID, shift.BoardMessageID, text, nil); err == nil {
			return
		}
	}

	msg, err := b.tg.SendHTML(chatID, text)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить табло")
		return
	}
	if err := b.ledger.SetBoardMessage(ctx, chatID, msg.MessageID); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось запомнить сообщение табло")
	}
}

// RefreshAllBoards обновляет табло во всех рабочих чатах, утренняя задача.
func (b *Bot) RefreshAllBoards(ctx context.Context) {
	for _, chatID := range b.config.AllowedChats {
		b.RefreshBoard(ctx, chatID)
	}
}

// bookingPosition возвращает номер брони в отсортированном списке смены.
func bookingPosition(shift *models.Shift, bookingID int64) int {
	sorted := ledger.SortBookings(shift.Bookings)
	for i := range sorted {
		if sorted[i].ID == bookingID {
			return i + 1
		}
	}
	return 0
}
