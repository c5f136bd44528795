package bot

import (
	"fmt"

	"smena/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// personalKeyboard строит клавиатуру под ответным сообщением брони.
// Кнопки прячутся по мере продвижения статуса: у отменённой брони
// кнопок нет, у "не пришёл" нет повторной кнопки "Не пришёл".
func personalKeyboard(bookingID int64, status models.BookingStatus) *tgbotapi.InlineKeyboardMarkup {
	if status == models.StatusDeleted {
		return nil
	}

	row1 := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Пришёл", fmt.Sprintf("done:%d", bookingID)),
	}
	if status != models.StatusCancelled {
		row1 = append(row1, tgbotapi.NewInlineKeyboardButtonData("Не пришёл", fmt.Sprintf("cancel:%d", bookingID)))
	}
	row2 := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Отменить бронь", fmt.Sprintf("delete:%d", bookingID)),
		tgbotapi.NewInlineKeyboardButtonData("Редактировать", fmt.Sprintf("edit:%d", bookingID)),
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(row1, row2)
	return &kb
}

func cancelEditKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Отменить редактирование", "cancel_edit"),
		),
	)
}
