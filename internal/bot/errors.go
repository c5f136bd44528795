package bot

import (
	"errors"

	"smena/internal/database"
	"smena/internal/ledger"
)

// errorMessage превращает доменную ошибку в текст для чата.
func (b *Bot) errorMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return "Не понял. Формат: 18:30 Анна 300 лари 1ч"
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, database.ErrNotFound):
		return "Бронь не найдена."
	case errors.Is(err, ledger.ErrUnauthorized):
		return "Это не твоя бронь!"
	case errors.Is(err, ledger.ErrInvalidState):
		return "Бронь уже отменена."
	case errors.Is(err, ledger.ErrExternalUnavailable):
		return "Сервис временно недоступен, попробуй позже."
	case errors.Is(err, database.ErrValidation):
		return "Некорректные данные."
	default:
		return "Произошла ошибка, попробуй ещё раз."
	}
}
