package ledger

import "errors"

var (
	// ErrValidation — некорректный ввод (время, дата, сумма); пользователю
	// предлагается поправить формат.
	ErrValidation = errors.New("некорректный ввод")

	// ErrNotFound — бронь или расход с таким id не найдены.
	ErrNotFound = errors.New("бронь не найдена")

	// ErrUnauthorized — действие доступно только автору брони или владельцу.
	ErrUnauthorized = errors.New("нет прав на это действие")

	// ErrInvalidState — переход невозможен из текущего статуса брони.
	ErrInvalidState = errors.New("недопустимый переход статуса")

	// ErrExternalUnavailable — внешний сервис недоступен и определённого
	// фолбэка для операции нет.
	ErrExternalUnavailable = errors.New("внешний сервис недоступен")
)
