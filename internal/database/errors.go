package database

import "errors"

var (
	// ErrNotFound — запрошенной записи нет.
	ErrNotFound = errors.New("запись не найдена")

	// ErrValidation — данные не проходят проверку формата.
	ErrValidation = errors.New("некорректные данные")
)
