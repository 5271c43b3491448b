package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, исчерпан лимит попыток).
	ErrConflict = errors.New("resource state conflict")

	// ErrInvalidState используется при недопустимом переходе состояния сессии попытки
	// (повторный submit, запись ответа после завершения). Это ошибка интеграции,
	// а не пользовательская ситуация — её нельзя молча проглатывать.
	ErrInvalidState = errors.New("invalid session state")
)
